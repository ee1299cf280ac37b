package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	post := func(err error) error {
		return &url.Error{Op: "Post", URL: "https://api.telegram.org/sendMessage", Err: err}
	}
	cases := []struct {
		name      string
		err       error
		kind      Kind
		retryable bool
	}{
		{"nil", nil, KindNone, false},
		{"api reply", errors.New("telegram: Forbidden: bot was blocked by the user (403)"), KindNone, false},
		{"deadline", fmt.Errorf("send invitation: %w", context.DeadlineExceeded), KindTimeout, true},
		{"timeout", timeoutErr{}, KindTimeout, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, KindDial, true},
		{"read reset", &net.OpError{Op: "read", Err: errors.New("reset")}, KindNone, false},
		{"url timeout", post(timeoutErr{}), KindTimeout, true},
		{"url dial", post(&net.OpError{Op: "dial", Err: errors.New("refused")}), KindDial, true},
		{"dns", post(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}), KindDNS, false},
		{"dns temporary", &net.DNSError{Err: "server misbehaving", IsTemporary: true}, KindDNS, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.kind {
				t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.kind)
			}
			if got := Retryable(tc.err); got != tc.retryable {
				t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.retryable)
			}
		})
	}
}
