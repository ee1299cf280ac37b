package sender

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestEnqueueRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	done := make(chan struct{})
	err := d.Enqueue(context.Background(), "send", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: timeoutErr{}}
		}
		close(done)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	d.Close()
	if calls.Load() != 3 || d.ErrorCount() != 0 {
		t.Fatalf("calls=%d errors=%d", calls.Load(), d.ErrorCount())
	}
}

func TestDoDoesNotRetry(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	defer d.Close()

	calls := 0
	want := &net.OpError{Op: "dial", Err: timeoutErr{}}
	err := d.Do(context.Background(), "invite", "sendMessage", func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
	if d.ErrorCount() != 1 {
		t.Fatalf("errors=%d", d.ErrorCount())
	}
	if err := d.Do(context.Background(), "invite", "sendMessage", func() error { return nil }); err != nil {
		t.Fatal(err)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()
	if err := d.Enqueue(context.Background(), "send", "", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("err = %v", err)
	}
	d.Close()
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, "dns"},
		{&net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{&tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, "http_4xx"},
		{errors.New("telegram: internal error (502)"), "http_5xx"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		if got := classifyError(tc.err); got != tc.want {
			t.Errorf("classifyError(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAE-secret_token/sendMessage": EOF`)
	got := SanitizeError(err)
	if strings.Contains(got, "secret") || !strings.Contains(got, "bot<redacted>") {
		t.Fatalf("token not redacted: %s", got)
	}
	if SanitizeError(nil) != "" {
		t.Fatal("nil error should render empty")
	}
}
