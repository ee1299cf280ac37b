package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportRetriesDialErrors(t *testing.T) {
	calls := 0
	rt := &retryTransport{
		maxRetries: 2,
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
			}
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
		}),
	}
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", strings.NewReader("a=b"))
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if calls != 3 {
		t.Fatalf("calls = %d", calls)
	}
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	calls := 0
	want := errors.New("tls: bad certificate")
	rt := &retryTransport{
		maxRetries: 3,
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, want
		}),
	}
	req, _ := http.NewRequest(http.MethodGet, "https://api.telegram.org/bot1:x/getMe", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, want) || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestEndpointName(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "https://api.telegram.org/bot123:secret/sendDocument", nil)
	if got := endpointName(req); got != "sendDocument" {
		t.Fatalf("endpointName = %q", got)
	}
}

func TestBuildPoller(t *testing.T) {
	wh, ok := BuildPoller(PollerOptions{RunMode: "WEBHOOK", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443}}).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("webhook poller = %#v", wh)
	}
	lp, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	if !ok || lp.Timeout.Seconds() != defaultLongPollTimeout {
		t.Fatalf("default poller = %#v", lp)
	}
}
