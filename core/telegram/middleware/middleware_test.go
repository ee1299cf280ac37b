package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	update tele.Update
	sender *tele.User
	store  map[string]any
}

func newFakeContext(userID int64, callback bool) *fakeContext {
	u := &tele.User{ID: userID}
	upd := tele.Update{ID: 1, Message: &tele.Message{Sender: u, Chat: &tele.Chat{ID: userID}}}
	if callback {
		upd = tele.Update{ID: 2, Callback: &tele.Callback{Sender: u, Data: "\fconfirm|1"}}
	}
	return &fakeContext{update: upd, sender: u, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Sender() *tele.User { return f.sender }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.sender.ID} }
func (f *fakeContext) Text() string { return "" }
func (f *fakeContext) Get(k string) any { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }
func (f *fakeContext) Send(any, ...any) error { return nil }
func (f *fakeContext) Edit(any, ...any) error { return nil }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  7,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	called := 0
	h := mw(func(tele.Context) error { called++; return nil })

	_ = h(newFakeContext(7, false))
	_ = h(newFakeContext(8, false))
	if called != 1 || rejected != 1 {
		t.Fatalf("called=%d rejected=%d", called, rejected)
	}

	none := AdminOptions{}
	if none.IsAdmin(newFakeContext(0, false)) {
		t.Fatal("zero admin id must never match")
	}
}

func TestRateLimitExclusions(t *testing.T) {
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	passed := 0
	h := mw(func(tele.Context) error { passed++; return nil })

	_ = h(newFakeContext(1, false))
	_ = h(newFakeContext(1, false))
	_ = h(newFakeContext(1, true))
	_ = h(newFakeContext(2, false))

	if passed != 3 || limited != 1 {
		t.Fatalf("passed=%d limited=%d", passed, limited)
	}
}

func TestRecoverMiddlewareReturnsError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, false))
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}

	want := errors.New("plain")
	if got := RecoverMiddleware(func(tele.Context) error { return want })(newFakeContext(1, false)); !errors.Is(got, want) {
		t.Fatalf("err = %v", got)
	}
}

func TestMetricsCounters(t *testing.T) {
	c := newFakeContext(1, true)
	kb := &tele.ReplyMarkup{}
	h := MessageMetricsMiddleware(func(mc tele.Context) error {
		_ = mc.Send("Список пуст.")
		_ = mc.Send(&tele.Document{FileName: "registrations.txt"})
		_ = mc.Edit("Список очищен.", kb)
		return mc.Respond()
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	got := GetCounters(c)
	want := Counters{Messages: 1, Edits: 1, Documents: 1, Answers: 1, Keyboard: true}
	if got != want {
		t.Fatalf("counters = %+v, want %+v", got, want)
	}
	if (GetCounters(newFakeContext(2, false)) != Counters{}) {
		t.Fatal("counters without middleware should be zero")
	}
}
