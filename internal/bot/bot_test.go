package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/exambot/core/telegram"
	"github.com/m3rciful/exambot/internal/dialog"
	"github.com/m3rciful/exambot/internal/exam"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/registration"
	"github.com/m3rciful/exambot/internal/store"
)

const (
	adminID = 42
	userID  = 100
)

type fakeContext struct {
	tele.Context
	update    tele.Update
	sender    *tele.User
	store     map[string]any
	sent      []string
	markups   []*tele.ReplyMarkup
	edits     []string
	responses []string
	answered  int
}

var updateSeq = 1000

func nextUpdateID() int {
	updateSeq++
	return updateSeq
}

func textContext(from int64, text string) *fakeContext {
	u := &tele.User{ID: from}
	return &fakeContext{
		update: tele.Update{ID: nextUpdateID(), Message: &tele.Message{Sender: u, Chat: &tele.Chat{ID: from}, Text: text}},
		sender: u,
		store:  map[string]any{},
	}
}

func callbackContext(from int64, data string) *fakeContext {
	u := &tele.User{ID: from}
	msg := &tele.Message{Chat: &tele.Chat{ID: from}}
	return &fakeContext{
		update: tele.Update{ID: nextUpdateID(), Callback: &tele.Callback{Sender: u, Data: data, Message: msg}},
		sender: u,
		store:  map[string]any{},
	}
}

func (f *fakeContext) Update() tele.Update { return f.update }
func (f *fakeContext) Sender() *tele.User { return f.sender }
func (f *fakeContext) Chat() *tele.Chat { return &tele.Chat{ID: f.sender.ID} }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(k string) any { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Send(what any, opts ...any) error {
	switch v := what.(type) {
	case string:
		f.sent = append(f.sent, v)
	case *tele.Document:
		f.sent = append(f.sent, "document:"+v.FileName)
	}
	var rm *tele.ReplyMarkup
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			rm = m
		}
	}
	f.markups = append(f.markups, rm)
	return nil
}

func (f *fakeContext) Edit(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.edits = append(f.edits, s)
	}
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.answered++
	for _, r := range resp {
		f.responses = append(f.responses, r.Text)
	}
	return nil
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeTransport struct{ sent map[int64]string }

func (t *fakeTransport) SendInvitation(_ context.Context, chatID, _ int64, text string) error {
	t.sent[chatID] = text
	return nil
}

type harness struct {
	t      *testing.T
	svc    *exam.Service
	store  store.Store
	tr     *fakeTransport
	routes map[any]tele.HandlerFunc
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st, err := store.OpenFile(context.Background(), filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	tr := &fakeTransport{sent: map[int64]string{}}
	svc := exam.New(exam.Options{Store: st, Invites: invite.New(tr, st, time.UTC)})
	h := New(Options{Service: svc, AdminID: adminID})

	reg := tg.NewRegistry()
	h.Register(reg)
	routes := map[any]tele.HandlerFunc{}
	for _, r := range h.Routes(reg) {
		routes[r.Endpoint] = r.Handler
	}
	return &harness{t: t, svc: svc, store: st, tr: tr, routes: routes}
}

func (h *harness) text(from int64, text string) *fakeContext {
	h.t.Helper()
	c := textContext(from, text)
	endpoint := any(tele.OnText)
	if strings.HasPrefix(text, "/") {
		endpoint = text
	}
	if err := h.routes[endpoint](c); err != nil {
		h.t.Fatalf("%q: %v", text, err)
	}
	return c
}

func (h *harness) press(from int64, data string) *fakeContext {
	h.t.Helper()
	c := callbackContext(from, data)
	if err := h.routes[tele.OnCallback](c); err != nil {
		h.t.Fatalf("%q: %v", data, err)
	}
	if c.answered != 1 {
		h.t.Fatalf("%q answered %d times", data, c.answered)
	}
	return c
}

func TestIntakeThroughLabels(t *testing.T) {
	h := newHarness(t)

	if got := h.text(userID, "/start").lastSent(); got != textGreeting {
		t.Fatalf("start = %q", got)
	}
	if got := h.text(userID, LabelRegister).lastSent(); got != dialog.PromptFullName {
		t.Fatalf("register = %q", got)
	}
	h.text(userID, "Ivan Petrov")
	h.text(userID, "+79990000000")
	if got := h.text(userID, "two").lastSent(); got != dialog.TextBadAttempt {
		t.Fatalf("bad attempt = %q", got)
	}
	if got := h.text(userID, "2").lastSent(); got != textSubmitted {
		t.Fatalf("submit = %q", got)
	}

	regs, err := h.store.ListRegistrations(context.Background())
	if err != nil || len(regs) != 1 {
		t.Fatalf("registrations = %+v %v", regs, err)
	}
	if r := regs[0]; r.ChatID != userID || r.FullName != "Ivan Petrov" || r.Attempt != 2 {
		t.Fatalf("registration = %+v", r)
	}
}

func TestCancelEndsIntake(t *testing.T) {
	h := newHarness(t)
	h.text(userID, "/register")
	if got := h.text(userID, LabelCancel).lastSent(); got != textCancelled {
		t.Fatalf("cancel = %q", got)
	}
	if got := h.text(userID, "Ivan").sent; len(got) != 0 {
		t.Fatalf("text after cancel answered: %q", got)
	}
}

func TestAdminCannotRegister(t *testing.T) {
	h := newHarness(t)
	if got := h.text(adminID, "/register").lastSent(); got != textAdminNoSubmit {
		t.Fatalf("reply = %q", got)
	}
	if got := h.text(adminID, "/start").lastSent(); got != textAdminPanel {
		t.Fatalf("start = %q", got)
	}
}

func TestAdminEntryPointsRejectUsers(t *testing.T) {
	h := newHarness(t)
	if got := h.text(userID, LabelList).lastSent(); got != textAdminOnly {
		t.Fatalf("label = %q", got)
	}
	if got := h.text(userID, "/download").lastSent(); got != textAdminOnly {
		t.Fatalf("command = %q", got)
	}
	c := h.press(userID, "\f"+CallbackClearConfirm)
	if len(c.responses) != 1 || c.responses[0] != textNoRights {
		t.Fatalf("callback = %q", c.responses)
	}
}

func TestSetExamThroughMenu(t *testing.T) {
	h := newHarness(t)
	c := h.press(adminID, "\f"+CallbackSetExam)
	if c.lastSent() != dialog.PromptSetExam {
		t.Fatalf("prompt = %q", c.sent)
	}
	if got := h.text(adminID, "01.03.2025 10:00").lastSent(); got != "Дата экзамена сохранена: 01 марта 2025 года в 10:00" {
		t.Fatalf("saved = %q", got)
	}
	at, ok, err := h.svc.ExamTime(context.Background())
	if err != nil || !ok || !at.Equal(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("exam = %v %v %v", at, ok, err)
	}
}

func TestInviteAllConfirmAndRemove(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if got := h.text(adminID, LabelInviteAll).lastSent(); got != textExamNotSet {
		t.Fatalf("without exam = %q", got)
	}
	if err := h.svc.SetExam(ctx, adminID, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	if got := h.text(adminID, LabelInviteAll).lastSent(); got != textNoRegistrations {
		t.Fatalf("without registrations = %q", got)
	}
	if _, err := h.svc.Submit(ctx, userID, "Ivan Petrov", "+7999", 1); err != nil {
		t.Fatal(err)
	}

	c := h.press(adminID, "\f"+CallbackInviteAll)
	if len(c.responses) != 1 || c.responses[0] != textInviteStarted {
		t.Fatalf("toast = %q", c.responses)
	}
	if got := c.lastSent(); !strings.Contains(got, "Ivan Petrov (ID:1)") || !strings.HasSuffix(got, textRemovePrompt) {
		t.Fatalf("report = %q", got)
	}
	if !strings.Contains(h.tr.sent[userID], "01 марта 2025 года в 10:00") {
		t.Fatalf("invitation = %q", h.tr.sent[userID])
	}

	stranger := h.press(7, "\f"+CallbackConfirm+"|1")
	if len(stranger.responses) != 1 || stranger.responses[0] != textConfirmDenied {
		t.Fatalf("stranger = %q", stranger.responses)
	}
	owner := h.press(userID, "\f"+CallbackConfirm+"|1")
	if len(owner.responses) != 1 || owner.responses[0] != textConfirmDone {
		t.Fatalf("owner = %q", owner.responses)
	}
	if len(owner.edits) != 1 || !strings.Contains(owner.edits[0], "Статус: Приглашение принято") {
		t.Fatalf("edit = %q", owner.edits)
	}
	reg, _, _ := h.store.RegistrationByID(ctx, 1)
	if reg.Status() != registration.StatusConfirmed {
		t.Fatalf("status = %s", reg.Status())
	}

	rm := h.press(adminID, "\f"+CallbackRemoveConfirm)
	if len(rm.edits) != 1 || rm.edits[0] != "Удалено 1 приглашённых заявок из списка." {
		t.Fatalf("removal edit = %q", rm.edits)
	}
	again := h.press(adminID, "\f"+CallbackRemoveConfirm)
	if len(again.responses) != 1 || again.responses[0] != textNothingPending {
		t.Fatalf("second removal = %q", again.responses)
	}
}

func TestDeleteByIDDialog(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, name := range []string{"Ivan", "Anna"} {
		if _, err := h.svc.Submit(ctx, userID, name, "+7999", 1); err != nil {
			t.Fatal(err)
		}
	}
	h.text(adminID, LabelDeleteByID)
	if got := h.text(adminID, "2, 9, x").lastSent(); got != "Удалены: 2\nНе найдены: 9" {
		t.Fatalf("reply = %q", got)
	}
	h.text(adminID, "/delete")
	if got := h.text(adminID, "abc").lastSent(); got != textNothingDeleted {
		t.Fatalf("reply = %q", got)
	}
}

func TestClearFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.svc.Submit(ctx, userID, "Ivan", "+7999", 1); err != nil {
		t.Fatal(err)
	}
	if got := h.text(adminID, "/clear").lastSent(); got != textClearPrompt {
		t.Fatalf("prompt = %q", got)
	}
	cancel := h.press(adminID, "\f"+CallbackClearCancel)
	if len(cancel.edits) != 1 || cancel.edits[0] != textClearCancelMsg {
		t.Fatalf("cancel edit = %q", cancel.edits)
	}
	done := h.press(adminID, "\f"+CallbackClearConfirm)
	if len(done.edits) != 1 || done.edits[0] != textClearDoneEdit {
		t.Fatalf("confirm edit = %q", done.edits)
	}
	if regs, _ := h.svc.List(ctx); len(regs) != 0 {
		t.Fatalf("registrations left: %d", len(regs))
	}
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	if got := h.text(adminID, LabelDownload).lastSent(); got != textListEmpty {
		t.Fatalf("empty = %q", got)
	}
	if _, err := h.svc.Submit(context.Background(), userID, "Ivan", "+7999", 1); err != nil {
		t.Fatal(err)
	}
	c := h.press(adminID, "\f"+CallbackDownload)
	if !strings.HasPrefix(c.lastSent(), "document:registrations_") {
		t.Fatalf("sent = %q", c.sent)
	}
	if len(c.responses) != 1 || c.responses[0] != textExportStarted {
		t.Fatalf("toast = %q", c.responses)
	}
}

func TestListText(t *testing.T) {
	regs := []registration.Registration{
		{ID: 1, FullName: "Ivan", Phone: "+7999", Attempt: 1, Invited: true},
		{ID: 2, FullName: "Anna", Phone: "+7888", Attempt: 2},
	}
	want := "Список заявок:\n1 | Ivan | +7999 | попытка 1 | приглашён:1\n2 | Anna | +7888 | попытка 2 | приглашён:0"
	if got := listText(regs); got != want {
		t.Fatalf("got %q", got)
	}
}

func TestMessengerDetached(t *testing.T) {
	m := NewMessenger(adminID)
	if err := m.SendInvitation(context.Background(), userID, 1, "hi"); err != ErrDetached {
		t.Fatalf("err = %v", err)
	}
	m.NotifyAdmin(context.Background(), "ignored")
	NewMessenger(0).NotifyAdmin(context.Background(), "ignored")
}

func TestRegistryCoversLabels(t *testing.T) {
	reg := tg.NewRegistry()
	New(Options{Service: exam.New(exam.Options{Invites: invite.New(nil, nil, time.UTC)})}).Register(reg)
	for label, want := range map[string]string{
		LabelRegister:   "/register",
		LabelCancel:     "/cancel",
		LabelAdminMenu:  "/admin",
		LabelInviteByID: "/invite",
		LabelDownload:   "/download",
	} {
		if got, _, ok := reg.LookupCommand(label); !ok || got != want {
			t.Errorf("label %q -> %q, want %q", label, got, want)
		}
	}
	for _, key := range []string{CallbackList, CallbackClearConfirm, CallbackRemoveCancel, CallbackConfirm} {
		if _, ok := reg.GetCallback(key); !ok {
			t.Errorf("callback %q not registered", key)
		}
	}
	for _, cmd := range reg.ListCommands(true) {
		if cmd.Text == "/list" {
			t.Fatal("admin command published in the menu")
		}
	}
}
