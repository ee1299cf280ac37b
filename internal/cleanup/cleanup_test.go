package cleanup

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/exambot/internal/registration"
	"github.com/m3rciful/exambot/internal/store"
)

type notices struct {
	mu    sync.Mutex
	texts []string
}

func (n *notices) NotifyAdmin(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func seed(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenFile(ctx, filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{"Ivan", "Anna", "Oleg"} {
		if _, err := st.AddRegistration(ctx, int64(100+i), name, "+7999", 1); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range []int64{1, 3} {
		if _, err := st.MarkInvited(ctx, id); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestRunOnceBeforeExamIsNoop(t *testing.T) {
	ctx := context.Background()
	st := seed(t)
	c := New(st, nil, time.UTC)

	res, err := c.RunOnce(ctx)
	if err != nil || res.Ran {
		t.Fatalf("without exam: %+v %v", res, err)
	}

	exam := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	if err := st.SetSetting(ctx, registration.SettingExamDatetime, registration.EncodeExamTime(exam)); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return exam.Add(-time.Minute) }
	if res, err := c.RunOnce(ctx); err != nil || res.Ran {
		t.Fatalf("before exam: %+v %v", res, err)
	}
	if regs, _ := st.ListRegistrations(ctx); len(regs) != 3 {
		t.Fatalf("registrations = %d", len(regs))
	}
}

func TestRunOnceRemovesInvitedOncePerExam(t *testing.T) {
	ctx := context.Background()
	st := seed(t)
	n := &notices{}
	c := New(st, n, time.FixedZone("MSK", 3*60*60))

	exam := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	if err := st.SetSetting(ctx, registration.SettingExamDatetime, registration.EncodeExamTime(exam)); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return exam }

	res, err := c.RunOnce(ctx)
	if err != nil || !res.Ran {
		t.Fatalf("first pass: %+v %v", res, err)
	}
	if !slices.Equal(res.Removed, []int64{1, 3}) {
		t.Fatalf("removed = %v", res.Removed)
	}
	regs, _ := st.ListRegistrations(ctx)
	if len(regs) != 1 || regs[0].ID != 2 {
		t.Fatalf("remaining = %+v", regs)
	}
	if len(n.texts) != 1 || !strings.Contains(n.texts[0], "удалено 2") || !strings.Contains(n.texts[0], "01 марта 2025 года в 10:00") {
		t.Fatalf("notices = %q", n.texts)
	}

	if _, err := st.MarkInvited(ctx, 2); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return exam.Add(time.Hour) }
	if res, err := c.RunOnce(ctx); err != nil || res.Ran {
		t.Fatalf("second pass for the same exam: %+v %v", res, err)
	}

	next := exam.Add(24 * time.Hour)
	if err := st.SetSetting(ctx, registration.SettingExamDatetime, registration.EncodeExamTime(next)); err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return next.Add(time.Minute) }
	if res, err := c.RunOnce(ctx); err != nil || !slices.Equal(res.Removed, []int64{2}) {
		t.Fatalf("new exam pass: %+v %v", res, err)
	}

	log, _ := st.AuditLog(ctx)
	if len(log) != 2 || log[0].Actor != registration.ActorSystem || log[0].Action != registration.ActionAutoCleanup || log[0].Count != 2 {
		t.Fatalf("audit = %+v", log)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	st := seed(t)
	c := New(st, nil, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type flakyStore struct {
	store.Store
	fail bool
}

func (f *flakyStore) RemoveInvitedOnce(ctx context.Context, examAt string) ([]int64, bool, error) {
	if f.fail {
		f.fail = false
		return nil, false, errors.New("disk full")
	}
	return f.Store.RemoveInvitedOnce(ctx, examAt)
}

func TestFailedPassLeavesNoMarker(t *testing.T) {
	ctx := context.Background()
	st := seed(t)
	exam := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	examValue := registration.EncodeExamTime(exam)
	if err := st.SetSetting(ctx, registration.SettingExamDatetime, examValue); err != nil {
		t.Fatal(err)
	}
	flaky := &flakyStore{Store: st, fail: true}
	c := New(flaky, nil, time.UTC)
	c.now = func() time.Time { return exam }

	if _, err := c.RunOnce(ctx); err == nil {
		t.Fatal("expected the failed write to surface")
	}
	if regs, _ := st.ListRegistrations(ctx); len(regs) != 3 {
		t.Fatalf("registrations after failure = %d", len(regs))
	}
	if _, ok, _ := st.Setting(ctx, registration.SettingLastCleanupExam); ok {
		t.Fatal("marker stored by a failed pass")
	}

	res, err := c.RunOnce(ctx)
	if err != nil || !slices.Equal(res.Removed, []int64{1, 3}) {
		t.Fatalf("retry: %+v %v", res, err)
	}
	if v, _, _ := st.Setting(ctx, registration.SettingLastCleanupExam); v != examValue {
		t.Fatalf("marker = %q", v)
	}
}
