package invite

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m3rciful/exambot/internal/registration"
)

type sentMessage struct {
	chatID, regID int64
	text          string
}

type fakeTransport struct {
	failFor map[int64]bool
	sent    []sentMessage
}

func (f *fakeTransport) SendInvitation(_ context.Context, chatID, regID int64, text string) error {
	if f.failFor[chatID] {
		return errors.New("Forbidden: bot was blocked by the user")
	}
	f.sent = append(f.sent, sentMessage{chatID, regID, text})
	return nil
}

type fakeMarker struct{ marked map[int64]int }

func (f *fakeMarker) MarkInvited(_ context.Context, id int64) (bool, error) {
	f.marked[id]++
	return true, nil
}

var moscow = time.FixedZone("MSK", 3*60*60)

func TestFormatExamTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	if got := FormatExamTime(at, moscow); got != "01 марта 2025 года в 10:00" {
		t.Fatalf("got %q", got)
	}
	dec := time.Date(2025, 12, 31, 23, 5, 0, 0, moscow)
	if got := FormatExamTime(dec, moscow); got != "31 декабря 2025 года в 23:05" {
		t.Fatalf("got %q", got)
	}
}

func TestSendAllSkipsFailures(t *testing.T) {
	tr := &fakeTransport{failFor: map[int64]bool{200: true}}
	mk := &fakeMarker{marked: map[int64]int{}}
	d := New(tr, mk, moscow)

	regs := []registration.Registration{
		{ID: 1, ChatID: 100, FullName: "Ivan Petrov"},
		{ID: 2, ChatID: 200, FullName: "Anna"},
		{ID: 3, ChatID: 300, FullName: "Oleg"},
	}
	rep := d.SendAll(context.Background(), regs, time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC))

	if got := rep.SentIDs(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("sent = %v", got)
	}
	if len(rep.Failed) != 1 || rep.Failed[0].ID != 2 {
		t.Fatalf("failed = %+v", rep.Failed)
	}
	if mk.marked[2] != 0 || mk.marked[1] != 1 || mk.marked[3] != 1 {
		t.Fatalf("marked = %v", mk.marked)
	}
	first := tr.sent[0]
	if first.chatID != 100 || first.regID != 1 {
		t.Fatalf("first message = %+v", first)
	}
	if !strings.Contains(first.text, "ФИО: Ivan Petrov") || !strings.Contains(first.text, "01 марта 2025 года в 10:00") {
		t.Fatalf("text = %q", first.text)
	}
}

func TestSendAllStopsOnCancel(t *testing.T) {
	tr := &fakeTransport{}
	d := New(tr, &fakeMarker{marked: map[int64]int{}}, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := d.SendAll(ctx, []registration.Registration{{ID: 1, ChatID: 1}}, time.Now())
	if len(rep.Sent) != 0 || len(rep.Failed) != 1 || len(tr.sent) != 0 {
		t.Fatalf("report = %+v", rep)
	}
}
