package registration

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewValidates(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		fullName string
		phone    string
		attempt  int
		want     error
	}{
		{"ok", " Ivan Petrov ", " +79990000000 ", 1, nil},
		{"empty name", "  ", "+7999", 1, ErrEmptyFullName},
		{"empty phone", "Ivan", "", 1, ErrEmptyPhone},
		{"zero attempt", "Ivan", "+7999", 0, ErrInvalidAttempt},
		{"negative attempt", "Ivan", "+7999", -2, ErrInvalidAttempt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg, err := New(100, tc.fullName, tc.phone, tc.attempt, now)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if err != nil {
				return
			}
			if reg.FullName != "Ivan Petrov" || reg.Phone != "+79990000000" {
				t.Fatalf("fields not trimmed: %+v", reg)
			}
			if reg.Status() != StatusSubmitted {
				t.Fatalf("status = %s", reg.Status())
			}
		})
	}
}

func TestLifecycleTransitions(t *testing.T) {
	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	reg, err := New(100, "Ivan", "+7999", 1, now)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Confirm(now); !errors.Is(err, ErrNotInvited) {
		t.Fatalf("confirm before invite: err = %v", err)
	}
	if !reg.MarkInvited() {
		t.Fatal("first MarkInvited should change state")
	}
	if reg.MarkInvited() {
		t.Fatal("second MarkInvited should be a no-op")
	}
	if reg.Status() != StatusInvited {
		t.Fatalf("status = %s", reg.Status())
	}

	first := now.Add(time.Hour)
	changed, err := reg.Confirm(first)
	if err != nil || !changed {
		t.Fatalf("confirm: changed=%v err=%v", changed, err)
	}
	changed, err = reg.Confirm(first.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("second confirm: changed=%v err=%v", changed, err)
	}
	if !reg.InvitationAcceptedAt.Equal(first) {
		t.Fatalf("accepted at overwritten: %v", reg.InvitationAcceptedAt)
	}
	if reg.Status() != StatusConfirmed {
		t.Fatalf("status = %s", reg.Status())
	}
}

func TestAuthorize(t *testing.T) {
	reg := Registration{ID: 1, ChatID: 100}
	if err := reg.Authorize(100); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if err := reg.Authorize(200); !errors.Is(err, ErrNotRecipient) {
		t.Fatalf("stranger accepted: %v", err)
	}
}

func TestCloneDetachesPointers(t *testing.T) {
	at := time.Now()
	reg := Registration{ID: 1, Invited: true, InvitationAccepted: true, InvitationAcceptedAt: &at}
	cp := reg.Clone()
	*cp.InvitationAcceptedAt = at.Add(time.Hour)
	if !reg.InvitationAcceptedAt.Equal(at) {
		t.Fatal("clone shares accepted-at pointer")
	}
}

func TestAuditStamp(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	e := AuditEntry{Actor: AdminActor(7), Action: ActionClearAll}
	e.Stamp(now)
	if e.ID == "" || !e.At.Equal(now) {
		t.Fatalf("entry not stamped: %+v", e)
	}
	id := e.ID
	e.Stamp(now.Add(time.Hour))
	if e.ID != id || !e.At.Equal(now) {
		t.Fatal("stamp overwrote existing values")
	}
	if e.Actor != "admin:7" {
		t.Fatalf("actor = %q", e.Actor)
	}
}

func TestAuditEntryLegacyActor(t *testing.T) {
	var entries []AuditEntry
	raw := `[{"when":"2025-03-01T10:00:00.000Z","adminId":12345,"action":"clear_all"},
		{"when":"2025-03-02T10:00:00Z","adminId":"system","action":"auto_cleanup","removedCount":3}]`
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatal(err)
	}
	if entries[0].Actor != "admin:12345" || entries[0].Action != ActionClearAll {
		t.Fatalf("numeric actor: %+v", entries[0])
	}
	if entries[1].Actor != ActorSystem || entries[1].At.Day() != 2 {
		t.Fatalf("string actor: %+v", entries[1])
	}
}
