// Package store persists registrations, settings, pending-removal sets and
// the audit log. FileStore keeps everything in one JSON document; SQLStore
// keeps it in SQLite or Postgres. Both serialize writes.
package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/exambot/internal/registration"
)

// Store is the record store contract. Lookups of unknown ids report false,
// never an error. Every returned value is a copy the caller may mutate.
type Store interface {
	AddRegistration(ctx context.Context, chatID int64, fullName, phone string, attempt int) (registration.Registration, error)
	ListRegistrations(ctx context.Context) ([]registration.Registration, error)
	RegistrationByID(ctx context.Context, id int64) (registration.Registration, bool, error)
	RegistrationsByIDs(ctx context.Context, ids []int64) ([]registration.Registration, error)

	// MarkInvited reports whether the id exists. Marking twice is harmless.
	MarkInvited(ctx context.Context, id int64) (bool, error)
	// MarkConfirmed records the first acceptance time and reports whether
	// this call recorded it; a repeat or an absent id yields false. It fails
	// with registration.ErrNotInvited when the registration was never invited.
	MarkConfirmed(ctx context.Context, id int64, at time.Time) (bool, error)
	RemoveRegistration(ctx context.Context, id int64) (bool, error)
	// RemoveInvitedOnce deletes every invited registration and stores examAt
	// as the last cleaned exam, in one write. When examAt was already cleaned
	// nothing changes and ran is false.
	RemoveInvitedOnce(ctx context.Context, examAt string) (removed []int64, ran bool, err error)
	// ClearAll deletes every registration and resets the id counter to 1.
	ClearAll(ctx context.Context) error

	Setting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	SetPendingRemoval(ctx context.Context, adminID int64, ids []int64) error
	PendingRemoval(ctx context.Context, adminID int64) ([]int64, error)
	ClearPendingRemoval(ctx context.Context, adminID int64) error

	// AppendAudit stamps the entry and keeps only the newest
	// registration.AuditLimit entries.
	AppendAudit(ctx context.Context, entry registration.AuditEntry) error
	AuditLog(ctx context.Context) ([]registration.AuditEntry, error)

	Close() error
}

func cloneIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return []int64{}
	}
	return append([]int64(nil), ids...)
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	var ids []int64
	for _, p := range strings.Split(s, ",") {
		if id, err := strconv.ParseInt(p, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
