package registration

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Setting keys persisted in the record store.
const (
	SettingExamDatetime    = "exam_datetime"
	SettingLastCleanupExam = "last_cleanup_exam"
)

// AuditLimit caps the audit log; the oldest entries are evicted first.
const AuditLimit = 500

// ActorSystem marks entries produced by scheduled jobs.
const ActorSystem = "system"

// Audit actions.
const (
	ActionSetExam       = "set_exam"
	ActionInviteAll     = "invite_all"
	ActionInviteByID    = "invite_by_id"
	ActionDeleteByID    = "delete_by_id"
	ActionClearAll      = "clear_all"
	ActionRemoveInvited = "remove_invited"
	ActionDownloadList  = "download_list_txt"
	ActionAutoCleanup   = "auto_cleanup"
)

// AuditEntry is an append-only record of an administrative action.
type AuditEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"when"`
	Actor   string    `json:"adminId"`
	Action  string    `json:"action"`
	IDs     []int64   `json:"ids,omitempty"`
	Missing []int64   `json:"notFound,omitempty"`
	Count   int       `json:"count,omitempty"`
	ExamAt  string    `json:"examDatetime,omitempty"`
}

// AdminActor formats the actor field for an administrator identity.
func AdminActor(adminID int64) string {
	return "admin:" + strconv.FormatInt(adminID, 10)
}

// NewAuditEntry builds an entry stamped with a fresh id and time.
func NewAuditEntry(actor, action string, now time.Time) AuditEntry {
	return AuditEntry{
		ID:     uuid.NewString(),
		At:     now.UTC(),
		Actor:  actor,
		Action: action,
	}
}

// Stamp fills in ID and At when the caller left them empty.
func (e *AuditEntry) Stamp(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = now.UTC()
	}
}

// Clone returns a deep copy of the entry.
func (e AuditEntry) Clone() AuditEntry {
	e.IDs = append([]int64(nil), e.IDs...)
	e.Missing = append([]int64(nil), e.Missing...)
	return e
}

// UnmarshalJSON also accepts a bare numeric adminId, the shape older data
// files used before actors were prefixed.
func (e *AuditEntry) UnmarshalJSON(data []byte) error {
	type plain AuditEntry
	aux := struct {
		*plain
		Actor json.RawMessage `json:"adminId"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := bytes.TrimSpace(aux.Actor)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		e.Actor = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &e.Actor)
	default:
		id, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return err
		}
		e.Actor = AdminActor(id)
	}
	return nil
}
