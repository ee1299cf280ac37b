package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/internal/registration"
)

const registrationColumns = `id, chat_id, full_name, phone, attempt, submitted_at,
	invited, invitation_accepted, invitation_accepted_at`

// SQLStore implements Store on SQLite or Postgres through sqlx. Each mutation
// runs in its own transaction. Timestamps are stored as unix milliseconds.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQL wraps an open, migrated database handle. The store owns db and
// closes it in Close.
func NewSQL(db *sqlx.DB) *SQLStore {
	logger.Info(context.Background(), "store", "open", slog.String("driver", db.DriverName()))
	return &SQLStore{db: db, now: time.Now}
}

type registrationRow struct {
	ID                   int64         `db:"id"`
	ChatID               int64         `db:"chat_id"`
	FullName             string        `db:"full_name"`
	Phone                string        `db:"phone"`
	Attempt              int           `db:"attempt"`
	SubmittedAt          int64         `db:"submitted_at"`
	Invited              bool          `db:"invited"`
	InvitationAccepted   bool          `db:"invitation_accepted"`
	InvitationAcceptedAt sql.NullInt64 `db:"invitation_accepted_at"`
}

func (r registrationRow) toDomain() registration.Registration {
	reg := registration.Registration{
		ID:                 r.ID,
		ChatID:             r.ChatID,
		FullName:           r.FullName,
		Phone:              r.Phone,
		Attempt:            r.Attempt,
		SubmittedAt:        fromMillis(r.SubmittedAt),
		Invited:            r.Invited,
		InvitationAccepted: r.InvitationAccepted,
	}
	if r.InvitationAcceptedAt.Valid {
		at := fromMillis(r.InvitationAcceptedAt.Int64)
		reg.InvitationAcceptedAt = &at
	}
	return reg
}

type auditRow struct {
	ID      string `db:"id"`
	At      int64  `db:"at"`
	Actor   string `db:"actor"`
	Action  string `db:"action"`
	IDs     string `db:"ids"`
	Missing string `db:"missing"`
	Count   int    `db:"count"`
	ExamAt  string `db:"exam_at"`
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func (s *SQLStore) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}

func (s *SQLStore) q(query string) string { return s.db.Rebind(query) }

func (s *SQLStore) AddRegistration(ctx context.Context, chatID int64, fullName, phone string, attempt int) (registration.Registration, error) {
	reg, err := registration.New(chatID, fullName, phone, attempt, s.now())
	if err != nil {
		return registration.Registration{}, err
	}
	err = s.inTx(ctx, "add registration", func(tx *sqlx.Tx) error {
		var next int64
		if err := tx.GetContext(ctx, &next, s.q(
			`UPDATE sequences SET next_value = next_value + 1 WHERE name = 'registrations' RETURNING next_value`,
		)); err != nil {
			return err
		}
		reg.ID = next - 1
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO registrations (`+registrationColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			reg.ID, reg.ChatID, reg.FullName, reg.Phone, reg.Attempt, toMillis(reg.SubmittedAt),
			false, false, nil,
		)
		return err
	})
	if err != nil {
		return registration.Registration{}, err
	}
	reg.SubmittedAt = fromMillis(toMillis(reg.SubmittedAt))
	return reg, nil
}

func (s *SQLStore) ListRegistrations(ctx context.Context) ([]registration.Registration, error) {
	var rows []registrationRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+registrationColumns+` FROM registrations ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return toDomainList(rows), nil
}

func (s *SQLStore) RegistrationByID(ctx context.Context, id int64) (registration.Registration, bool, error) {
	var row registrationRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return registration.Registration{}, false, nil
	case err != nil:
		return registration.Registration{}, false, fmt.Errorf("get registration %d: %w", id, err)
	}
	return row.toDomain(), true, nil
}

func (s *SQLStore) RegistrationsByIDs(ctx context.Context, ids []int64) ([]registration.Registration, error) {
	if len(ids) == 0 {
		return []registration.Registration{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+registrationColumns+` FROM registrations WHERE id IN (?) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get registrations: %w", err)
	}
	var rows []registrationRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("get registrations: %w", err)
	}
	return toDomainList(rows), nil
}

func (s *SQLStore) MarkInvited(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE registrations SET invited = ? WHERE id = ?`), true, id)
	if err != nil {
		return false, fmt.Errorf("mark invited %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark invited %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) MarkConfirmed(ctx context.Context, id int64, at time.Time) (bool, error) {
	var changed bool
	err := s.inTx(ctx, "mark confirmed", func(tx *sqlx.Tx) error {
		var row registrationRow
		err := tx.GetContext(ctx, &row, s.q(`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`), id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		reg := row.toDomain()
		first, err := reg.Confirm(at)
		if err != nil || !first {
			return err
		}
		// conditional so a concurrent transaction that confirmed first wins
		res, err := tx.ExecContext(ctx, s.q(
			`UPDATE registrations SET invitation_accepted = ?, invitation_accepted_at = ? WHERE id = ? AND invitation_accepted = ?`),
			true, toMillis(*reg.InvitationAcceptedAt), id, false,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

func (s *SQLStore) RemoveRegistration(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM registrations WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("remove registration %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove registration %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLStore) RemoveInvitedOnce(ctx context.Context, examAt string) ([]int64, bool, error) {
	removed := []int64{}
	var ran bool
	err := s.inTx(ctx, "remove invited", func(tx *sqlx.Tx) error {
		var last string
		err := tx.GetContext(ctx, &last, s.q(`SELECT value FROM settings WHERE key = ?`), registration.SettingLastCleanupExam)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err == nil && last == examAt {
			return nil
		}
		if err := tx.SelectContext(ctx, &removed, s.q(`SELECT id FROM registrations WHERE invited = ? ORDER BY id`), true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM registrations WHERE invited = ?`), true); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
			registration.SettingLastCleanupExam, examAt,
		); err != nil {
			return err
		}
		ran = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return removed, ran, nil
}

func (s *SQLStore) ClearAll(ctx context.Context) error {
	return s.inTx(ctx, "clear registrations", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM registrations`); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE sequences SET next_value = 1 WHERE name = 'registrations'`)
		return err
	})
}

func (s *SQLStore) Setting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.q(`SELECT value FROM settings WHERE key = ?`), key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`), key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) SetPendingRemoval(ctx context.Context, adminID int64, ids []int64) error {
	return s.inTx(ctx, "set pending removal", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM pending_removals WHERE admin_id = ?`), adminID); err != nil {
			return err
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, s.q(
				`INSERT INTO pending_removals (admin_id, position, registration_id) VALUES (?, ?, ?)`),
				adminID, i, id,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) PendingRemoval(ctx context.Context, adminID int64) ([]int64, error) {
	ids := []int64{}
	if err := s.db.SelectContext(ctx, &ids, s.q(
		`SELECT registration_id FROM pending_removals WHERE admin_id = ? ORDER BY position`), adminID,
	); err != nil {
		return nil, fmt.Errorf("get pending removal: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) ClearPendingRemoval(ctx context.Context, adminID int64) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM pending_removals WHERE admin_id = ?`), adminID); err != nil {
		return fmt.Errorf("clear pending removal: %w", err)
	}
	return nil
}

func (s *SQLStore) AppendAudit(ctx context.Context, entry registration.AuditEntry) error {
	entry.Stamp(s.now())
	return s.inTx(ctx, "append audit", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(
			`INSERT INTO audit_log (id, at, actor, action, ids, missing, count, exam_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			entry.ID, toMillis(entry.At), entry.Actor, entry.Action,
			joinIDs(entry.IDs), joinIDs(entry.Missing), entry.Count, entry.ExamAt,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.q(
			`DELETE FROM audit_log WHERE seq NOT IN (
			   SELECT seq FROM (SELECT seq FROM audit_log ORDER BY seq DESC LIMIT ?) AS recent
			 )`), registration.AuditLimit)
		return err
	})
}

func (s *SQLStore) AuditLog(ctx context.Context) ([]registration.AuditEntry, error) {
	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, at, actor, action, ids, missing, count, exam_at FROM audit_log ORDER BY seq`,
	); err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	out := make([]registration.AuditEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, registration.AuditEntry{
			ID:      r.ID,
			At:      fromMillis(r.At),
			Actor:   r.Actor,
			Action:  r.Action,
			IDs:     splitIDs(r.IDs),
			Missing: splitIDs(r.Missing),
			Count:   r.Count,
			ExamAt:  r.ExamAt,
		})
	}
	return out, nil
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func toDomainList(rows []registrationRow) []registration.Registration {
	out := make([]registration.Registration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}
