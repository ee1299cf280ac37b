// Package exam implements the administrator and registrant operations on top
// of the record store: intake, listing, scheduling, invitations, removals,
// export and confirmation. Every administrative change is audited.
package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/internal/export"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/registration"
	"github.com/m3rciful/exambot/internal/store"
)

var (
	// ErrExamNotSet is returned by invitation operations before an exam time is stored.
	ErrExamNotSet = errors.New("exam time is not set")
	// ErrNoRegistrations is returned when a bulk operation has nothing to work on.
	ErrNoRegistrations = errors.New("no registrations")
)

// Notifier delivers service notices to the administrator. Delivery is best effort.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string)
}

// Options wires a Service.
type Options struct {
	Store    store.Store
	Invites  *invite.Dispatcher
	Notifier Notifier
	Now      func() time.Time
}

// Service is safe for concurrent use; consistency comes from the store.
type Service struct {
	store   store.Store
	invites *invite.Dispatcher
	notify  Notifier
	now     func() time.Time
}

// New builds a Service. A nil Notifier drops admin notices.
func New(opts Options) *Service {
	s := &Service{
		store:   opts.Store,
		invites: opts.Invites,
		notify:  opts.Notifier,
		now:     opts.Now,
	}
	if s.notify == nil {
		s.notify = nopNotifier{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type nopNotifier struct{}

func (nopNotifier) NotifyAdmin(context.Context, string) {}

// Location is the time zone exam times are entered and shown in.
func (s *Service) Location() *time.Location { return s.invites.Location() }

// Describe renders an exam time for messages.
func (s *Service) Describe(t time.Time) string {
	return invite.FormatExamTime(t, s.Location())
}

// Submit stores a new registration and tells the administrator about it.
func (s *Service) Submit(ctx context.Context, chatID int64, fullName, phone string, attempt int) (registration.Registration, error) {
	reg, err := s.store.AddRegistration(ctx, chatID, fullName, phone, attempt)
	if err != nil {
		return registration.Registration{}, err
	}
	logger.Info(ctx, "exam", "registration.created",
		slog.Int64("registration_id", reg.ID),
		slog.Int64("chat_id", reg.ChatID),
	)
	s.notify.NotifyAdmin(ctx, fmt.Sprintf("Новая заявка #%d:\nФИО: %s\nТелефон: %s\nПопытка: %d",
		reg.ID, reg.FullName, reg.Phone, reg.Attempt))
	return reg, nil
}

// List returns all registrations ordered by id.
func (s *Service) List(ctx context.Context) ([]registration.Registration, error) {
	return s.store.ListRegistrations(ctx)
}

// SetExam stores the exam time. Changing it re-arms the scheduled cleanup.
func (s *Service) SetExam(ctx context.Context, adminID int64, at time.Time) error {
	value := registration.EncodeExamTime(at)
	if err := s.store.SetSetting(ctx, registration.SettingExamDatetime, value); err != nil {
		return err
	}
	logger.Info(ctx, "exam", "exam.set", slog.String("exam_at", value))
	s.audit(ctx, registration.AuditEntry{
		Actor:  registration.AdminActor(adminID),
		Action: registration.ActionSetExam,
		ExamAt: value,
	})
	return nil
}

// ExamTime returns the stored exam time. An unparsable value counts as unset.
func (s *Service) ExamTime(ctx context.Context) (time.Time, bool, error) {
	value, ok, err := s.store.Setting(ctx, registration.SettingExamDatetime)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	at, err := registration.DecodeExamTime(value)
	if err != nil {
		logger.Warn(ctx, "exam", "exam.invalid", slog.String("exam_at", value), logger.Err(err))
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (s *Service) requireExam(ctx context.Context) (time.Time, error) {
	at, ok, err := s.ExamTime(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, ErrExamNotSet
	}
	return at, nil
}

// InviteAll invites every registration, already invited ones included.
// When at least one invitation went out, the delivered ids become the
// administrator's pending-removal set.
func (s *Service) InviteAll(ctx context.Context, adminID int64) (invite.Report, error) {
	at, err := s.requireExam(ctx)
	if err != nil {
		return invite.Report{}, err
	}
	regs, err := s.store.ListRegistrations(ctx)
	if err != nil {
		return invite.Report{}, err
	}
	if len(regs) == 0 {
		return invite.Report{}, ErrNoRegistrations
	}

	rep := s.invites.SendAll(ctx, regs, at)
	if len(rep.Sent) > 0 {
		if err := s.store.SetPendingRemoval(ctx, adminID, rep.SentIDs()); err != nil {
			return rep, fmt.Errorf("store pending removal: %w", err)
		}
	}
	s.audit(ctx, registration.AuditEntry{
		Actor:  registration.AdminActor(adminID),
		Action: registration.ActionInviteAll,
		IDs:    rep.SentIDs(),
		Count:  len(rep.Sent),
		ExamAt: registration.EncodeExamTime(at),
	})
	return rep, nil
}

// InviteByIDs invites the listed registrations. Unknown ids come back in missing.
func (s *Service) InviteByIDs(ctx context.Context, adminID int64, ids []int64) (rep invite.Report, missing []int64, err error) {
	at, err := s.requireExam(ctx)
	if err != nil {
		return invite.Report{}, nil, err
	}
	regs, err := s.store.RegistrationsByIDs(ctx, ids)
	if err != nil {
		return invite.Report{}, nil, err
	}
	missing = missingIDs(ids, regs)

	rep = s.invites.SendAll(ctx, regs, at)
	s.audit(ctx, registration.AuditEntry{
		Actor:   registration.AdminActor(adminID),
		Action:  registration.ActionInviteByID,
		IDs:     rep.SentIDs(),
		Missing: missing,
		Count:   len(rep.Sent),
		ExamAt:  registration.EncodeExamTime(at),
	})
	return rep, missing, nil
}

// DeleteByIDs removes the listed registrations one by one. An id that was
// already gone, or is listed twice, is reported in missing.
func (s *Service) DeleteByIDs(ctx context.Context, adminID int64, ids []int64) (removed, missing []int64, err error) {
	for _, id := range ids {
		ok, err := s.store.RemoveRegistration(ctx, id)
		if err != nil {
			return removed, missing, err
		}
		if ok {
			removed = append(removed, id)
		} else {
			missing = append(missing, id)
		}
	}
	logger.Info(ctx, "exam", "delete.done",
		slog.String("removed", logger.SummarizeIDs(removed, 20)),
		slog.String("missing", logger.SummarizeIDs(missing, 20)),
	)
	s.audit(ctx, registration.AuditEntry{
		Actor:   registration.AdminActor(adminID),
		Action:  registration.ActionDeleteByID,
		IDs:     removed,
		Missing: missing,
		Count:   len(removed),
	})
	return removed, missing, nil
}

// ClearAll deletes every registration and resets the id counter.
func (s *Service) ClearAll(ctx context.Context, adminID int64) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "exam", "clear.done")
	s.audit(ctx, registration.AuditEntry{
		Actor:  registration.AdminActor(adminID),
		Action: registration.ActionClearAll,
	})
	return nil
}

// ConfirmRemoval removes the administrator's pending set and clears it.
// ok is false when there was nothing pending.
func (s *Service) ConfirmRemoval(ctx context.Context, adminID int64) (removed []int64, ok bool, err error) {
	pending, err := s.store.PendingRemoval(ctx, adminID)
	if err != nil {
		return nil, false, err
	}
	if len(pending) == 0 {
		return nil, false, nil
	}
	for _, id := range pending {
		gone, err := s.store.RemoveRegistration(ctx, id)
		if err != nil {
			logger.Warn(ctx, "exam", "removal.fail", slog.Int64("registration_id", id), logger.Err(err))
			continue
		}
		if gone {
			removed = append(removed, id)
		}
	}
	if err := s.store.ClearPendingRemoval(ctx, adminID); err != nil {
		return removed, true, err
	}
	s.audit(ctx, registration.AuditEntry{
		Actor:  registration.AdminActor(adminID),
		Action: registration.ActionRemoveInvited,
		IDs:    pending,
		Count:  len(removed),
	})
	return removed, true, nil
}

// CancelRemoval drops the administrator's pending set; registrations stay.
func (s *Service) CancelRemoval(ctx context.Context, adminID int64) error {
	return s.store.ClearPendingRemoval(ctx, adminID)
}

// Export renders the registration list and hands it to deliver. The export
// is audited only after deliver succeeded.
func (s *Service) Export(ctx context.Context, adminID int64, deliver func(name string, data []byte) error) error {
	regs, err := s.store.ListRegistrations(ctx)
	if err != nil {
		return err
	}
	if len(regs) == 0 {
		return ErrNoRegistrations
	}
	if err := deliver(export.FileName(s.now()), []byte(export.Text(regs))); err != nil {
		return fmt.Errorf("deliver export: %w", err)
	}
	s.audit(ctx, registration.AuditEntry{
		Actor:  registration.AdminActor(adminID),
		Action: registration.ActionDownloadList,
		Count:  len(regs),
	})
	return nil
}

// Confirmation is the result of a registrant acknowledging an invitation.
type Confirmation struct {
	Registration registration.Registration
	// ExamText is the rendered exam time, or empty when none is stored.
	ExamText string
}

// Confirm records the registrant's acknowledgment. Only the chat that owns
// the registration may confirm; repeating a confirmation is harmless.
func (s *Service) Confirm(ctx context.Context, actorChatID, id int64) (Confirmation, error) {
	reg, ok, err := s.store.RegistrationByID(ctx, id)
	if err != nil {
		return Confirmation{}, err
	}
	if !ok {
		return Confirmation{}, registration.ErrNotFound
	}
	if err := reg.Authorize(actorChatID); err != nil {
		logger.Warn(ctx, "exam", "confirm.denied",
			slog.Int64("registration_id", id),
			slog.Int64("user_id", actorChatID),
		)
		return Confirmation{}, err
	}
	first, err := s.store.MarkConfirmed(ctx, id, s.now())
	if err != nil {
		return Confirmation{}, err
	}
	if first {
		logger.Info(ctx, "exam", "confirm.done", slog.Int64("registration_id", id))
		s.notify.NotifyAdmin(ctx, fmt.Sprintf("Пользователь подтвердил приглашение. Заявка #%d", id))
	}

	out := Confirmation{Registration: reg}
	if at, ok, err := s.ExamTime(ctx); err == nil && ok {
		out.ExamText = s.Describe(at)
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, e registration.AuditEntry) {
	if err := s.store.AppendAudit(ctx, e); err != nil {
		logger.Error(ctx, "exam", "audit.fail", slog.String("action", e.Action), logger.Err(err))
	}
}

func missingIDs(want []int64, found []registration.Registration) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, r := range found {
		have[r.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
