// Package cleanup removes invited registrations once the exam has started.
// Each stored exam time is processed at most once.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/registration"
)

// DefaultInterval is how often Run checks the exam time.
const DefaultInterval = time.Minute

// Store is the part of the record store the cleaner needs.
type Store interface {
	Setting(ctx context.Context, key string) (string, bool, error)
	RemoveInvitedOnce(ctx context.Context, examAt string) ([]int64, bool, error)
	AppendAudit(ctx context.Context, e registration.AuditEntry) error
}

// Notifier tells the administrator about a finished cleanup.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string)
}

// Cleaner runs the post-exam cleanup.
type Cleaner struct {
	store   Store
	notify  Notifier
	loc     *time.Location
	now     func() time.Time
	running atomic.Bool
}

// New builds a Cleaner. notify may be nil; loc is used for the admin notice.
func New(store Store, notify Notifier, loc *time.Location) *Cleaner {
	if loc == nil {
		loc = time.Local
	}
	return &Cleaner{store: store, notify: notify, loc: loc, now: time.Now}
}

// Result describes one cleanup pass.
type Result struct {
	Ran     bool
	Removed []int64
	ExamAt  string
}

// RunOnce removes every invited registration when the exam time has passed
// and was not cleaned up before. A pass that overlaps a running one is skipped.
func (c *Cleaner) RunOnce(ctx context.Context) (Result, error) {
	if !c.running.CompareAndSwap(false, true) {
		logger.Debug(ctx, "cleanup", "skip.busy")
		return Result{}, nil
	}
	defer c.running.Store(false)

	examValue, ok, err := c.store.Setting(ctx, registration.SettingExamDatetime)
	if err != nil || !ok {
		return Result{}, err
	}
	last, _, err := c.store.Setting(ctx, registration.SettingLastCleanupExam)
	if err != nil {
		return Result{}, err
	}
	if last == examValue {
		return Result{}, nil
	}
	examAt, err := registration.DecodeExamTime(examValue)
	if err != nil {
		logger.Warn(ctx, "cleanup", "exam.invalid", slog.String("exam_at", examValue), logger.Err(err))
		return Result{}, nil
	}
	if c.now().Before(examAt) {
		return Result{}, nil
	}

	removed, ran, err := c.store.RemoveInvitedOnce(ctx, examValue)
	if err != nil {
		return Result{}, fmt.Errorf("remove invited: %w", err)
	}
	if !ran {
		return Result{}, nil
	}
	entry := registration.AuditEntry{
		Actor:  registration.ActorSystem,
		Action: registration.ActionAutoCleanup,
		IDs:    removed,
		Count:  len(removed),
		ExamAt: examValue,
	}
	if err := c.store.AppendAudit(ctx, entry); err != nil {
		logger.Error(ctx, "cleanup", "audit.fail", logger.Err(err))
	}

	logger.Info(ctx, "cleanup", "done",
		slog.Int("removed", len(removed)),
		slog.String("exam_at", examValue),
	)
	if c.notify != nil {
		c.notify.NotifyAdmin(ctx, fmt.Sprintf("Авто-очистка: удалено %d приглашённых заявок по дате %s",
			len(removed), invite.FormatExamTime(examAt, c.loc)))
	}
	return Result{Ran: true, Removed: removed, ExamAt: examValue}, nil
}

// Run executes a pass immediately and then every interval until ctx is done.
// Errors are logged; the loop keeps going.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c.runLogged(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runLogged(ctx)
		}
	}
}

func (c *Cleaner) runLogged(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		logger.Error(ctx, "cleanup", "run.fail", logger.Err(err))
	}
}
