// Package invite delivers exam invitations and marks registrations invited.
// A registration is marked only after its message was delivered, so a failed
// recipient can simply be invited again.
package invite

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/internal/registration"
)

// Transport delivers an invitation text to chatID together with an
// acknowledge button bound to registrationID.
type Transport interface {
	SendInvitation(ctx context.Context, chatID, registrationID int64, text string) error
}

// Marker is the part of the record store the dispatcher writes to.
type Marker interface {
	MarkInvited(ctx context.Context, id int64) (bool, error)
}

// Dispatcher sends invitations one recipient at a time.
type Dispatcher struct {
	transport Transport
	store     Marker
	loc       *time.Location
}

// New returns a dispatcher rendering exam times in loc.
func New(transport Transport, store Marker, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{transport: transport, store: store, loc: loc}
}

// Location is the time zone exam times are rendered in.
func (d *Dispatcher) Location() *time.Location { return d.loc }

// Report is the outcome of a bulk send.
type Report struct {
	Sent   []registration.Registration
	Failed []registration.Registration
}

// SentIDs returns the ids of successfully invited registrations.
func (r Report) SentIDs() []int64 {
	ids := make([]int64, len(r.Sent))
	for i, reg := range r.Sent {
		ids[i] = reg.ID
	}
	return ids
}

// Send delivers one invitation and marks the registration invited.
// On delivery failure nothing is marked.
func (d *Dispatcher) Send(ctx context.Context, reg registration.Registration, examAt time.Time) error {
	text := InvitationText(reg.FullName, FormatExamTime(examAt, d.loc))
	if err := d.transport.SendInvitation(ctx, reg.ChatID, reg.ID, text); err != nil {
		return fmt.Errorf("deliver invitation %d: %w", reg.ID, err)
	}
	found, err := d.store.MarkInvited(ctx, reg.ID)
	if err != nil {
		return fmt.Errorf("mark invited %d: %w", reg.ID, err)
	}
	if !found {
		logger.Warn(ctx, "invite", "mark.missing", slog.Int64("registration_id", reg.ID))
	}
	return nil
}

// SendAll invites every registration in order. A failed recipient is logged
// and skipped; the batch always runs to the end unless ctx is cancelled.
func (d *Dispatcher) SendAll(ctx context.Context, regs []registration.Registration, examAt time.Time) Report {
	start := time.Now()
	var rep Report
	for _, reg := range regs {
		if ctx.Err() != nil {
			rep.Failed = append(rep.Failed, reg)
			continue
		}
		if err := d.Send(ctx, reg, examAt); err != nil {
			logger.Warn(ctx, "invite", "send.fail",
				slog.Int64("registration_id", reg.ID),
				slog.Int64("chat_id", reg.ChatID),
				logger.Err(err),
			)
			rep.Failed = append(rep.Failed, reg)
			continue
		}
		rep.Sent = append(rep.Sent, reg)
	}
	logger.Info(ctx, "invite", "batch.done",
		slog.Int("sent", len(rep.Sent)),
		slog.Int("failed", len(rep.Failed)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return rep
}
