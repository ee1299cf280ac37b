package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/core/telegram/sender"
)

// ErrDetached is returned by sends attempted before Attach.
var ErrDetached = errors.New("messenger is not attached to a bot")

// Messenger sends messages that are not replies to an update: invitations
// and administrator notices. It becomes usable once the bot is running.
type Messenger struct {
	adminID int64
	bot     atomic.Pointer[tele.Bot]
	disp    atomic.Pointer[sender.Dispatcher]
}

// NewMessenger returns a detached messenger. adminID 0 drops admin notices.
func NewMessenger(adminID int64) *Messenger {
	return &Messenger{adminID: adminID}
}

// Attach binds the running bot and its outbound dispatcher. d may be nil.
func (m *Messenger) Attach(b *tele.Bot, d *sender.Dispatcher) {
	m.bot.Store(b)
	m.disp.Store(d)
}

// Detach stops further sends.
func (m *Messenger) Detach() {
	m.bot.Store(nil)
	m.disp.Store(nil)
}

// SendInvitation delivers text with the confirmation button and waits for
// Telegram to accept it. It is not retried.
func (m *Messenger) SendInvitation(ctx context.Context, chatID, registrationID int64, text string) error {
	b := m.bot.Load()
	if b == nil {
		return ErrDetached
	}
	run := func() error {
		_, err := b.Send(tele.ChatID(chatID), text, confirmButton(registrationID))
		return err
	}
	if d := m.disp.Load(); d != nil {
		return d.Do(ctx, "send.invitation", "sendMessage", run)
	}
	return run()
}

// NotifyAdmin queues a notice to the administrator. Failures are logged only.
func (m *Messenger) NotifyAdmin(ctx context.Context, text string) {
	if m.adminID == 0 {
		return
	}
	b := m.bot.Load()
	if b == nil {
		logger.Warn(ctx, "bot", "notify.detached")
		return
	}
	run := func() error {
		_, err := b.Send(tele.ChatID(m.adminID), text)
		return err
	}
	d := m.disp.Load()
	if d == nil {
		if err := run(); err != nil {
			logger.Warn(ctx, "bot", "notify.fail", slog.String("err", sender.SanitizeError(err)))
		}
		return
	}
	if err := d.Enqueue(ctx, "notify.admin", "sendMessage", run); err != nil {
		logger.Warn(ctx, "bot", "notify.fail", logger.Err(err))
	}
}
