package bot

import (
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/exambot/core/telegram/helpers"
	"github.com/m3rciful/exambot/internal/dialog"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/registration"
)

func (h *Handlers) start(c tele.Context) error {
	h.dialog.Cancel(tghelpers.ChatID(c))
	if h.isAdmin(tghelpers.SenderID(c)) {
		return tghelpers.SendText(c, textAdminPanel, adminKeyboard())
	}
	return tghelpers.SendText(c, textGreeting, userKeyboard())
}

func (h *Handlers) register(c tele.Context) error {
	if h.isAdmin(tghelpers.SenderID(c)) {
		return tghelpers.SendText(c, textAdminNoSubmit, nil)
	}
	return h.reply(c, h.dialog.Begin(tghelpers.ChatID(c), dialog.FullName{}))
}

func (h *Handlers) cancel(c tele.Context) error {
	h.dialog.Cancel(tghelpers.ChatID(c))
	if h.isAdmin(tghelpers.SenderID(c)) {
		return tghelpers.SendText(c, textCancelled, adminKeyboard())
	}
	return tghelpers.SendText(c, textCancelled, userKeyboard())
}

// confirm handles the registrant's "Подтвердить получение" button.
func (h *Handlers) confirm(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return callbacks.Respond(c, textConfirmMissing)
	}

	conf, err := h.svc.Confirm(ctx, tghelpers.SenderID(c), id)
	switch {
	case errors.Is(err, registration.ErrNotFound):
		return callbacks.Respond(c, textConfirmMissing)
	case errors.Is(err, registration.ErrNotRecipient):
		return callbacks.Respond(c, textConfirmDenied)
	case errors.Is(err, registration.ErrNotInvited):
		return callbacks.Respond(c, textConfirmEarly)
	case err != nil:
		logger.Error(ctx, "bot", "confirm.fail", slog.Int64("registration_id", id), logger.Err(err))
		_ = callbacks.Respond(c, textConfirmFailed)
		return err
	}

	_ = callbacks.Respond(c, textConfirmDone)
	when := conf.ExamText
	if when == "" {
		when = textExamUnknown
	}
	tghelpers.EditText(c, invite.AcceptedText(conf.Registration.FullName, when))
	return nil
}
