package bot

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/exambot/core/telegram/helpers"
	"github.com/m3rciful/exambot/internal/dialog"
	"github.com/m3rciful/exambot/internal/exam"
	"github.com/m3rciful/exambot/internal/export"
	"github.com/m3rciful/exambot/internal/invite"
	"github.com/m3rciful/exambot/internal/registration"
)

func (h *Handlers) menu(c tele.Context) error {
	return tghelpers.SendText(c, textAdminMenu, adminMenu())
}

func (h *Handlers) list(c tele.Context) error {
	regs, err := h.svc.List(tghelpers.BuildContext(c))
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}
	if len(regs) == 0 {
		return tghelpers.SendText(c, textListEmpty, adminKeyboard())
	}
	return send(c, listText(regs), adminKeyboard())
}

func (h *Handlers) setExam(c tele.Context) error {
	return h.reply(c, h.dialog.Begin(tghelpers.ChatID(c), dialog.SetExam{}))
}

func (h *Handlers) inviteByID(c tele.Context) error {
	return h.reply(c, h.dialog.Begin(tghelpers.ChatID(c), dialog.InviteByID{}))
}

func (h *Handlers) deleteByID(c tele.Context) error {
	return h.reply(c, h.dialog.Begin(tghelpers.ChatID(c), dialog.DeleteByID{}))
}

func (h *Handlers) inviteAll(c tele.Context) error {
	toast(c, textInviteStarted)
	rep, err := h.svc.InviteAll(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	switch {
	case errors.Is(err, exam.ErrExamNotSet):
		return tghelpers.SendText(c, textExamNotSet, adminKeyboard())
	case errors.Is(err, exam.ErrNoRegistrations):
		return tghelpers.SendText(c, textNoRegistrations, adminKeyboard())
	case err != nil && len(rep.Sent) == 0:
		_ = tghelpers.SendText(c, textInvitesFailed, adminKeyboard())
		return err
	case err != nil:
		// Invitations went out but the pending set was not stored; no removal prompt.
		_ = send(c, textInvitesSent+sentLines(rep), adminKeyboard())
		return err
	}
	if len(rep.Sent) == 0 {
		return tghelpers.SendText(c, textInvitesFailed, adminKeyboard())
	}
	return send(c, textInvitesSent+sentLines(rep)+textRemovePrompt, removalPrompt())
}

func (h *Handlers) clear(c tele.Context) error {
	return tghelpers.SendText(c, textClearPrompt, clearPrompt())
}

func (h *Handlers) clearConfirm(c tele.Context) error {
	if err := h.svc.ClearAll(tghelpers.BuildContext(c), tghelpers.SenderID(c)); err != nil {
		_ = callbacks.Respond(c, textClearFailed)
		return err
	}
	_ = callbacks.Respond(c, textClearDone)
	tghelpers.EditText(c, textClearDoneEdit)
	return nil
}

func (h *Handlers) clearCancel(c tele.Context) error {
	_ = callbacks.Respond(c, textClearCancelled)
	tghelpers.EditText(c, textClearCancelMsg)
	return nil
}

func (h *Handlers) removeConfirm(c tele.Context) error {
	removed, ok, err := h.svc.ConfirmRemoval(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	if err != nil {
		_ = callbacks.Respond(c, textRemoveFailed)
		return err
	}
	if !ok {
		_ = callbacks.Respond(c, textNothingPending)
		tghelpers.EditText(c, textNothingPendingEdit)
		return nil
	}
	_ = callbacks.Respond(c, fmt.Sprintf(textRemovedToast, len(removed)))
	tghelpers.EditText(c, fmt.Sprintf(textRemovedEdit, len(removed)))
	return nil
}

func (h *Handlers) removeCancel(c tele.Context) error {
	if err := h.svc.CancelRemoval(tghelpers.BuildContext(c), tghelpers.SenderID(c)); err != nil {
		_ = callbacks.Respond(c, textRemoveFailed)
		return err
	}
	_ = callbacks.Respond(c, textRemoveCancelled)
	tghelpers.EditText(c, textRemoveCancelEdit)
	return nil
}

func (h *Handlers) download(c tele.Context) error {
	toast(c, textExportStarted)
	err := h.svc.Export(tghelpers.BuildContext(c), tghelpers.SenderID(c), func(name string, data []byte) error {
		return tghelpers.SendDocument(c, name, export.MIME, data)
	})
	switch {
	case errors.Is(err, exam.ErrNoRegistrations):
		return tghelpers.SendText(c, textListEmpty, adminKeyboard())
	case err != nil:
		_ = tghelpers.SendText(c, textExportFailed, nil)
		return err
	}
	return nil
}

func listText(regs []registration.Registration) string {
	var b strings.Builder
	b.WriteString(textListHeader)
	for i, r := range regs {
		if i > 0 {
			b.WriteByte('\n')
		}
		invited := 0
		if r.Invited {
			invited = 1
		}
		fmt.Fprintf(&b, "%d | %s | %s | попытка %d | приглашён:%d", r.ID, r.FullName, r.Phone, r.Attempt, invited)
	}
	return b.String()
}

func sentLines(rep invite.Report) string {
	lines := make([]string, len(rep.Sent))
	for i, r := range rep.Sent {
		lines[i] = fmt.Sprintf("%s (ID:%d)", r.FullName, r.ID)
	}
	return strings.Join(lines, "\n")
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
