package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/telegram/keyboard"
	"github.com/m3rciful/exambot/internal/dialog"
)

func adminKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{LabelAdminMenu},
		[]string{LabelList, LabelSetExam},
		[]string{LabelInviteAll, LabelInviteByID},
		[]string{LabelClear, LabelDeleteByID},
		[]string{LabelDownload},
	)
}

func userKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{LabelRegister})
}

func cancelKeyboard() *tele.ReplyMarkup {
	return keyboard.OneTimeButtons([]string{LabelCancel})
}

func adminMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: LabelList, Unique: CallbackList}},
		[]keyboard.InlineBtn{{Text: LabelSetExam, Unique: CallbackSetExam}},
		[]keyboard.InlineBtn{
			{Text: LabelInviteAll, Unique: CallbackInviteAll},
			{Text: LabelInviteByID, Unique: CallbackInviteByID},
		},
		[]keyboard.InlineBtn{
			{Text: LabelClear, Unique: CallbackClear},
			{Text: LabelDeleteByID, Unique: CallbackDeleteByID},
		},
		[]keyboard.InlineBtn{{Text: LabelDownload, Unique: CallbackDownload}},
	)
}

func clearPrompt() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: textClearConfirm, Unique: CallbackClearConfirm},
		{Text: LabelCancel, Unique: CallbackClearCancel},
	})
}

func removalPrompt() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: textRemoveInvited, Unique: CallbackRemoveConfirm},
		{Text: textKeepInvited, Unique: CallbackRemoveCancel},
	})
}

func confirmButton(registrationID int64) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{{
		Text:   textConfirmButton,
		Unique: CallbackConfirm,
		Data:   strconv.FormatInt(registrationID, 10),
	}})
}

// markup maps a dialog keyboard choice to Telegram markup; nil keeps the current one.
func markup(k dialog.Keyboard) *tele.ReplyMarkup {
	switch k {
	case dialog.CancelKeyboard:
		return cancelKeyboard()
	case dialog.RemoveKeyboard:
		return keyboard.RemoveKeyboard()
	case dialog.AdminKeyboard:
		return adminKeyboard()
	}
	return nil
}
