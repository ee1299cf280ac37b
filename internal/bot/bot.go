// Package bot binds the exam service and the conversation machine to
// Telegram: commands, keyboard labels, inline buttons and replies.
package bot

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/exambot/core/telegram"
	"github.com/m3rciful/exambot/core/telegram/callbacks"
	"github.com/m3rciful/exambot/core/telegram/commands"
	tghelpers "github.com/m3rciful/exambot/core/telegram/helpers"
	"github.com/m3rciful/exambot/core/telegram/router"
	"github.com/m3rciful/exambot/core/telegram/state"
	"github.com/m3rciful/exambot/internal/dialog"
	"github.com/m3rciful/exambot/internal/exam"
)

// Options wires Handlers.
type Options struct {
	Service  *exam.Service
	Sessions state.Store[dialog.Step]
	AdminID  int64
}

// Handlers owns every Telegram entry point of the bot.
type Handlers struct {
	svc     *exam.Service
	dialog  *dialog.Machine
	adminID int64
}

// New builds Handlers and the conversation machine they drive.
func New(opts Options) *Handlers {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewMemory[dialog.Step]()
	}
	h := &Handlers{svc: opts.Service, adminID: opts.AdminID}
	h.dialog = dialog.New(sessions, actions{h}, h.isAdmin, opts.Service.Location())
	return h
}

func (h *Handlers) isAdmin(userID int64) bool {
	return h.adminID != 0 && userID == h.adminID
}

// Register adds commands, labels and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.start,
		Description: "Начать работу",
	})
	reg.RegisterCommand("/register", commands.Command{
		Handler:     h.register,
		Description: "Записаться на экзамен",
		Labels:      []string{LabelRegister},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     h.cancel,
		Description: "Отменить ввод",
		Labels:      []string{LabelCancel},
	})

	admin := []struct {
		name, desc, label, callback string
		handler                     tele.HandlerFunc
	}{
		{"/admin", "Меню администратора", LabelAdminMenu, "", h.menu},
		{"/list", "Список заявок", LabelList, CallbackList, h.list},
		{"/setexam", "Назначить экзамен", LabelSetExam, CallbackSetExam, h.setExam},
		{"/inviteall", "Разослать приглашения всем", LabelInviteAll, CallbackInviteAll, h.inviteAll},
		{"/invite", "Разослать приглашения по ID", LabelInviteByID, CallbackInviteByID, h.inviteByID},
		{"/clear", "Очистить список", LabelClear, CallbackClear, h.clear},
		{"/delete", "Удалить участников по ID", LabelDeleteByID, CallbackDeleteByID, h.deleteByID},
		{"/download", "Скачать список", LabelDownload, CallbackDownload, h.download},
	}
	for _, a := range admin {
		reg.RegisterCommand(a.name, commands.Command{
			Handler:     a.handler,
			Description: a.desc,
			AdminOnly:   true,
			Labels:      []string{a.label},
			Callback:    a.callback,
		})
	}

	_ = reg.RegisterAdminCallback(CallbackClearConfirm, h.clearConfirm)
	_ = reg.RegisterAdminCallback(CallbackClearCancel, h.clearCancel)
	_ = reg.RegisterAdminCallback(CallbackRemoveConfirm, h.removeConfirm)
	_ = reg.RegisterAdminCallback(CallbackRemoveCancel, h.removeCancel)
	_ = reg.RegisterCallback(CallbackConfirm, h.confirm)
}

// Routes returns the telebot endpoints for everything registered in reg.
func (h *Handlers) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       h.adminID,
		OnAdminReject: h.rejectCommand,
	})
	routes = append(routes, router.TextRoutes(dialogRoute{h}, reg, router.TextOptions{
		AdminID:       h.adminID,
		OnAdminReject: h.rejectCommand,
	})...)
	return append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		AdminID:       h.adminID,
		OnAdminReject: h.rejectCallback,
	}))
}

// Limited answers updates dropped by the rate limiter.
func (h *Handlers) Limited(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Respond(c, "Слишком часто, попробуйте позже.")
	}
	return nil
}

func (h *Handlers) rejectCommand(c tele.Context) error {
	if c.Callback() != nil {
		return h.rejectCallback(c)
	}
	return tghelpers.SendText(c, textAdminOnly, nil)
}

func (h *Handlers) rejectCallback(c tele.Context) error {
	return callbacks.Respond(c, textNoRights)
}

// toast answers a callback query with text; plain messages are left alone.
func toast(c tele.Context, text string) {
	if c.Callback() != nil && !callbacks.Answered(c) {
		_ = callbacks.Respond(c, text)
	}
}

// send delivers a possibly long text, splitting it at line breaks.
func send(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return tghelpers.SendTexts(c, tghelpers.SplitText(text, tghelpers.MaxMessageRunes), markup)
}

func (h *Handlers) reply(c tele.Context, r dialog.Reply) error {
	if r.Text == "" {
		return nil
	}
	return send(c, r.Text, markup(r.Keyboard))
}

type dialogRoute struct{ h *Handlers }

func (d dialogRoute) InProgress(chatID int64) bool { return d.h.dialog.InProgress(chatID) }

func (d dialogRoute) Handle(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r := d.h.dialog.Handle(ctx, tghelpers.ChatID(c), tghelpers.SenderID(c), c.Text())
	return d.h.reply(c, r)
}
