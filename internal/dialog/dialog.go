// Package dialog runs the per-chat conversation state machine: registrant
// intake and the administrator steps that expect a free-text answer.
// It knows nothing about Telegram; replies are returned to the caller.
package dialog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/core/telegram/helpers"
	"github.com/m3rciful/exambot/core/telegram/state"
)

// Keyboard selects the reply keyboard sent along with a reply.
type Keyboard int

const (
	// KeepKeyboard leaves the current keyboard in place.
	KeepKeyboard Keyboard = iota
	// CancelKeyboard offers a one-time "Отмена" button.
	CancelKeyboard
	// RemoveKeyboard hides the reply keyboard.
	RemoveKeyboard
	// AdminKeyboard shows the administrator keyboard.
	AdminKeyboard
)

// Reply is a message for the chat. An empty Text means stay silent.
type Reply struct {
	Text     string
	Keyboard Keyboard
}

// Prompts and answers owned by the machine.
const (
	PromptFullName   = "Введите ФИО (полностью):"
	PromptPhone      = "Введите номер телефона (в формате +79876543210):"
	PromptAttempt    = "Введите номер попытки сдачи экзамена (например 1 или 2):"
	PromptSetExam    = "Отправьте дату и время экзамена в удобном формате: DD.MM.YYYY HH:MM или YYYY-MM-DD HH:MM"
	PromptInviteByID = "Отправьте список id через запятую (пример: 1,2,3)."
	PromptDeleteByID = "Отправьте список id участников для удаления через запятую (пример: 1,2,3)."

	TextBadAttempt = "Неверный формат. Введите число."
	TextBadDate    = "Не удалось распознать дату."
	TextFailed     = "Что-то пошло не так. Начните заново."
)

// Actions performs the side effects a finished step asks for and renders
// the reply. Returning an error ends the session with TextFailed.
type Actions interface {
	Submit(ctx context.Context, chatID int64, fullName, phone string, attempt int) (Reply, error)
	SetExam(ctx context.Context, chatID int64, at time.Time) (Reply, error)
	InviteByIDs(ctx context.Context, chatID int64, ids []int64) (Reply, error)
	DeleteByIDs(ctx context.Context, chatID int64, ids []int64) (Reply, error)
}

// Machine drives sessions stored in an injected state.Store.
type Machine struct {
	sessions state.Store[Step]
	actions  Actions
	isAdmin  func(userID int64) bool
	loc      *time.Location
}

// New builds a Machine. isAdmin is consulted on every message of an
// administrator step; loc is the zone exam dates are typed in.
func New(sessions state.Store[Step], actions Actions, isAdmin func(int64) bool, loc *time.Location) *Machine {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	if loc == nil {
		loc = time.Local
	}
	return &Machine{sessions: sessions, actions: actions, isAdmin: isAdmin, loc: loc}
}

// Begin starts step for chatID, replacing any running session, and returns its prompt.
func (m *Machine) Begin(chatID int64, s Step) Reply {
	m.sessions.Set(chatID, s)
	return prompt(s)
}

// InProgress reports whether chatID has a live session.
func (m *Machine) InProgress(chatID int64) bool {
	_, ok := m.sessions.Get(chatID)
	return ok
}

// Current returns the live step of chatID.
func (m *Machine) Current(chatID int64) (Step, bool) {
	return m.sessions.Get(chatID)
}

// Cancel ends the session of chatID and reports whether there was one.
func (m *Machine) Cancel(chatID int64) bool {
	ok := m.InProgress(chatID)
	m.sessions.Clear(chatID)
	return ok
}

// Handle feeds one text message into the session of chatID.
func (m *Machine) Handle(ctx context.Context, chatID, senderID int64, text string) Reply {
	cur, ok := m.sessions.Get(chatID)
	if !ok {
		return Reply{}
	}
	if adminStep(cur) && !m.isAdmin(senderID) {
		m.sessions.Clear(chatID)
		logger.Warn(ctx, "dialog", "admin.revoked", slog.Int64("chat_id", chatID), slog.Int64("user_id", senderID))
		return Reply{}
	}

	reply, err := m.advance(ctx, chatID, cur, strings.TrimSpace(text))
	if err != nil {
		m.sessions.Clear(chatID)
		logger.Error(ctx, "dialog", "step.fail",
			slog.Int64("chat_id", chatID),
			slog.String("step", stepName(cur)),
			logger.Err(err),
		)
		return Reply{Text: TextFailed, Keyboard: RemoveKeyboard}
	}
	return reply
}

func (m *Machine) advance(ctx context.Context, chatID int64, cur Step, text string) (Reply, error) {
	switch s := cur.(type) {
	case FullName:
		if text == "" {
			return prompt(s), nil
		}
		return m.Begin(chatID, Phone{FullName: text}), nil

	case Phone:
		if text == "" {
			return prompt(s), nil
		}
		return m.Begin(chatID, Attempt{FullName: s.FullName, Phone: text}), nil

	case Attempt:
		attempt, err := strconv.Atoi(text)
		if err != nil || attempt <= 0 {
			return Reply{Text: TextBadAttempt}, nil
		}
		m.sessions.Clear(chatID)
		return m.actions.Submit(ctx, chatID, s.FullName, s.Phone, attempt)

	case SetExam:
		m.sessions.Clear(chatID)
		at, ok := helpers.ParseExamDate(text, m.loc)
		if !ok {
			return Reply{Text: TextBadDate}, nil
		}
		return m.actions.SetExam(ctx, chatID, at)

	case InviteByID:
		m.sessions.Clear(chatID)
		return m.actions.InviteByIDs(ctx, chatID, ParseIDs(text))

	case DeleteByID:
		m.sessions.Clear(chatID)
		return m.actions.DeleteByIDs(ctx, chatID, ParseIDs(text))

	default:
		m.sessions.Clear(chatID)
		return Reply{}, nil
	}
}

func prompt(s Step) Reply {
	switch s.(type) {
	case FullName:
		return Reply{Text: PromptFullName, Keyboard: CancelKeyboard}
	case Phone:
		return Reply{Text: PromptPhone}
	case Attempt:
		return Reply{Text: PromptAttempt}
	case SetExam:
		return Reply{Text: PromptSetExam, Keyboard: AdminKeyboard}
	case InviteByID:
		return Reply{Text: PromptInviteByID, Keyboard: AdminKeyboard}
	case DeleteByID:
		return Reply{Text: PromptDeleteByID, Keyboard: AdminKeyboard}
	}
	return Reply{}
}

func stepName(s Step) string {
	switch s.(type) {
	case FullName:
		return "full_name"
	case Phone:
		return "phone"
	case Attempt:
		return "attempt"
	case SetExam:
		return "set_exam"
	case InviteByID:
		return "invite_by_id"
	case DeleteByID:
		return "delete_by_id"
	}
	return "unknown"
}

// ParseIDs reads a comma-separated id list. Tokens that are not integers are dropped;
// order and duplicates are kept.
func ParseIDs(text string) []int64 {
	var ids []int64
	for _, tok := range strings.Split(text, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(tok), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
