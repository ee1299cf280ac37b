package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/exambot/internal/dialog"
	"github.com/m3rciful/exambot/internal/exam"
)

// actions carries out finished dialog steps on behalf of the machine.
type actions struct{ h *Handlers }

func (a actions) Submit(ctx context.Context, chatID int64, fullName, phone string, attempt int) (dialog.Reply, error) {
	if _, err := a.h.svc.Submit(ctx, chatID, fullName, phone, attempt); err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: textSubmitted, Keyboard: dialog.RemoveKeyboard}, nil
}

func (a actions) SetExam(ctx context.Context, chatID int64, at time.Time) (dialog.Reply, error) {
	if err := a.h.svc.SetExam(ctx, chatID, at); err != nil {
		return dialog.Reply{}, err
	}
	return dialog.Reply{Text: fmt.Sprintf(textExamSaved, a.h.svc.Describe(at)), Keyboard: dialog.AdminKeyboard}, nil
}

func (a actions) InviteByIDs(ctx context.Context, chatID int64, ids []int64) (dialog.Reply, error) {
	rep, missing, err := a.h.svc.InviteByIDs(ctx, chatID, ids)
	if errors.Is(err, exam.ErrExamNotSet) {
		return dialog.Reply{Text: textExamNotSet}, nil
	}
	if err != nil {
		return dialog.Reply{}, err
	}
	var b strings.Builder
	if len(rep.Sent) > 0 {
		b.WriteString(textInvitesSent + sentLines(rep))
	} else {
		b.WriteString(textInvitesFailed)
	}
	if len(missing) > 0 {
		b.WriteString("\n" + textNotFoundIDs + joinIDs(missing))
	}
	return dialog.Reply{Text: b.String()}, nil
}

func (a actions) DeleteByIDs(ctx context.Context, chatID int64, ids []int64) (dialog.Reply, error) {
	removed, missing, err := a.h.svc.DeleteByIDs(ctx, chatID, ids)
	if err != nil {
		return dialog.Reply{}, err
	}
	var b strings.Builder
	if len(removed) > 0 {
		b.WriteString(textDeleted + joinIDs(removed) + "\n")
	}
	if len(missing) > 0 {
		b.WriteString(textNotFoundIDs + joinIDs(missing))
	}
	if b.Len() == 0 {
		return dialog.Reply{Text: textNothingDeleted}, nil
	}
	return dialog.Reply{Text: strings.TrimRight(b.String(), "\n")}, nil
}
