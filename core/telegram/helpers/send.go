package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/core/telegram/sender"
)

// MaxMessageRunes is the Telegram limit for a single text message.
const MaxMessageRunes = 4096

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				logger.Err(err),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current chat. A nil markup
// leaves the chat keyboard untouched.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	return SendTexts(c, []string{text}, markup)
}

// SendTexts sends the parts in order as one dispatcher job; the markup is
// attached to the last part only. A retried job resumes from the part that failed.
func SendTexts(c tele.Context, parts []string, markup *tele.ReplyMarkup) error {
	if len(parts) == 0 {
		return nil
	}
	next := 0
	return sendAsync(c, "send.text", "sendMessage", func() error {
		for ; next < len(parts); next++ {
			var err error
			if next == len(parts)-1 && markup != nil {
				err = c.Send(parts[next], markup)
			} else {
				err = c.Send(parts[next])
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// EditText replaces the text of the message that carried the pressed button.
// Failures are logged only: the edit is cosmetic.
func EditText(c tele.Context, text string) {
	if err := c.Edit(text); err != nil {
		logger.Warn(BuildContext(c), "tg", "edit.fail", logger.Err(err))
	}
}

// SendDocument uploads data as a file attachment to the current chat.
func SendDocument(c tele.Context, fileName, mime string, data []byte) error {
	return sendAsync(c, "send.document", "sendDocument", func() error {
		doc := &tele.Document{
			File:     tele.FromReader(bytes.NewReader(data)),
			FileName: fileName,
			MIME:     mime,
		}
		return c.Send(doc)
	})
}

// SplitText cuts text into parts of at most limit runes, preferring line breaks.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageRunes
	}
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
