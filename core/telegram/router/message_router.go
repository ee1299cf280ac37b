package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/exambot/core/telegram"
	tghelpers "github.com/m3rciful/exambot/core/telegram/helpers"
	"github.com/m3rciful/exambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Dialog is a per-chat conversation consulted for free text that is not a
// command or a keyboard label.
type Dialog interface {
	InProgress(chatID int64) bool
	Handle(c tele.Context) error
}

// TextOptions controls admin checks and fallback behaviour for text/document updates.
type TextOptions struct {
	AdminID         int64
	OnAdminReject   tele.HandlerFunc
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing. Text is matched
// in this order: registered command or keyboard label, unknown slash command
// (ignored), active dialog, fallback.
func TextRoutes(dlg Dialog, reg *tg.Registry, opts TextOptions) []tg.Route {
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				h := cmd.Handler
				if cmd.AdminOnly {
					h = admin(h)
				}
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return h(c)
				})
			}
		}

		if strings.HasPrefix(strings.TrimSpace(text), "/") {
			logHandlerSummary(c, "unknown_command", start, "skip", "ok", nil)
			return nil
		}

		if dlg != nil && dlg.InProgress(tghelpers.ChatID(c)) {
			return handleWithSummary(c, "dialog", start, "", "", func() error {
				return dlg.Handle(c)
			})
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
