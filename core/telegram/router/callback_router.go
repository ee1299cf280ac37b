package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/exambot/core/telegram"
	"github.com/m3rciful/exambot/core/telegram/callbacks"
	"github.com/m3rciful/exambot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises admin checks and fallback behaviour for callbacks.
type CallbackOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	NotFound      tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Every callback query is answered exactly once: handlers that show a toast
// do it through callbacks.Respond, the rest get an empty answer here.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})

	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}
		defer func() {
			if !callbacks.Answered(c) {
				_ = c.Respond()
			}
		}()

		key := callbacks.CallbackKey(c)
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cb, ok := reg.GetCallback(key)
		if !ok || cb.Handler == nil {
			fallback := reg.CallbackNotFound()
			if fallback == nil {
				fallback = opts.NotFound
			}
			extras = append(extras, slog.String("reason", "not_found"))
			if fallback == nil {
				logHandlerSummary(c, name, start, "skip", "ok", nil, extras...)
				return nil
			}
			return handleWithSummary(c, name, start, "", "", func() error {
				return fallback(c)
			}, extras...)
		}

		h := cb.Handler
		if cb.AdminOnly {
			h = admin(h)
		}
		return handleWithSummary(c, name, start, "", "", func() error {
			return h(c)
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
