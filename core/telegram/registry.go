package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/exambot/core/logger"
	"github.com/m3rciful/exambot/core/telegram/callbacks"
	"github.com/m3rciful/exambot/core/telegram/commands"
)

// Registry holds bot commands and callbacks.
type Registry struct {
	commands         map[string]commands.Command
	labels           map[string]string
	callbacks        map[string]commands.Callback
	callbacksMu      sync.RWMutex
	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		labels:    make(map[string]string),
		callbacks: make(map[string]commands.Callback),
		callbackNotFound: func(c tele.Context) error {
			return callbacks.Respond(c, "Unsupported action")
		},
	}
}

// RegisterCommand adds a new command together with its keyboard labels and
// inline callback, so all three entry paths share one handler.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return
	}
	if name[0] != '/' {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "no_slash_prefix"),
		)
		return
	}
	if _, exists := r.commands[name]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.duplicate",
			slog.String("name", name),
		)
		return
	}
	r.commands[name] = cmd
	for _, label := range cmd.Labels {
		key := labelKey(label)
		if key == "" {
			continue
		}
		if prev, exists := r.labels[key]; exists {
			logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.label.duplicate",
				slog.String("label", label),
				slog.String("command", prev),
			)
			continue
		}
		r.labels[key] = name
	}
	if cmd.Callback != "" {
		_ = r.registerCallback(cmd.Callback, commands.Callback{Handler: cmd.Handler, AdminOnly: cmd.AdminOnly})
	}
}

// ListCommands returns a slice of tele.Command, optionally filtering out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for cmd, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: cmd, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a slash command (with optional @bot suffix and
// arguments) or a keyboard label to the canonical command key.
// Labels are matched case-insensitively; plain text never matches a command name.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", commands.Command{}, false
	}
	if strings.HasPrefix(text, "/") {
		name, _, _ := strings.Cut(text, " ")
		name, _, _ = strings.Cut(name, "@")
		name = strings.ToLower(name)
		if cmd, ok := r.commands[name]; ok {
			return name, cmd, true
		}
		return "", commands.Command{}, false
	}
	if name, ok := r.labels[labelKey(text)]; ok {
		return name, r.commands[name], true
	}
	return "", commands.Command{}, false
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// RegisterCallback adds a callback handler mapped to its key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	return r.registerCallback(key, commands.Callback{Handler: handler})
}

// RegisterAdminCallback adds a callback that only the administrator may trigger.
func (r *Registry) RegisterAdminCallback(key string, handler tele.HandlerFunc) error {
	return r.registerCallback(key, commands.Callback{Handler: handler, AdminOnly: true})
}

func (r *Registry) registerCallback(key string, cb commands.Callback) error {
	if r == nil || key == "" || cb.Handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", cb.Handler == nil),
		)
		return errors.New("invalid callback registration")
	}
	r.callbacksMu.Lock()
	defer r.callbacksMu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = cb
	return nil
}

// GetCallback safely returns the callback registered under key.
func (r *Registry) GetCallback(key string) (commands.Callback, bool) {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	cb, ok := r.callbacks[key]
	return cb, ok
}

// ListCallbacks returns sorted keys (for diagnostics).
func (r *Registry) ListCallbacks() []string {
	r.callbacksMu.RLock()
	defer r.callbacksMu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the current fallback callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets a global fallback handler for unknown text messages.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

// TextFallback returns the current text fallback handler.
func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// InitBotCommands sets the Telegram bot commands shown in the command menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			logger.Err(err),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelDebug, "register.commands.set",
		slog.Int("count", len(list)),
	)
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
