package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
// Labels are reply-keyboard captions that trigger the same handler as the
// slash command; Callback is the inline-button unique that does the same.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Labels      []string
	Callback    string
}

// Callback is a handler bound to an inline button unique.
type Callback struct {
	Handler   tele.HandlerFunc
	AdminOnly bool
}
