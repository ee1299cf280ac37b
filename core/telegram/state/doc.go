// Package state keeps per-chat conversation sessions for Telegram bots.
// It is domain-agnostic: the session payload type is chosen by the caller.
package state
