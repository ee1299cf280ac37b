package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "counters"

// Counters tallies what a handler produced for one update. Handler summary
// log lines report them.
type Counters struct {
	Messages  int // sent or replied
	Edits     int
	Documents int
	Answers   int // callback queries answered
	Keyboard  bool
}

type countingContext struct {
	tele.Context
	n *Counters
}

func (c countingContext) sent(what any, opts []any) {
	if _, ok := what.(*tele.Document); ok {
		c.n.Documents++
	} else {
		c.n.Messages++
	}
	if carriesMarkup(opts) {
		c.n.Keyboard = true
	}
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		}
	}
	return false
}

func (c countingContext) Send(what any, opts ...any) error {
	err := c.Context.Send(what, opts...)
	if err == nil {
		c.sent(what, opts)
	}
	return err
}

func (c countingContext) Reply(what any, opts ...any) error {
	err := c.Context.Reply(what, opts...)
	if err == nil {
		c.sent(what, opts)
	}
	return err
}

func (c countingContext) Edit(what any, opts ...any) error {
	err := c.Context.Edit(what, opts...)
	if err == nil {
		c.n.Edits++
		c.n.Keyboard = c.n.Keyboard || carriesMarkup(opts)
	}
	return err
}

func (c countingContext) Respond(resp ...*tele.CallbackResponse) error {
	err := c.Context.Respond(resp...)
	if err == nil {
		c.n.Answers++
	}
	return err
}

// MessageMetricsMiddleware counts replies, edits, documents and callback
// answers made while handling the update.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		n := &Counters{}
		c.Set(countersKey, n)
		return next(countingContext{Context: c, n: n})
	}
}

// GetCounters returns the counters of the current update; zero when the
// middleware is not installed.
func GetCounters(c tele.Context) Counters {
	if n, ok := c.Get(countersKey).(*Counters); ok && n != nil {
		return *n
	}
	return Counters{}
}
