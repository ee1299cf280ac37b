// Package registration models an exam registration and its lifecycle:
// submitted, then invited, then confirmed. Removal is possible from any state
// and is handled by the store; no transition is reversible.
package registration

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound reports an unknown registration id.
	ErrNotFound = errors.New("registration not found")
	// ErrNotRecipient is returned when someone other than the owning chat tries to confirm.
	ErrNotRecipient = errors.New("confirmation must come from the recipient")
	// ErrNotInvited is returned when confirming a registration that was never invited.
	ErrNotInvited = errors.New("registration was not invited")

	ErrEmptyFullName  = errors.New("full name is required")
	ErrEmptyPhone     = errors.New("phone is required")
	ErrInvalidAttempt = errors.New("attempt must be a positive integer")
)

// Status is the derived lifecycle state of a registration.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusInvited   Status = "invited"
	StatusConfirmed Status = "confirmed"
)

// Registration is one exam-sitting request.
type Registration struct {
	ID                   int64      `json:"id"`
	ChatID               int64      `json:"chatId"`
	FullName             string     `json:"fullName"`
	Phone                string     `json:"phone"`
	Attempt              int        `json:"attempt"`
	SubmittedAt          time.Time  `json:"submittedAt"`
	Invited              bool       `json:"invited"`
	InvitationAccepted   bool       `json:"invitationAccepted,omitempty"`
	InvitationAcceptedAt *time.Time `json:"invitationAcceptedAt,omitempty"`
}

// New validates the intake fields and returns an unsaved registration (ID 0).
func New(chatID int64, fullName, phone string, attempt int, now time.Time) (Registration, error) {
	fullName = strings.TrimSpace(fullName)
	phone = strings.TrimSpace(phone)
	switch {
	case fullName == "":
		return Registration{}, ErrEmptyFullName
	case phone == "":
		return Registration{}, ErrEmptyPhone
	case attempt <= 0:
		return Registration{}, ErrInvalidAttempt
	}
	return Registration{
		ChatID:      chatID,
		FullName:    fullName,
		Phone:       phone,
		Attempt:     attempt,
		SubmittedAt: now.UTC(),
	}, nil
}

// Status derives the lifecycle state from the flags.
func (r Registration) Status() Status {
	switch {
	case r.InvitationAccepted:
		return StatusConfirmed
	case r.Invited:
		return StatusInvited
	default:
		return StatusSubmitted
	}
}

// MarkInvited flips Invited to true and reports whether anything changed.
// Calling it on an invited registration is a no-op.
func (r *Registration) MarkInvited() bool {
	if r.Invited {
		return false
	}
	r.Invited = true
	return true
}

// Authorize checks that actorChatID owns the registration.
func (r Registration) Authorize(actorChatID int64) error {
	if actorChatID != r.ChatID {
		return ErrNotRecipient
	}
	return nil
}

// Confirm records the invitation acceptance once. The first acceptance time is kept.
func (r *Registration) Confirm(at time.Time) (bool, error) {
	if !r.Invited {
		return false, ErrNotInvited
	}
	if r.InvitationAccepted {
		return false, nil
	}
	accepted := at.UTC()
	r.InvitationAccepted = true
	r.InvitationAcceptedAt = &accepted
	return true, nil
}

// Clone returns a copy that shares no pointers with r.
func (r Registration) Clone() Registration {
	if r.InvitationAcceptedAt != nil {
		at := *r.InvitationAcceptedAt
		r.InvitationAcceptedAt = &at
	}
	return r
}
