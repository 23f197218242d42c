package domain

import "time"

// Status is the subscriber lifecycle state.
type Status string

const (
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPendingConfirmation || s == StatusConfirmed
}

// CanTransition reports whether moving from s to next is allowed.
// Status only moves forward; confirming twice is a no-op, not a violation.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	switch s {
	case StatusPendingConfirmation:
		return next == StatusPendingConfirmation || next == StatusConfirmed
	case StatusConfirmed:
		return next == StatusConfirmed
	default:
		return false
	}
}

// NewSubscriber is a validated subscription request.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// ParseNewSubscriber validates a raw form submission (name first, then email).
func ParseNewSubscriber(rawName, rawEmail string) (NewSubscriber, error) {
	name, err := ParseSubscriberName(rawName)
	if err != nil {
		return NewSubscriber{}, err
	}
	email, err := ParseSubscriberEmail(rawEmail)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Email: email, Name: name}, nil
}

// Subscriber is a persisted subscriber row.
// Email is kept raw: rows written before validation tightened may not parse.
type Subscriber struct {
	ID           string
	Email        string
	Name         string
	Status       Status
	SubscribedAt time.Time
}
