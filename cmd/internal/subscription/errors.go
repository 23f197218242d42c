package subscription

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTokenNotFound     = errors.New("subscription token not found")
	ErrUnknownSubscriber = errors.New("token owner does not exist")
	ErrInvalidTransition = errors.New("subscriber status cannot move to confirmed")
)
