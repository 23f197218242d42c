package domain

import (
	"strings"
	"unicode"

	"newsletter/cmd/internal/fault"

	"github.com/rivo/uniseg"
)

// MaxNameGraphemes bounds a subscriber name in user-perceived characters.
const MaxNameGraphemes = 256

// Names are interpolated into emails and logs.
const forbiddenNameChars = `/()"<>\{}`

// SubscriberName is a non-empty, bounded, markup-free display name.
type SubscriberName struct {
	value string
}

// ParseSubscriberName validates raw as a display name.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	const op = "domain.ParseSubscriberName"

	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, fault.Validation(op, "subscriber name is empty")
	}
	if uniseg.GraphemeClusterCount(raw) > MaxNameGraphemes {
		return SubscriberName{}, fault.Validation(op, "subscriber name is too long")
	}
	for _, r := range raw {
		if unicode.IsControl(r) || strings.ContainsRune(forbiddenNameChars, r) {
			return SubscriberName{}, fault.Validation(op, raw+" is not a valid subscriber name.")
		}
	}
	return SubscriberName{value: raw}, nil
}

// String returns the name.
func (n SubscriberName) String() string { return n.value }
