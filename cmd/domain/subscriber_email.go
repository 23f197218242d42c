package domain

import (
	"fmt"
	"net/mail"
	"strings"

	"newsletter/cmd/internal/fault"
)

const maxEmailLength = 254

// SubscriberEmail is a syntactically valid bare email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates raw as a bare "local@domain" address.
// Display-name forms ("Jane <jane@example.com>") are rejected.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	const op = "domain.ParseSubscriberEmail"

	if !validEmail(raw) {
		return SubscriberEmail{}, fault.Validation(op, fmt.Sprintf("%s, is not a valid subscriber email.", raw))
	}
	return SubscriberEmail{value: raw}, nil
}

func validEmail(raw string) bool {
	if raw == "" || len(raw) > maxEmailLength {
		return false
	}
	at := strings.LastIndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 {
		return false
	}
	if strings.ContainsAny(raw[at+1:], " \t\r\n") {
		return false
	}

	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == raw
}

// String returns the address.
func (e SubscriberEmail) String() string { return e.value }

// IsZero reports whether e was never parsed.
func (e SubscriberEmail) IsZero() bool { return e.value == "" }

// Redacted returns the address with most of its local part masked, for logs.
func (e SubscriberEmail) Redacted() string { return RedactEmail(e.value) }

// RedactEmail masks the local part of raw: "jo***@example.com".
// Inputs that are not a single local@domain pair become "***@***".
func RedactEmail(raw string) string {
	parts := strings.Split(raw, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
