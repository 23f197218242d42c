// Package fault defines the three error kinds shared by every workflow and
// their mapping to HTTP status codes.
//
// Kind is a closed set. Anything that is not explicitly classified is treated
// as KindUnexpected, so a forgotten wrap can only ever fail closed (500).
package fault

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind uint8

const (
	// KindUnexpected covers store faults, email transport faults and encoding faults.
	KindUnexpected Kind = iota
	// KindValidation means caller-supplied data is structurally wrong.
	KindValidation
	// KindAuthentication means credentials or a token are wrong or absent.
	KindAuthentication
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	default:
		return "unexpected"
	}
}

// Public messages for kinds whose detail must not reach the caller.
const (
	msgAuthentication = "Authentication failed."
	msgUnexpected     = "Something went wrong."
)

// Error is the typed error carried across layers.
// Op names the step that failed ("subscription.insert_subscriber", ...).
// Msg is safe to show to end users only for KindValidation.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var s string
	switch {
	case e.Op != "" && e.Msg != "":
		s = e.Op + ": " + e.Msg
	case e.Op != "":
		s = e.Op
	default:
		s = e.Msg
	}
	if e.Err != nil {
		if s == "" {
			return e.Err.Error()
		}
		return s + ": " + e.Err.Error()
	}
	if s == "" {
		return e.Kind.String()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a KindValidation error with a user-facing message.
func Validation(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Authentication builds a KindAuthentication error. Msg is for operators only.
func Authentication(op, msg string, cause error) error {
	return &Error{Kind: KindAuthentication, Op: op, Msg: msg, Err: cause}
}

// Unexpected wraps cause as a KindUnexpected error for step op.
// A cause that is already a classified *Error keeps its kind.
func Unexpected(op string, cause error) error {
	var fe *Error
	if errors.As(cause, &fe) && fe.Kind != KindUnexpected {
		return &Error{Kind: fe.Kind, Op: op, Msg: fe.Msg, Err: cause}
	}
	return &Error{Kind: KindUnexpected, Op: op, Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain.
// nil has no kind; callers must check err != nil first.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnexpected
}

// Is reports whether err is classified as kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// HTTPStatus maps a kind to its transport status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that may be shown to the caller.
func PublicMessage(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return msgUnexpected
	}
	switch fe.Kind {
	case KindValidation:
		if fe.Msg == "" {
			return "invalid request"
		}
		return fe.Msg
	case KindAuthentication:
		return msgAuthentication
	default:
		return msgUnexpected
	}
}

// Code returns a stable machine-readable code for the JSON error envelope.
func Code(k Kind) string {
	switch k {
	case KindValidation:
		return "invalid_request"
	case KindAuthentication:
		return "unauthorized"
	default:
		return "server_error"
	}
}
