package shopify

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind tags every failure that leaves this package.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindAuth
	KindThrottled
	KindProtocol
	KindUser
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindThrottled:
		return "throttled"
	case KindProtocol:
		return "protocol"
	case KindUser:
		return "user"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching on kind only.
var (
	ErrNetwork   = &Error{Kind: KindNetwork}
	ErrAuth      = &Error{Kind: KindAuth}
	ErrThrottled = &Error{Kind: KindThrottled}
	ErrProtocol  = &Error{Kind: KindProtocol}
	ErrUser      = &Error{Kind: KindUser}
	ErrNotFound  = &Error{Kind: KindNotFound}
)

// FieldError is one entry of a mutation's userErrors list.
type FieldError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

func (f FieldError) String() string {
	if len(f.Field) == 0 {
		return f.Message
	}
	return strings.Join(f.Field, ".") + ": " + f.Message
}

// Error is the structured failure produced by the classifier (and by the
// lifecycle pre-checks that mirror remote user errors).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	// Fields is set for KindUser.
	Fields []FieldError
	// RetryAfter is the remote's recommended wait for KindThrottled.
	RetryAfter time.Duration
	// Attempts counts transport calls made before the error surfaced.
	Attempts int
	Detail   map[string]any
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, f.String())
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	if e.Kind == KindThrottled && e.RetryAfter > 0 {
		fmt.Fprintf(&b, " (retry after %s)", e.RetryAfter)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match when target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// AsError unwraps err to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func userError(op, message string, detail map[string]any, fields ...FieldError) *Error {
	return &Error{Kind: KindUser, Op: op, Message: message, Fields: fields, Detail: detail}
}

func notFound(op, what, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf("%s %s not found", what, id), Detail: map[string]any{"id": id}}
}
