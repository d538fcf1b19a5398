package backend

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindBackendUnreachable Kind = "backend_unreachable"
	KindValidationFailed   Kind = "validation_failed"
	KindDecodeFailed       Kind = "decode_failed"
	KindUnauthorized       Kind = "unauthorized"
	KindConflict           Kind = "conflict"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrBackendUnreachable = &Error{Kind: KindBackendUnreachable}
	ErrValidationFailed   = &Error{Kind: KindValidationFailed}
	ErrDecodeFailed       = &Error{Kind: KindDecodeFailed}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrConflict           = &Error{Kind: KindConflict}
)

// Error is a backend failure tagged with its kind and the backend that
// produced it.
type Error struct {
	Kind    Kind
	Backend ID
	Op      string // "get poem", "sign in"
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = kindText(e.Kind)
	}
	s := msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Backend != "" {
		s = string(e.Backend) + ": " + s
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind so callers can write errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Backend == "" && t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Errorf builds a tagged error with a formatted message.
func Errorf(kind Kind, id ID, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Backend: id, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap tags err. A *Error already in err's chain keeps its kind and backend.
func Wrap(kind Kind, id ID, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: kind, Backend: id, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// BackendOf returns the backend that produced err, or "".
func BackendOf(err error) ID {
	var be *Error
	if errors.As(err, &be) {
		return be.Backend
	}
	return ""
}

func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

func kindText(k Kind) string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBackendUnreachable:
		return "backend unreachable"
	case KindValidationFailed:
		return "validation failed"
	case KindDecodeFailed:
		return "no content available"
	case KindUnauthorized:
		return "invalid credentials"
	case KindConflict:
		return "already exists"
	default:
		return "error"
	}
}
