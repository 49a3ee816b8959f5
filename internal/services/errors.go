package services

import (
	"errors"
	"fmt"

	"luckydraw/internal/store"
)

// Kind classifies a lottery error.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPrecondition
	KindInconsistent
)

// Error is returned by every LotteryService operation that is rejected.
// Message is meant to be shown to the operator as-is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind when target has no message, so
// errors.Is(err, ErrNotFound) works for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrPrecondition = &Error{Kind: KindPrecondition}
	ErrInconsistent = &Error{Kind: KindInconsistent}
)

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func precondition(format string, args ...any) error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func inconsistent(format string, args ...any) error {
	return &Error{Kind: KindInconsistent, Message: fmt.Sprintf(format, args...)}
}

// lookup turns store.ErrNotFound into a not-found error with msg and wraps
// anything else.
func lookup(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("%s", msg)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// conflict turns store.ErrConflict from a save into a precondition error with
// the given message. A concurrent writer outside this process can still race
// the uniqueness checks done before the save.
func conflict(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrConflict) {
		return precondition(format, args...)
	}
	return err
}

// ItemError reports the failure of one item in a batch operation.
type ItemError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
