// Package apperr defines the error kinds the HTTP boundary translates
// into wire status codes (spec §7). Core components return *Error
// instead of a raw error whenever the failure has a wire meaning;
// plain errors still propagate for anything that should never happen
// in a correctly-operating system (e.g. a decode bug).
package apperr

import "fmt"

type Kind string

const (
	InvalidInput          Kind = "invalid_input"
	Unauthorized           Kind = "unauthorized"
	InsufficientCollateral Kind = "insufficient_collateral"
	Forbidden              Kind = "forbidden"
	NotFound               Kind = "not_found"
	SelfMatch              Kind = "self_match"
	TooEarly               Kind = "too_early"
	TooLate                Kind = "too_late"
	Conflict               Kind = "conflict"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
