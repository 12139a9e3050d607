package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInternal         = errors.New("internal error")
)

// Error records the handler operation that failed, an optional sentinel
// kind and the underlying cause. errors.Is matches both Kind and Err.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap exposes Kind and Err to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NewKind returns an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}
