package model

import (
	"errors"
	"fmt"
)

// ErrorKind groups pipeline failures by where they originate.
type ErrorKind string

const (
	KindConfig     ErrorKind = "config"
	KindConnection ErrorKind = "connection"
	KindQuery      ErrorKind = "query"
	KindTransform  ErrorKind = "transform"
	KindTransport  ErrorKind = "transport"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a kind and the failing operation.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err, or anything it wraps, is a pipeline Error of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}
