package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady rejects a snapshot that is not actionable yet.
	ErrNotReady = errors.New("snapshot not actionable")
	// ErrSittingOut needs an operator: we sit out and auto sit-in is off.
	ErrSittingOut = errors.New("sitting out")
)

// InconsistencyError aborts a tick whose snapshot cannot be reconciled
// with the belief.
type InconsistencyError string

func (e InconsistencyError) Error() string { return "inconsistent state: " + string(e) }

func inconsistent(format string, args ...any) error {
	return InconsistencyError(fmt.Sprintf(format, args...))
}

// DispatchError is returned when the actuator failed to deliver a command.
type DispatchError struct {
	Cmd Command
	Err error
}

func (e *DispatchError) Error() string { return fmt.Sprintf("dispatch %s: %v", e.Cmd, e.Err) }
func (e *DispatchError) Unwrap() error { return e.Err }

// Class groups tick errors by how the caller should react.
type Class int

const (
	ClassNone Class = iota
	// ClassRetry is silently skipped.
	ClassRetry
	// ClassTick aborted one tick; the belief is untouched.
	ClassTick
	// ClassTable needs external attention.
	ClassTable
)

func (c Class) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassRetry:
		return "retry"
	case ClassTick:
		return "tick"
	case ClassTable:
		return "table"
	}
	return "unknown"
}

func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrNotReady):
		return ClassRetry
	case errors.Is(err, ErrSittingOut):
		return ClassTable
	}
	return ClassTick
}
