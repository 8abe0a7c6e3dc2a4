// Package rosterr defines the typed error taxonomy (spec.md §7) that every
// other package wraps its failures in, so callers can discriminate with
// errors.Is/errors.As instead of matching on message text.
package rosterr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the eight canonical failure classes.
type Kind string

const (
	ValidationError       Kind = "VALIDATION_ERROR"
	InfeasibleInstance    Kind = "INFEASIBLE_INSTANCE"
	SolverTimeout         Kind = "SOLVER_TIMEOUT"
	StateMachineViolation Kind = "STATE_MACHINE_VIOLATION"
	FreezeViolation       Kind = "FREEZE_VIOLATION"
	IdempotencyConflict   Kind = "IDEMPOTENCY_CONFLICT"
	DeterminismBroken     Kind = "DETERMINISM_BROKEN"
	IntegrityFault        Kind = "INTEGRITY_FAULT"
)

// Error carries a Kind alongside the usual message/cause chain, so a
// sentinel check (Is) survives errors.Wrap at every layer boundary.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on Kind alone, so errors.Is(err, rosterr.New(InfeasibleInstance, ""))
// answers "is this an infeasible-instance failure" regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches kind/message to a lower-level cause, preserving it for
// errors.Unwrap and for %+v stack rendering via github.com/pkg/errors.
func Wrap(cause error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: errors.WithStack(cause)}
}

// Sentinel values usable directly with errors.Is, e.g.
// errors.Is(err, rosterr.ErrSolverTimeout).
var (
	ErrValidationError       = New(ValidationError, "")
	ErrInfeasibleInstance    = New(InfeasibleInstance, "")
	ErrSolverTimeout         = New(SolverTimeout, "")
	ErrStateMachineViolation = New(StateMachineViolation, "")
	ErrFreezeViolation       = New(FreezeViolation, "")
	ErrIdempotencyConflict   = New(IdempotencyConflict, "")
	ErrDeterminismBroken     = New(DeterminismBroken, "")
	ErrIntegrityFault        = New(IntegrityFault, "")
)
