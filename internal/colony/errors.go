// Error taxonomy for colony operations. Every error carries the planet,
// the operation, and a reason so callers can decide retry vs. abort.
package colony

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a colony error for retry/abort decisions.
type ErrorKind uint8

const (
	// KindValidation: malformed input, rejected before any state read.
	KindValidation ErrorKind = iota + 1
	// KindConflict: a competing operation holds the slot; safe to retry later.
	KindConflict
	// KindResource: insufficient credits or resources; nothing was deducted.
	KindResource
	// KindStateTransition: illegal siege phase jump or action on a resolved
	// siege; logged for audit, never coerced.
	KindStateTransition
	// KindInfrastructure: ledger or store unreachable; retryable.
	KindInfrastructure
)

var errorKindNames = map[ErrorKind]string{
	KindValidation:      "validation",
	KindConflict:        "conflict",
	KindResource:        "resource",
	KindStateTransition: "state_transition",
	KindInfrastructure:  "infrastructure",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error_kind(%d)", uint8(k))
}

// Error is the uniform error type returned by colony operations.
type Error struct {
	Kind   ErrorKind
	Planet PlanetID
	Op     string
	Reason string
	Err    error // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: planet %s: %s (%s)", e.Op, e.Planet, e.Reason, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a colony error.
func NewError(kind ErrorKind, planet PlanetID, op, reason string) *Error {
	return &Error{Kind: kind, Planet: planet, Op: op, Reason: reason}
}

// WrapError builds a colony error around a cause.
func WrapError(kind ErrorKind, planet PlanetID, op string, err error) *Error {
	return &Error{Kind: kind, Planet: planet, Op: op, Reason: err.Error(), Err: err}
}

const notFoundReason = "planet not found"

// NotFound builds the canonical unknown-planet error.
func NotFound(planet PlanetID, op string) *Error {
	return NewError(KindValidation, planet, op, notFoundReason)
}

// IsNotFound reports whether err is an unknown-planet error.
func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Reason == notFoundReason
}

// KindOf extracts the ErrorKind from err, or 0 when err is not a colony error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// IsRetryable reports whether the caller may retry the operation as-is.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindInfrastructure:
		return true
	}
	return false
}
