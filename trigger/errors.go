// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"errors"
	"fmt"
)

// Kind classifies evaluation failures.
type Kind uint8

const (
	KindUnknown Kind = iota
	// MalformedCiphertext is bad hex or binary structure in an operand or key.
	MalformedCiphertext
	// InvalidCondition is an unsupported comparison direction.
	InvalidCondition
	// UnknownStrategy is an unrecognized strategy_type.
	UnknownStrategy
	// MissingOperand is a bound required by the strategy but absent.
	MissingOperand
	// DecryptionFailed is any failure inside the trust boundary.
	DecryptionFailed
	// CeremonyMismatch is operands and evaluation key from different key
	// generation ceremonies.
	CeremonyMismatch
	// InvalidRequest is a request that is not well-formed JSON or carries
	// out-of-range fields.
	InvalidRequest
	// Overloaded is an evaluation rejected by admission control.
	Overloaded
	// Unavailable is a trust boundary that could not be reached.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case MalformedCiphertext:
		return "MalformedCiphertext"
	case InvalidCondition:
		return "InvalidCondition"
	case UnknownStrategy:
		return "UnknownStrategy"
	case MissingOperand:
		return "MissingOperand"
	case DecryptionFailed:
		return "DecryptionFailed"
	case CeremonyMismatch:
		return "CeremonyMismatch"
	case InvalidRequest:
		return "InvalidRequest"
	case Overloaded:
		return "Overloaded"
	case Unavailable:
		return "Unavailable"
	default:
		return "Unknown"
	}
}

// Error is the typed failure of an evaluation.
type Error struct {
	Kind Kind
	// Op names the step that failed
	Op  string
	Err error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so kind sentinels such as
// ErrUnknownStrategy work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrMalformedCiphertext = &Error{Kind: MalformedCiphertext}
	ErrInvalidCondition    = &Error{Kind: InvalidCondition}
	ErrUnknownStrategy     = &Error{Kind: UnknownStrategy}
	ErrMissingOperand      = &Error{Kind: MissingOperand}
	ErrDecryptionFailed    = &Error{Kind: DecryptionFailed}
	ErrCeremonyMismatch    = &Error{Kind: CeremonyMismatch}
	ErrInvalidRequest      = &Error{Kind: InvalidRequest}
	ErrOverloaded          = &Error{Kind: Overloaded}
	ErrUnavailable         = &Error{Kind: Unavailable}
)

// KindOf returns the kind carried by err, KindUnknown if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
