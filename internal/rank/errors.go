package rank

import (
	"errors"
	"fmt"

	"github.com/roach88/ranked/internal/ir"
)

// Error represents a condition the ranker surfaces to its caller.
//
// Errors include:
//   - Position out of range: dense-mode index outside [0, count]
//   - Scope capacity exhausted: no spacing left for one more record
//   - Concurrency conflict: the store reported a lock timeout or
//     serialization failure (set by adapters, never retried here)
//
// Every other collision is resolved internally. A caller receiving an Error
// must abort its transaction.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Scope is the canonical form of the affected scope key.
	Scope string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes ranker errors.
type ErrorCode string

const (
	// ErrCodePositionOutOfRange indicates a dense-mode index outside the list.
	ErrCodePositionOutOfRange ErrorCode = "POSITION_OUT_OF_RANGE"

	// ErrCodeScopeCapacityExhausted indicates [Min, Max] cannot hold one
	// more record at any spacing.
	ErrCodeScopeCapacityExhausted ErrorCode = "SCOPE_CAPACITY_EXHAUSTED"

	// ErrCodeConcurrencyConflict indicates the store gave up waiting for a
	// lock or aborted a serialization conflict.
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Scope != "" {
		msg += fmt.Sprintf(" (scope=%s)", e.Scope)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsPositionOutOfRange returns true if err is a position error.
// Uses errors.As to handle wrapped errors.
func IsPositionOutOfRange(err error) bool {
	return hasCode(err, ErrCodePositionOutOfRange)
}

// IsCapacityExhausted returns true if err is a scope capacity error.
func IsCapacityExhausted(err error) bool {
	return hasCode(err, ErrCodeScopeCapacityExhausted)
}

// IsConcurrencyConflict returns true if err is a concurrency conflict.
func IsConcurrencyConflict(err error) bool {
	return hasCode(err, ErrCodeConcurrencyConflict)
}

// CodeOf returns the ErrorCode carried by err, or "" if none.
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func hasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewPositionError creates an Error for a rejected dense-mode index.
func NewPositionError(scope ir.ScopeKey, requested, count int) *Error {
	return &Error{
		Code:    ErrCodePositionOutOfRange,
		Message: fmt.Sprintf("position %d outside [0, %d]", requested, count),
		Scope:   scope.String(),
		Details: map[string]string{
			"requested": fmt.Sprintf("%d", requested),
			"max":       fmt.Sprintf("%d", count),
		},
	}
}

// NewCapacityError creates an Error for a scope that cannot fit n records
// into [min, max].
func NewCapacityError(scope ir.ScopeKey, n int64, cfg Config) *Error {
	return &Error{
		Code:    ErrCodeScopeCapacityExhausted,
		Message: fmt.Sprintf("cannot space %d records within [%d, %d]", n, cfg.Min, cfg.Max),
		Scope:   scope.String(),
		Details: map[string]string{
			"records": fmt.Sprintf("%d", n),
			"min":     fmt.Sprintf("%d", cfg.Min),
			"max":     fmt.Sprintf("%d", cfg.Max),
		},
	}
}

// NewConflictError wraps a store lock or serialization failure. The cause is
// kept unchanged and reachable through errors.Unwrap.
func NewConflictError(cause error) *Error {
	return &Error{
		Code:    ErrCodeConcurrencyConflict,
		Message: "store reported a lock or serialization conflict",
		Err:     cause,
	}
}
