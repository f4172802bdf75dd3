/*
errors.go - Centralized error types for the planning engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers (API, CLI) classify errors with errors.Is / errors.As.

ERROR CATEGORIES:
  1. Validation errors - malformed task, busy interval, constraints or
     snapshot. Rejected before a planning run starts.
  2. Store errors - missing records.

  Infeasibility is NOT an error. A task that cannot be fully placed is
  reported in Result.Infeasible and the run continues for other tasks.

USAGE:
  if _, err := planner.Plan(snap); err != nil {
      var verr *planning.ValidationError
      if errors.As(err, &verr) {
          // verr.Field names the offending field
      }
  }

SEE ALSO:
  - types.go: constructors returning ValidationError
  - constraints.go: ConstraintSet.Validate
  - planner.go: snapshot validation
*/
package planning

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTask is returned for a task with a non-positive duration,
	// a missing deadline, or a deadline before the horizon start.
	ErrInvalidTask = errors.New("invalid task")

	// ErrInvalidBusyInterval is returned when a busy interval does not
	// satisfy start < end.
	ErrInvalidBusyInterval = errors.New("invalid busy interval")

	// ErrInvalidConstraints is returned for a malformed ConstraintSet.
	ErrInvalidConstraints = errors.New("invalid constraints")

	// ErrInvalidSnapshot is returned when the snapshot itself is malformed
	// (missing clock, non-positive horizon, duplicate task ids).
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrNotFound is returned by stores when a record doesn't exist.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError identifies the offending field of a rejected input.
type ValidationError struct {
	Kind    error  // one of the ErrInvalid* sentinels
	Field   string // e.g. "duration", "work_start", "tasks[2].deadline"
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%v: %s: %s (got %v)", e.Kind, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, field string, value any, message string) *ValidationError {
	return &ValidationError{Kind: kind, Field: field, Value: value, Message: message}
}

// withPrefix returns a copy of err whose field is qualified by prefix,
// e.g. "duration" -> "tasks[3].duration".
func withPrefix(err error, prefix string) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	cp := *verr
	cp.Field = prefix + "." + verr.Field
	return &cp
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid client input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTask) ||
		errors.Is(err, ErrInvalidBusyInterval) ||
		errors.Is(err, ErrInvalidConstraints) ||
		errors.Is(err, ErrInvalidSnapshot)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
