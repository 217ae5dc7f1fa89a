/*
errors.go - Centralized error types for the seating engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every error here is client-correctable and request-scoped; none is fatal
  to the hosting process.

ERROR CATEGORIES:
  1. Lookup errors - Referenced guest/table/constraint does not exist,
     or a new guest/table reuses a taken id
  2. State errors - Assign on an assigned guest, unassign on an unseated one
  3. Placement errors - Capacity exceeded, MUST_APART violated
  4. Constraint creation errors - Duplicate pair, self pair, bad type
  5. Authorization errors - Read-only role attempted a mutation

USAGE:
  Structured errors unwrap to their sentinel:

    var capErr *seating.CapacityExceededError
    if errors.As(err, &capErr) {
        fmt.Println(capErr.Remaining, capErr.Required)
    }
    if errors.Is(err, seating.ErrCapacityExceeded) { ... }

SEE ALSO:
  - engine.go: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package seating

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating a guest or table under an
	// id that is already taken, in any project.
	ErrAlreadyExists = errors.New("already exists")

	ErrAlreadyAssigned = errors.New("guest already assigned")
	ErrNotAssigned     = errors.New("guest not assigned")

	ErrCapacityExceeded    = errors.New("table capacity exceeded")
	ErrConstraintViolation = errors.New("seating constraint violated")

	ErrDuplicateConstraint   = errors.New("constraint already exists for this guest pair")
	ErrSelfConstraint        = errors.New("a guest cannot be constrained with itself")
	ErrInvalidConstraintType = errors.New("invalid constraint type")

	ErrForbidden = errors.New("forbidden")

	// ErrTableOccupied is returned when deleting a table that still holds guests.
	ErrTableOccupied = errors.New("table still has assigned guests")

	// ErrInvalidInput covers malformed directory input (non-positive head
	// count or capacity, empty names).
	ErrInvalidInput = errors.New("invalid input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the kind and id of the missing record.
type NotFoundError struct {
	Kind string // "guest", "table", "constraint", "assignment"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func notFound(kind string, id any) error {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

// CapacityExceededError reports the remaining and required seats.
type CapacityExceededError struct {
	TableID   TableID
	TableName string
	Remaining int
	Required  int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("table %q is too full: %d remaining, need %d",
		e.TableName, e.Remaining, e.Required)
}

func (e *CapacityExceededError) Unwrap() error {
	return ErrCapacityExceeded
}

// ConstraintViolationError names both guests of a violated MUST_APART pair.
type ConstraintViolationError struct {
	GuestID         GuestID
	GuestName       string
	ConflictingID   GuestID
	ConflictingName string
	TableID         TableID
	TableName       string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s and %s must not sit at the same table (%s)",
		e.GuestName, e.ConflictingName, e.TableName)
}

func (e *ConstraintViolationError) Unwrap() error {
	return ErrConstraintViolation
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to the caller's request
// rather than an infrastructure failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrNotAssigned) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrConstraintViolation) ||
		errors.Is(err, ErrDuplicateConstraint) ||
		errors.Is(err, ErrSelfConstraint) ||
		errors.Is(err, ErrInvalidConstraintType) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrTableOccupied) ||
		errors.Is(err, ErrInvalidInput)
}
