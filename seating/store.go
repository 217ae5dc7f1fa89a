/*
store.go - Persistence interfaces for the seating engine

PURPOSE:
  Defines the interface between the seating logic and the database.
  The engine reads guests, tables, assignments and constraints, and writes
  assignments, constraints and audit entries. Guest and table writes exist
  so the directory collaborators and tests can share one store.

KEY INTERFACES:
  Store:    Reads and writes for a single project's seating state
  TxStore:  Store plus atomic read-check-write via WithTx
  AuditLog: Append-only who-did-what-when records

ORDERING:
  ListGuests and ListTables return records in creation order. Suggestion
  ties and auto-assign ties are broken by this order, so implementations
  must keep it stable.

UNIQUENESS (enforced by implementations, not only by the engine):
  - At most one assignment per guest: CreateAssignment returns
    ErrAlreadyAssigned on a second insert.
  - At most one constraint per unordered guest pair: CreateConstraint
    returns ErrDuplicateConstraint for (a,b) when (a,b) or (b,a) exists.

MISSING RECORDS:
  Getters return an error wrapping ErrNotFound (usually *NotFoundError).
  GetAssignmentByGuest is the exception: (nil, nil) means "not seated".

IMPLEMENTATIONS:
  - seating/store/memory.go: In-memory for tests and development
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - engine.go: Uses TxStore
*/
package seating

import (
	"context"
	"time"
)

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	AuditLog

	// Guests
	// CreateGuest inserts a guest. A taken id is ErrAlreadyExists; existing
	// guests are never overwritten.
	CreateGuest(ctx context.Context, g Guest) error
	GetGuest(ctx context.Context, id GuestID) (Guest, error)
	ListGuests(ctx context.Context, projectID ProjectID) ([]Guest, error)
	// DeleteGuest removes the guest, its assignment and its constraints.
	DeleteGuest(ctx context.Context, id GuestID) error

	// Tables
	// CreateTable inserts a table. A taken id is ErrAlreadyExists.
	CreateTable(ctx context.Context, t Table) error
	GetTable(ctx context.Context, id TableID) (Table, error)
	ListTables(ctx context.Context, projectID ProjectID) ([]Table, error)
	// DeleteTable returns ErrTableOccupied while any assignment references it.
	DeleteTable(ctx context.Context, id TableID) error

	// Assignments
	GetAssignmentByGuest(ctx context.Context, guestID GuestID) (*Assignment, error)
	ListAssignments(ctx context.Context, projectID ProjectID) ([]Assignment, error)
	ListAssignmentsByTable(ctx context.Context, tableID TableID) ([]Assignment, error)
	CreateAssignment(ctx context.Context, a Assignment) error
	// MoveAssignment points the guest's existing assignment at tableID.
	MoveAssignment(ctx context.Context, guestID GuestID, tableID TableID, at time.Time) error
	DeleteAssignment(ctx context.Context, guestID GuestID) error

	// Constraints
	CreateConstraint(ctx context.Context, c Constraint) error
	GetConstraint(ctx context.Context, id ConstraintID) (Constraint, error)
	ListConstraints(ctx context.Context, projectID ProjectID) ([]Constraint, error)
	// ListConstraintsForGuest returns constraints where the guest is either member.
	ListConstraintsForGuest(ctx context.Context, guestID GuestID) ([]Constraint, error)
	DeleteConstraint(ctx context.Context, id ConstraintID) error

	// DeleteProject removes everything the project owns.
	DeleteProject(ctx context.Context, projectID ProjectID) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	ProjectID ProjectID
	Timestamp time.Time
	ActorID   string
	Action    AuditAction
	GuestID   GuestID
	TableID   TableID
	Payload   map[string]any
}

type AuditAction string

const (
	AuditAssigned          AuditAction = "seating_assigned"
	AuditUnassigned        AuditAction = "seating_unassigned"
	AuditMoved             AuditAction = "seating_moved"
	AuditAutoAssigned      AuditAction = "seating_auto_assigned"
	AuditConstraintAdded   AuditAction = "constraint_added"
	AuditConstraintRemoved AuditAction = "constraint_removed"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	ProjectID ProjectID
	GuestID   *GuestID
	Actions   []AuditAction
	Limit     int // 0 = no limit
}

// Matches reports whether e passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	if f.GuestID != nil && e.GuestID != *f.GuestID {
		return false
	}
	if len(f.Actions) > 0 {
		found := false
		for _, a := range f.Actions {
			if a == e.Action {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
