/*
Package seating provides the seat assignment engine.

PURPOSE:
  Places wedding guests at tables under two kinds of rules:
  - Capacity: the head count seated at a table never exceeds its capacity
  - Relationships: pairwise MUST_TOGETHER / MUST_APART constraints

  The engine offers single assignment, move, unassignment, ranked table
  suggestions and a greedy bulk auto-assignment. Everything else (guest and
  table CRUD, identity, realtime delivery) is a collaborator reached through
  the Store and Notifier interfaces.

KEY CONCEPTS IN THIS FILE (types.go):
  - Guest: a roster entry; HeadCount seats are consumed when placed
  - Table: a fixed-capacity seating unit
  - Assignment: binds one guest to one table (at most one per guest)
  - Constraint: an unordered guest pair that must sit together or apart
  - Role / Actor: who is calling and whether they may mutate

SEE ALSO:
  - engine.go: Operations (assign, move, unassign, suggest, auto-assign)
  - occupancy.go, constraint.go, scoring.go: Building blocks
  - store.go: Persistence interfaces
*/
package seating

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProjectID string
type GuestID string
type TableID string
type AreaID string
type AssignmentID string
type ConstraintID string

// =============================================================================
// ROSTER AND LAYOUT
// =============================================================================

// Guest is a roster entry. A single guest may stand for a family or party,
// in which case HeadCount is greater than one.
type Guest struct {
	ID        GuestID
	ProjectID ProjectID
	Name      string
	HeadCount int
	Tags      []string
	AreaID    AreaID // empty = no area
	CreatedAt time.Time
}

// HasArea reports whether the guest belongs to an area.
func (g Guest) HasArea() bool { return g.AreaID != "" }

// TagSet returns the guest's tags as a set. Duplicates collapse.
func (g Guest) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Tags))
	for _, t := range g.Tags {
		set[t] = struct{}{}
	}
	return set
}

// Validate checks the fields the engine relies on.
func (g Guest) Validate() error {
	if g.ProjectID == "" {
		return fmt.Errorf("%w: guest needs a project", ErrInvalidInput)
	}
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: guest needs a name", ErrInvalidInput)
	}
	if g.HeadCount < 1 {
		return fmt.Errorf("%w: head count must be at least 1, got %d", ErrInvalidInput, g.HeadCount)
	}
	return nil
}

// Table is a fixed-capacity seating unit. X and Y are layout-only.
type Table struct {
	ID        TableID
	ProjectID ProjectID
	Name      string
	Capacity  int
	AreaID    AreaID
	X, Y      float64
	CreatedAt time.Time
}

func (t Table) Validate() error {
	if t.ProjectID == "" {
		return fmt.Errorf("%w: table needs a project", ErrInvalidInput)
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table needs a name", ErrInvalidInput)
	}
	if t.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1, got %d", ErrInvalidInput, t.Capacity)
	}
	return nil
}

// Assignment binds one guest to one table.
type Assignment struct {
	ID        AssignmentID
	ProjectID ProjectID
	GuestID   GuestID
	TableID   TableID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

type ConstraintType string

const (
	MustTogether ConstraintType = "MUST_TOGETHER"
	MustApart    ConstraintType = "MUST_APART"
)

// ParseConstraintType accepts the canonical names case-insensitively.
func ParseConstraintType(s string) (ConstraintType, error) {
	switch ConstraintType(strings.ToUpper(strings.TrimSpace(s))) {
	case MustTogether:
		return MustTogether, nil
	case MustApart:
		return MustApart, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidConstraintType, s)
}

// Constraint is an unordered pair of guests with a seating requirement.
// Guest1ID/Guest2ID keep the order in which the pair was created, but the
// pair is compared without regard to order.
type Constraint struct {
	ID        ConstraintID
	ProjectID ProjectID
	Guest1ID  GuestID
	Guest2ID  GuestID
	Type      ConstraintType
	CreatedAt time.Time
}

// Other returns the partner of guestID in this constraint.
// ok is false when guestID is not a member, or when the constraint pairs a
// guest with itself.
func (c Constraint) Other(guestID GuestID) (other GuestID, ok bool) {
	if c.Guest1ID == c.Guest2ID {
		return "", false
	}
	switch guestID {
	case c.Guest1ID:
		return c.Guest2ID, true
	case c.Guest2ID:
		return c.Guest1ID, true
	}
	return "", false
}

// Involves reports whether the constraint links a and b, in either order.
func (c Constraint) Involves(a, b GuestID) bool {
	return (c.Guest1ID == a && c.Guest2ID == b) || (c.Guest1ID == b && c.Guest2ID == a)
}

// PairKey returns an order-independent key for the guest pair.
func PairKey(a, b GuestID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleOwner        Role = "owner"
	RoleCollaborator Role = "collaborator"
	RoleViewer       Role = "viewer"
)

// ParseRole maps a role name to a Role. Unknown names are rejected.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleOwner:
		return RoleOwner, nil
	case RoleCollaborator:
		return RoleCollaborator, nil
	case RoleViewer:
		return RoleViewer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanMutate reports whether the role may change seating state.
func CanMutate(r Role) bool {
	return r == RoleOwner || r == RoleCollaborator
}

// Actor is the authenticated caller, as decided by the identity collaborator.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) authorizeMutation() error {
	if !CanMutate(a.Role) {
		return fmt.Errorf("%w: role %q is read-only", ErrForbidden, a.Role)
	}
	return nil
}
