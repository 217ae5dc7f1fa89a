/*
engine.go - Seat assignment engine

PURPOSE:
  Orchestrates every seating mutation and read:
  - Assign:           seat an unseated guest at a table
  - Unassign:         release a guest's seat
  - Move:             seat or re-seat a guest at another table
  - AddConstraint / RemoveConstraint: manage pairwise rules
  - Suggest:          rank up to 5 tables for one guest (read-only)
  - AutoAssign:       greedily seat every unseated guest of a project

REQUEST FLOW:
  ┌───────────┐   ┌─────────────┐   ┌───────────────┐   ┌────────┐   ┌──────────┐
  │ authorize │──▶│ lock project│──▶│ read + check  │──▶│ commit │──▶│ publish  │
  └───────────┘   └─────────────┘   │ (inside tx)   │   │ + audit│   │ event    │
                                    └───────────────┘   └────────┘   └──────────┘

  Every precondition is checked before anything is written. Nothing is
  partially applied and rolled back for single-guest operations.

CONCURRENCY:
  Mutations of one project run one at a time (per-project mutex) and each
  commit goes through TxStore.WithTx, so the capacity and MUST_APART checks
  and the write are atomic with respect to other engine calls. Events are
  published after the lock is released, so a slow observer never holds up
  the next mutation. Suggest takes no lock.

AUTO-ASSIGN:
  Guests are placed largest party first. A working set (table -> occupants)
  is threaded through the loop and updated after every placement so later
  guests see the seats taken by earlier ones. Each placement is committed on
  its own: a store failure on guest N leaves guests 1..N-1 seated.
  The pass must stay sequential.

SEE ALSO:
  - occupancy.go, constraint.go, scoring.go: Building blocks
  - notifier.go: Events published after commit
*/
package seating

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxSuggestions is how many tables Suggest returns at most.
const MaxSuggestions = 5

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store    TxStore
	Notifier Notifier
	Logger   zerolog.Logger

	SuggestScoring    ScoringStrategy
	AutoAssignScoring ScoringStrategy

	Now   func() time.Time
	NewID func() string

	locks projectLocks
}

// NewEngine wires an engine with the default scoring strategies.
func NewEngine(store TxStore, notifier Notifier, logger zerolog.Logger) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{
		Store:             store,
		Notifier:          notifier,
		Logger:            logger,
		SuggestScoring:    FullScoring,
		AutoAssignScoring: TagAffinityScoring,
		Now:               func() time.Time { return time.Now().UTC() },
		NewID:             uuid.NewString,
	}
}

// projectLocks hands out one mutex per project.
type projectLocks struct {
	mu    sync.Mutex
	locks map[ProjectID]*sync.Mutex
}

// lockedTx runs fn in a transaction while holding the project's mutex.
// The mutex is released on return, before the caller publishes events.
func (e *Engine) lockedTx(ctx context.Context, projectID ProjectID, fn func(Store) error) error {
	unlock := e.locks.lock(projectID)
	defer unlock()
	return e.Store.WithTx(ctx, fn)
}

func (pl *projectLocks) lock(id ProjectID) (unlock func()) {
	pl.mu.Lock()
	if pl.locks == nil {
		pl.locks = make(map[ProjectID]*sync.Mutex)
	}
	m, ok := pl.locks[id]
	if !ok {
		m = &sync.Mutex{}
		pl.locks[id] = m
	}
	pl.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// =============================================================================
// EVENT PAYLOADS
// =============================================================================

// SeatingEvent is the payload published with every seating event. It carries
// enough for observers to refresh the guests and tables it names.
type SeatingEvent struct {
	GuestID       GuestID `json:"guest_id,omitempty"`
	TableID       TableID `json:"table_id,omitempty"`
	FromTableID   TableID `json:"from_table_id,omitempty"`
	ActorID       string  `json:"actor_id,omitempty"`
	AssignedCount int     `json:"assigned_count,omitempty"`
	FailedCount   int     `json:"failed_count,omitempty"`
}

// =============================================================================
// ASSIGN / UNASSIGN / MOVE
// =============================================================================

// Assign seats an unseated guest at tableID.
func (e *Engine) Assign(ctx context.Context, actor Actor, guestID GuestID, tableID TableID) (*Assignment, error) {
	if err := actor.authorizeMutation(); err != nil {
		return nil, err
	}
	guest, err := e.Store.GetGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	var created Assignment
	err = e.lockedTx(ctx, guest.ProjectID, func(s Store) error {
		guest, err := s.GetGuest(ctx, guestID)
		if err != nil {
			return err
		}
		existing, err := s.GetAssignmentByGuest(ctx, guestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s is already seated", ErrAlreadyAssigned, guest.Name)
		}
		table, err := tableInProject(ctx, s, tableID, guest.ProjectID)
		if err != nil {
			return err
		}
		if err := checkPlacement(ctx, s, guest, table); err != nil {
			return err
		}

		now := e.Now()
		created = Assignment{
			ID:        AssignmentID(e.NewID()),
			ProjectID: guest.ProjectID,
			GuestID:   guest.ID,
			TableID:   table.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateAssignment(ctx, created); err != nil {
			return err
		}
		return e.audit(ctx, s, actor, guest.ProjectID, AuditAssigned, guest.ID, table.ID, map[string]any{
			"guest_name": guest.Name,
			"table_name": table.Name,
			"head_count": guest.HeadCount,
		})
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info().
		Str("project_id", string(created.ProjectID)).
		Str("guest_id", string(created.GuestID)).
		Str("table_id", string(created.TableID)).
		Msg("guest assigned")
	e.publish(ctx, created.ProjectID, EventAssigned, SeatingEvent{
		GuestID: created.GuestID,
		TableID: created.TableID,
		ActorID: actor.ID,
	})
	return &created, nil
}

// Unassign releases the seat held by guestID.
func (e *Engine) Unassign(ctx context.Context, actor Actor, guestID GuestID) error {
	if err := actor.authorizeMutation(); err != nil {
		return err
	}
	guest, err := e.Store.GetGuest(ctx, guestID)
	if err != nil {
		return err
	}

	var released Assignment
	err = e.lockedTx(ctx, guest.ProjectID, func(s Store) error {
		existing, err := s.GetAssignmentByGuest(ctx, guestID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s has no seat", ErrNotAssigned, guest.Name)
		}
		released = *existing

		tableName := string(existing.TableID)
		if table, err := s.GetTable(ctx, existing.TableID); err == nil {
			tableName = table.Name
		}
		if err := s.DeleteAssignment(ctx, guestID); err != nil {
			return err
		}
		return e.audit(ctx, s, actor, guest.ProjectID, AuditUnassigned, guest.ID, existing.TableID, map[string]any{
			"guest_name": guest.Name,
			"table_name": tableName,
		})
	})
	if err != nil {
		return err
	}

	e.Logger.Info().
		Str("project_id", string(guest.ProjectID)).
		Str("guest_id", string(guest.ID)).
		Str("table_id", string(released.TableID)).
		Msg("guest unassigned")
	e.publish(ctx, guest.ProjectID, EventUnassigned, SeatingEvent{
		GuestID:     guest.ID,
		FromTableID: released.TableID,
		ActorID:     actor.ID,
	})
	return nil
}

// Move seats guestID at newTableID. A seated guest is relocated; an unseated
// guest is assigned. Only the destination's capacity is checked, and the
// guest's own seat never counts against it.
func (e *Engine) Move(ctx context.Context, actor Actor, guestID GuestID, newTableID TableID) (*Assignment, error) {
	if err := actor.authorizeMutation(); err != nil {
		return nil, err
	}
	guest, err := e.Store.GetGuest(ctx, guestID)
	if err != nil {
		return nil, err
	}

	var (
		result    Assignment
		fromTable TableID
	)
	err = e.lockedTx(ctx, guest.ProjectID, func(s Store) error {
		guest, err := s.GetGuest(ctx, guestID)
		if err != nil {
			return err
		}
		dest, err := tableInProject(ctx, s, newTableID, guest.ProjectID)
		if err != nil {
			return err
		}
		existing, err := s.GetAssignmentByGuest(ctx, guestID)
		if err != nil {
			return err
		}
		if err := checkPlacement(ctx, s, guest, dest); err != nil {
			return err
		}

		now := e.Now()
		fromName := "unassigned"
		if existing != nil {
			fromTable = existing.TableID
			fromName = string(existing.TableID)
			if src, err := s.GetTable(ctx, existing.TableID); err == nil {
				fromName = src.Name
			}
			if err := s.MoveAssignment(ctx, guestID, dest.ID, now); err != nil {
				return err
			}
			result = *existing
			result.TableID = dest.ID
			result.UpdatedAt = now
		} else {
			result = Assignment{
				ID:        AssignmentID(e.NewID()),
				ProjectID: guest.ProjectID,
				GuestID:   guest.ID,
				TableID:   dest.ID,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.CreateAssignment(ctx, result); err != nil {
				return err
			}
		}
		return e.audit(ctx, s, actor, guest.ProjectID, AuditMoved, guest.ID, dest.ID, map[string]any{
			"guest_name": guest.Name,
			"from_table": fromName,
			"to_table":   dest.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info().
		Str("project_id", string(guest.ProjectID)).
		Str("guest_id", string(guest.ID)).
		Str("from_table_id", string(fromTable)).
		Str("table_id", string(result.TableID)).
		Msg("guest moved")
	e.publish(ctx, guest.ProjectID, EventMoved, SeatingEvent{
		GuestID:     guest.ID,
		TableID:     result.TableID,
		FromTableID: fromTable,
		ActorID:     actor.ID,
	})
	return &result, nil
}

// tableInProject loads a table and hides tables of other projects.
func tableInProject(ctx context.Context, s Store, id TableID, projectID ProjectID) (Table, error) {
	table, err := s.GetTable(ctx, id)
	if err != nil {
		return Table{}, err
	}
	if table.ProjectID != projectID {
		return Table{}, notFound("table", id)
	}
	return table, nil
}

// checkPlacement validates capacity, then MUST_APART, for seating guest at
// table. The guest itself is never counted as an occupant.
func checkPlacement(ctx context.Context, s Store, guest Guest, table Table) error {
	occupants, err := tableOccupants(ctx, s, table.ID, guest.ID)
	if err != nil {
		return err
	}
	occ := CalculateOccupancy(table, occupants)
	if !occ.Fits(guest.HeadCount) {
		return &CapacityExceededError{
			TableID:   table.ID,
			TableName: table.Name,
			Remaining: occ.Available,
			Required:  guest.HeadCount,
		}
	}

	constraints, err := s.ListConstraintsForGuest(ctx, guest.ID)
	if err != nil {
		return err
	}
	check := CheckConstraints(guest.ID, occupantSet(occupants), constraints)
	if !check.Admissible {
		conflict := &ConstraintViolationError{
			GuestID:       guest.ID,
			GuestName:     guest.Name,
			ConflictingID: check.ConflictsWith,
			TableID:       table.ID,
			TableName:     table.Name,
		}
		for _, o := range occupants {
			if o.ID == check.ConflictsWith {
				conflict.ConflictingName = o.Name
			}
		}
		return conflict
	}
	return nil
}

// tableOccupants resolves the guests seated at a table, minus exclude.
func tableOccupants(ctx context.Context, s Store, tableID TableID, exclude GuestID) ([]Guest, error) {
	assignments, err := s.ListAssignmentsByTable(ctx, tableID)
	if err != nil {
		return nil, err
	}
	occupants := make([]Guest, 0, len(assignments))
	for _, a := range assignments {
		if a.GuestID == exclude {
			continue
		}
		g, err := s.GetGuest(ctx, a.GuestID)
		if err != nil {
			return nil, fmt.Errorf("resolve occupant of table %s: %w", tableID, err)
		}
		occupants = append(occupants, g)
	}
	return occupants, nil
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

// AddConstraint records a seating requirement between two guests of a project.
func (e *Engine) AddConstraint(ctx context.Context, actor Actor, projectID ProjectID, guest1, guest2 GuestID, constraintType string) (*Constraint, error) {
	if err := actor.authorizeMutation(); err != nil {
		return nil, err
	}
	if guest1 == guest2 {
		return nil, ErrSelfConstraint
	}
	ct, err := ParseConstraintType(constraintType)
	if err != nil {
		return nil, err
	}

	var created Constraint
	err = e.lockedTx(ctx, projectID, func(s Store) error {
		g1, err := guestInProject(ctx, s, guest1, projectID)
		if err != nil {
			return err
		}
		g2, err := guestInProject(ctx, s, guest2, projectID)
		if err != nil {
			return err
		}
		existing, err := s.ListConstraintsForGuest(ctx, g1.ID)
		if err != nil {
			return err
		}
		for _, c := range existing {
			if c.Involves(g1.ID, g2.ID) {
				return fmt.Errorf("%w: %s and %s already have a %s constraint",
					ErrDuplicateConstraint, g1.Name, g2.Name, c.Type)
			}
		}

		created = Constraint{
			ID:        ConstraintID(e.NewID()),
			ProjectID: projectID,
			Guest1ID:  g1.ID,
			Guest2ID:  g2.ID,
			Type:      ct,
			CreatedAt: e.Now(),
		}
		if err := s.CreateConstraint(ctx, created); err != nil {
			return err
		}
		return e.audit(ctx, s, actor, projectID, AuditConstraintAdded, g1.ID, "", map[string]any{
			"constraint_id": string(created.ID),
			"guest1_name":   g1.Name,
			"guest2_name":   g2.Name,
			"type":          string(ct),
		})
	})
	if err != nil {
		return nil, err
	}

	e.Logger.Info().
		Str("project_id", string(projectID)).
		Str("constraint_id", string(created.ID)).
		Str("type", string(ct)).
		Msg("constraint added")
	return &created, nil
}

// RemoveConstraint deletes a constraint. Seats are not touched.
func (e *Engine) RemoveConstraint(ctx context.Context, actor Actor, constraintID ConstraintID) error {
	if err := actor.authorizeMutation(); err != nil {
		return err
	}
	c, err := e.Store.GetConstraint(ctx, constraintID)
	if err != nil {
		return err
	}

	err = e.lockedTx(ctx, c.ProjectID, func(s Store) error {
		if err := s.DeleteConstraint(ctx, constraintID); err != nil {
			return err
		}
		return e.audit(ctx, s, actor, c.ProjectID, AuditConstraintRemoved, c.Guest1ID, "", map[string]any{
			"constraint_id": string(c.ID),
			"guest2_id":     string(c.Guest2ID),
			"type":          string(c.Type),
		})
	})
	if err != nil {
		return err
	}

	e.Logger.Info().
		Str("project_id", string(c.ProjectID)).
		Str("constraint_id", string(c.ID)).
		Msg("constraint removed")
	return nil
}

func guestInProject(ctx context.Context, s Store, id GuestID, projectID ProjectID) (Guest, error) {
	g, err := s.GetGuest(ctx, id)
	if err != nil {
		return Guest{}, err
	}
	if g.ProjectID != projectID {
		return Guest{}, notFound("guest", id)
	}
	return g, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) audit(ctx context.Context, s Store, actor Actor, projectID ProjectID, action AuditAction, guestID GuestID, tableID TableID, payload map[string]any) error {
	entry := AuditEntry{
		ID:        e.NewID(),
		ProjectID: projectID,
		Timestamp: e.Now(),
		ActorID:   actor.ID,
		Action:    action,
		GuestID:   guestID,
		TableID:   tableID,
		Payload:   payload,
	}
	if err := s.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// publish runs after commit, so a delivery failure is logged, not returned.
func (e *Engine) publish(ctx context.Context, projectID ProjectID, event string, payload SeatingEvent) {
	if err := e.Notifier.Publish(ctx, projectID, event, payload); err != nil {
		e.Logger.Warn().Err(err).
			Str("project_id", string(projectID)).
			Str("event", event).
			Msg("failed to publish seating event")
	}
}

// sortByHeadCountDesc orders guests largest party first, keeping the
// roster order among equal head counts.
func sortByHeadCountDesc(guests []Guest) {
	sort.SliceStable(guests, func(i, j int) bool {
		return guests[i].HeadCount > guests[j].HeadCount
	})
}
