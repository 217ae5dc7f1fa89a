package seating

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// DIRECTORY - Roster and layout maintenance
// =============================================================================
//
// Guests and tables are owned by the project's directory, not by the engine.
// These operations exist so one process can serve a whole project; they go
// through the same role check and project lock as seating mutations.

// CreateGuest validates and stores a new guest. ID and CreatedAt are filled
// in when empty. An id already used by any guest is ErrAlreadyExists.
func (e *Engine) CreateGuest(ctx context.Context, actor Actor, g Guest) (Guest, error) {
	if err := actor.authorizeMutation(); err != nil {
		return Guest{}, err
	}
	g.Name = strings.TrimSpace(g.Name)
	if err := g.Validate(); err != nil {
		return Guest{}, err
	}
	if g.ID == "" {
		g.ID = GuestID(e.NewID())
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = e.Now()
	}
	g.Tags = normalizeTags(g.Tags)

	unlock := e.locks.lock(g.ProjectID)
	defer unlock()

	if err := e.Store.CreateGuest(ctx, g); err != nil {
		return Guest{}, fmt.Errorf("save guest: %w", err)
	}
	e.Logger.Debug().
		Str("project_id", string(g.ProjectID)).
		Str("guest_id", string(g.ID)).
		Int("head_count", g.HeadCount).
		Msg("guest created")
	return g, nil
}

// DeleteGuest removes a guest with its seat and constraints. Observers are
// told about the released seat.
func (e *Engine) DeleteGuest(ctx context.Context, actor Actor, projectID ProjectID, guestID GuestID) error {
	if err := actor.authorizeMutation(); err != nil {
		return err
	}

	var released *Assignment
	err := e.lockedTx(ctx, projectID, func(s Store) error {
		if _, err := guestInProject(ctx, s, guestID, projectID); err != nil {
			return err
		}
		var err error
		if released, err = s.GetAssignmentByGuest(ctx, guestID); err != nil {
			return err
		}
		return s.DeleteGuest(ctx, guestID)
	})
	if err != nil {
		return err
	}

	e.Logger.Info().
		Str("project_id", string(projectID)).
		Str("guest_id", string(guestID)).
		Bool("released_seat", released != nil).
		Msg("guest deleted")
	if released != nil {
		e.publish(ctx, projectID, EventUnassigned, SeatingEvent{
			GuestID:     guestID,
			FromTableID: released.TableID,
			ActorID:     actor.ID,
		})
	}
	return nil
}

// CreateTable validates and stores a new table. An id already used by any
// table is ErrAlreadyExists.
func (e *Engine) CreateTable(ctx context.Context, actor Actor, t Table) (Table, error) {
	if err := actor.authorizeMutation(); err != nil {
		return Table{}, err
	}
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	if t.ID == "" {
		t.ID = TableID(e.NewID())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = e.Now()
	}

	unlock := e.locks.lock(t.ProjectID)
	defer unlock()

	if err := e.Store.CreateTable(ctx, t); err != nil {
		return Table{}, fmt.Errorf("save table: %w", err)
	}
	e.Logger.Debug().
		Str("project_id", string(t.ProjectID)).
		Str("table_id", string(t.ID)).
		Int("capacity", t.Capacity).
		Msg("table created")
	return t, nil
}

// DeleteTable removes an empty table. A table with any seated guest is
// refused with ErrTableOccupied.
func (e *Engine) DeleteTable(ctx context.Context, actor Actor, projectID ProjectID, tableID TableID) error {
	if err := actor.authorizeMutation(); err != nil {
		return err
	}

	err := e.lockedTx(ctx, projectID, func(s Store) error {
		table, err := tableInProject(ctx, s, tableID, projectID)
		if err != nil {
			return err
		}
		seated, err := s.ListAssignmentsByTable(ctx, tableID)
		if err != nil {
			return err
		}
		if len(seated) > 0 {
			return fmt.Errorf("%w: %s still seats %d %s", ErrTableOccupied, table.Name,
				len(seated), plural(len(seated), "guest", "guests"))
		}
		return s.DeleteTable(ctx, tableID)
	})
	if err != nil {
		return err
	}
	e.Logger.Info().
		Str("project_id", string(projectID)).
		Str("table_id", string(tableID)).
		Msg("table deleted")
	return nil
}

// DeleteProject removes everything the project owns. Owners only.
func (e *Engine) DeleteProject(ctx context.Context, actor Actor, projectID ProjectID) error {
	if actor.Role != RoleOwner {
		return fmt.Errorf("%w: only the owner may delete a project", ErrForbidden)
	}

	unlock := e.locks.lock(projectID)
	defer unlock()

	if err := e.Store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	e.Logger.Info().Str("project_id", string(projectID)).Str("actor_id", actor.ID).Msg("project deleted")
	return nil
}

// normalizeTags trims tags and drops empty ones and repeats, keeping order.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
