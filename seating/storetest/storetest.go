// Package storetest checks that a seating.TxStore honours the contract the
// engine relies on. Store implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/seating-engine/seating"
)

const project seating.ProjectID = "p1"

var base = time.Date(2026, 6, 20, 15, 0, 0, 0, time.UTC)

// Run executes the contract suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) seating.TxStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s seating.TxStore)
	}{
		{"GuestsRoundTripInCreationOrder", testGuests},
		{"TablesRoundTripInCreationOrder", testTables},
		{"CreateNeverOverwrites", testCreateNeverOverwrites},
		{"OneAssignmentPerGuest", testOneAssignmentPerGuest},
		{"MoveAndDeleteAssignment", testMoveAndDelete},
		{"ConstraintPairIsUnordered", testConstraintPairUnordered},
		{"DeleteGuestCascades", testDeleteGuestCascades},
		{"DeleteTableRefusedWhileOccupied", testDeleteTableOccupied},
		{"WithTxRollsBack", testWithTxRollback},
		{"WithTxCommits", testWithTxCommit},
		{"AuditNewestFirst", testAuditOrder},
		{"DeleteProjectIsScoped", testDeleteProjectScoped},
		{"MissingRecordsAreNotFound", testNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func guest(id string, headCount int, tags ...string) seating.Guest {
	return seating.Guest{
		ID:        seating.GuestID(id),
		ProjectID: project,
		Name:      "Guest " + id,
		HeadCount: headCount,
		Tags:      tags,
		CreatedAt: base,
	}
}

func table(id string, capacity int) seating.Table {
	return seating.Table{
		ID:        seating.TableID(id),
		ProjectID: project,
		Name:      "Table " + id,
		Capacity:  capacity,
		CreatedAt: base,
	}
}

func assignment(guestID, tableID string) seating.Assignment {
	return seating.Assignment{
		ID:        seating.AssignmentID("a-" + guestID),
		ProjectID: project,
		GuestID:   seating.GuestID(guestID),
		TableID:   seating.TableID(tableID),
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func seed(t *testing.T, s seating.Store, guests []seating.Guest, tables []seating.Table) {
	t.Helper()
	ctx := context.Background()
	for _, g := range guests {
		require.NoError(t, s.CreateGuest(ctx, g))
	}
	for _, tb := range tables {
		require.NoError(t, s.CreateTable(ctx, tb))
	}
}

// =============================================================================
// CASES
// =============================================================================

func testGuests(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g2", 2, "family", "kids"), guest("g1", 1)}, nil)
	other := guest("g3", 1)
	other.ProjectID = "p2"
	require.NoError(t, s.CreateGuest(ctx, other))

	got, err := s.ListGuests(ctx, project)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, seating.GuestID("g2"), got[0].ID, "creation order, not id order")
	assert.Equal(t, []string{"family", "kids"}, got[0].Tags)
	assert.Equal(t, 2, got[0].HeadCount)
	assert.True(t, base.Equal(got[0].CreatedAt))

	g, err := s.GetGuest(ctx, "g3")
	require.NoError(t, err)
	assert.Equal(t, seating.ProjectID("p2"), g.ProjectID)
}

func testCreateNeverOverwrites(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1, "family")}, []seating.Table{table("t1", 2)})

	bigger := guest("g1", 9)
	bigger.ProjectID = "p2"
	err := s.CreateGuest(ctx, bigger)
	assert.ErrorIs(t, err, seating.ErrAlreadyExists)

	smaller := table("t1", 1)
	smaller.ProjectID = "p2"
	err = s.CreateTable(ctx, smaller)
	assert.ErrorIs(t, err, seating.ErrAlreadyExists)

	g, err := s.GetGuest(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, project, g.ProjectID)
	assert.Equal(t, 1, g.HeadCount)
	assert.Equal(t, []string{"family"}, g.Tags)
	tb, err := s.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, project, tb.ProjectID)
	assert.Equal(t, 2, tb.Capacity)

	others, err := s.ListGuests(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func testTables(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	t2 := table("t2", 8)
	t2.AreaID = "garden"
	t2.X, t2.Y = 120.5, 40
	seed(t, s, nil, []seating.Table{t2, table("t1", 10)})

	got, err := s.ListTables(ctx, project)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, seating.TableID("t2"), got[0].ID)
	assert.Equal(t, seating.AreaID("garden"), got[0].AreaID)
	assert.Equal(t, 120.5, got[0].X)
	assert.Equal(t, 8, got[0].Capacity)
}

func testOneAssignmentPerGuest(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1)}, []seating.Table{table("t1", 4), table("t2", 4)})

	require.NoError(t, s.CreateAssignment(ctx, assignment("g1", "t1")))
	second := assignment("g1", "t2")
	second.ID = "a-other"
	err := s.CreateAssignment(ctx, second)

	assert.ErrorIs(t, err, seating.ErrAlreadyAssigned)
	a, err := s.GetAssignmentByGuest(ctx, "g1")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, seating.TableID("t1"), a.TableID)
}

func testMoveAndDelete(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1), guest("g2", 2)}, []seating.Table{table("t1", 4), table("t2", 4)})
	require.NoError(t, s.CreateAssignment(ctx, assignment("g1", "t1")))
	require.NoError(t, s.CreateAssignment(ctx, assignment("g2", "t1")))

	later := base.Add(time.Hour)
	require.NoError(t, s.MoveAssignment(ctx, "g1", "t2", later))

	a, err := s.GetAssignmentByGuest(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, seating.TableID("t2"), a.TableID)
	assert.Equal(t, seating.AssignmentID("a-g1"), a.ID)
	assert.True(t, later.Equal(a.UpdatedAt))

	onT1, err := s.ListAssignmentsByTable(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, onT1, 1)
	assert.Equal(t, seating.GuestID("g2"), onT1[0].GuestID)

	require.NoError(t, s.DeleteAssignment(ctx, "g2"))
	a, err = s.GetAssignmentByGuest(ctx, "g2")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.ErrorIs(t, s.DeleteAssignment(ctx, "g2"), seating.ErrNotAssigned)

	all, err := s.ListAssignments(ctx, project)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testConstraintPairUnordered(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1), guest("g2", 1), guest("g3", 1)}, nil)

	require.NoError(t, s.CreateConstraint(ctx, seating.Constraint{
		ID: "c1", ProjectID: project, Guest1ID: "g1", Guest2ID: "g2", Type: seating.MustApart, CreatedAt: base,
	}))
	err := s.CreateConstraint(ctx, seating.Constraint{
		ID: "c2", ProjectID: project, Guest1ID: "g2", Guest2ID: "g1", Type: seating.MustTogether, CreatedAt: base,
	})
	assert.ErrorIs(t, err, seating.ErrDuplicateConstraint)

	require.NoError(t, s.CreateConstraint(ctx, seating.Constraint{
		ID: "c3", ProjectID: project, Guest1ID: "g3", Guest2ID: "g2", Type: seating.MustTogether, CreatedAt: base,
	}))

	forG2, err := s.ListConstraintsForGuest(ctx, "g2")
	require.NoError(t, err)
	assert.Len(t, forG2, 2)

	c, err := s.GetConstraint(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, seating.GuestID("g1"), c.Guest1ID)
	assert.Equal(t, seating.MustApart, c.Type)

	require.NoError(t, s.DeleteConstraint(ctx, "c1"))
	all, err := s.ListConstraints(ctx, project)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, seating.ConstraintID("c3"), all[0].ID)
}

func testDeleteGuestCascades(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 3), guest("g2", 1), guest("g3", 1)}, []seating.Table{table("t1", 4)})
	require.NoError(t, s.CreateAssignment(ctx, assignment("g1", "t1")))
	require.NoError(t, s.CreateConstraint(ctx, seating.Constraint{
		ID: "c1", ProjectID: project, Guest1ID: "g2", Guest2ID: "g1", Type: seating.MustApart, CreatedAt: base,
	}))
	require.NoError(t, s.CreateConstraint(ctx, seating.Constraint{
		ID: "c2", ProjectID: project, Guest1ID: "g2", Guest2ID: "g3", Type: seating.MustTogether, CreatedAt: base,
	}))

	require.NoError(t, s.DeleteGuest(ctx, "g1"))

	seated, err := s.ListAssignmentsByTable(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, seated)
	constraints, err := s.ListConstraints(ctx, project)
	require.NoError(t, err)
	require.Len(t, constraints, 1)
	assert.Equal(t, seating.ConstraintID("c2"), constraints[0].ID)
	_, err = s.GetConstraint(ctx, "c1")
	assert.True(t, seating.IsNotFound(err))
}

func testDeleteTableOccupied(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1)}, []seating.Table{table("t1", 4)})
	require.NoError(t, s.CreateAssignment(ctx, assignment("g1", "t1")))

	assert.ErrorIs(t, s.DeleteTable(ctx, "t1"), seating.ErrTableOccupied)

	require.NoError(t, s.DeleteAssignment(ctx, "g1"))
	require.NoError(t, s.DeleteTable(ctx, "t1"))
	_, err := s.GetTable(ctx, "t1")
	assert.True(t, seating.IsNotFound(err))
}

func testWithTxRollback(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1)}, []seating.Table{table("t1", 4)})
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx seating.Store) error {
		if err := tx.CreateAssignment(ctx, assignment("g1", "t1")); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, seating.AuditEntry{ID: "e1", ProjectID: project, Timestamp: base, Action: seating.AuditAssigned}); err != nil {
			return err
		}
		// The transaction sees its own write.
		a, err := tx.GetAssignmentByGuest(ctx, "g1")
		if err != nil || a == nil {
			return errors.New("write not visible inside transaction")
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	a, err := s.GetAssignmentByGuest(ctx, "g1")
	require.NoError(t, err)
	assert.Nil(t, a)
	entries, err := s.QueryAudit(ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func testWithTxCommit(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1)}, []seating.Table{table("t1", 4)})

	err := s.WithTx(ctx, func(tx seating.Store) error {
		return tx.CreateAssignment(ctx, assignment("g1", "t1"))
	})

	require.NoError(t, err)
	a, err := s.GetAssignmentByGuest(ctx, "g1")
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func testAuditOrder(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	g1 := seating.GuestID("g1")
	entries := []seating.AuditEntry{
		{ID: "e1", ProjectID: project, Timestamp: base, ActorID: "alice", Action: seating.AuditAssigned, GuestID: g1, TableID: "t1",
			Payload: map[string]any{"table_name": "Table t1"}},
		{ID: "e2", ProjectID: project, Timestamp: base.Add(time.Second), ActorID: "bob", Action: seating.AuditMoved, GuestID: g1},
		{ID: "e3", ProjectID: project, Timestamp: base.Add(2 * time.Second), ActorID: "bob", Action: seating.AuditAssigned, GuestID: "g2"},
		{ID: "e4", ProjectID: "p2", Timestamp: base.Add(3 * time.Second), Action: seating.AuditAssigned},
	}
	for _, e := range entries {
		require.NoError(t, s.AppendAudit(ctx, e))
	}

	all, err := s.QueryAudit(ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"e3", "e2", "e1"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "Table t1", all[2].Payload["table_name"])

	forG1, err := s.QueryAudit(ctx, seating.AuditFilter{ProjectID: project, GuestID: &g1})
	require.NoError(t, err)
	assert.Len(t, forG1, 2)

	assigned, err := s.QueryAudit(ctx, seating.AuditFilter{ProjectID: project, Actions: []seating.AuditAction{seating.AuditAssigned}, Limit: 1})
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "e3", assigned[0].ID)
}

func testDeleteProjectScoped(t *testing.T, s seating.TxStore) {
	ctx := context.Background()
	seed(t, s, []seating.Guest{guest("g1", 1)}, []seating.Table{table("t1", 4)})
	require.NoError(t, s.CreateAssignment(ctx, assignment("g1", "t1")))
	keep := guest("k1", 1)
	keep.ProjectID = "p2"
	require.NoError(t, s.CreateGuest(ctx, keep))

	require.NoError(t, s.DeleteProject(ctx, project))

	guests, err := s.ListGuests(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, guests)
	tables, err := s.ListTables(ctx, project)
	require.NoError(t, err)
	assert.Empty(t, tables)
	others, err := s.ListGuests(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, others, 1)

	// Deleting an unknown project is not an error.
	assert.NoError(t, s.DeleteProject(ctx, "nope"))
}

func testNotFound(t *testing.T, s seating.TxStore) {
	ctx := context.Background()

	_, err := s.GetGuest(ctx, "missing")
	assert.True(t, seating.IsNotFound(err))
	_, err = s.GetTable(ctx, "missing")
	assert.True(t, seating.IsNotFound(err))
	_, err = s.GetConstraint(ctx, "missing")
	assert.True(t, seating.IsNotFound(err))
	assert.True(t, seating.IsNotFound(s.DeleteGuest(ctx, "missing")))
	assert.True(t, seating.IsNotFound(s.DeleteConstraint(ctx, "missing")))

	a, err := s.GetAssignmentByGuest(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, a)
}
