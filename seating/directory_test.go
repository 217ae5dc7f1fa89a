package seating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/seating-engine/seating"
)

func TestCreateGuest_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateGuest(f.ctx, owner, seating.Guest{ProjectID: project, Name: "Zero", HeadCount: 0})
	assert.ErrorIs(t, err, seating.ErrInvalidInput)

	_, err = f.engine.CreateGuest(f.ctx, owner, seating.Guest{ProjectID: project, Name: "   ", HeadCount: 1})
	assert.ErrorIs(t, err, seating.ErrInvalidInput)

	_, err = f.engine.CreateGuest(f.ctx, viewer, seating.Guest{ProjectID: project, Name: "Nope", HeadCount: 1})
	assert.ErrorIs(t, err, seating.ErrForbidden)
}

func TestCreateGuest_NormalizesTags(t *testing.T) {
	f := newFixture(t)

	g := f.guest(t, "  Tagged  ", 1, tags(" family", "", "family", "college "))

	assert.Equal(t, "Tagged", g.Name)
	assert.Equal(t, []string{"family", "college"}, g.Tags)
	assert.NotEmpty(t, g.ID)
	assert.False(t, g.CreatedAt.IsZero())
}

func TestCreateTable_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateTable(f.ctx, owner, seating.Table{ProjectID: project, Name: "Empty", Capacity: 0})
	assert.ErrorIs(t, err, seating.ErrInvalidInput)
}

func TestCreate_TakenIDNeverOverwritesSeatedRecords(t *testing.T) {
	// GIVEN: A guest of 1 seated at a table of 2
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 2)
	g := f.guest(t, "Seated", 1)
	f.seat(t, g, t1)

	// WHEN: Creating records that reuse both ids, from another project
	_, guestErr := f.engine.CreateGuest(f.ctx, owner, seating.Guest{
		ID: g.ID, ProjectID: "wedding-2", Name: "Impostor", HeadCount: 9,
	})
	_, tableErr := f.engine.CreateTable(f.ctx, owner, seating.Table{
		ID: t1.ID, ProjectID: project, Name: "Shrunk", Capacity: 1,
	})

	// THEN: Both are refused and the table still fits its guest
	assert.ErrorIs(t, guestErr, seating.ErrAlreadyExists)
	assert.ErrorIs(t, tableErr, seating.ErrAlreadyExists)
	assert.True(t, seating.IsClientError(guestErr))

	occ := f.occupancy(t, t1)
	assert.Equal(t, 1, occ.Occupied)
	assert.Equal(t, 2, occ.Capacity)
	assert.Equal(t, 1, occ.Available)
	got, err := f.store.GetGuest(f.ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, project, got.ProjectID)
	assert.Equal(t, "Seated", got.Name)
}

func TestDeleteGuest_ReleasesSeatAndConstraints(t *testing.T) {
	// GIVEN: A seated guest with a constraint
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 4)
	g := f.guest(t, "Leaving", 3)
	other := f.guest(t, "Staying", 1)
	f.constrain(t, g, other, seating.MustApart)
	f.seat(t, g, t1)

	// WHEN: Deleting the guest
	require.NoError(t, f.engine.DeleteGuest(f.ctx, editor, project, g.ID))

	// THEN: The seats are free, the constraint is gone, observers are told
	assert.Equal(t, 0, f.occupancy(t, t1).Occupied)
	constraints, err := f.store.ListConstraints(f.ctx, project)
	require.NoError(t, err)
	assert.Empty(t, constraints)
	events := f.events.named(seating.EventUnassigned)
	require.Len(t, events, 1)
	assert.Equal(t, t1.ID, events[0].Payload.FromTableID)

	_, err = f.engine.Assign(f.ctx, editor, other.ID, t1.ID)
	assert.NoError(t, err)
}

func TestDeleteGuest_OtherProjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, "Mine", 1)

	err := f.engine.DeleteGuest(f.ctx, editor, "wedding-2", g.ID)

	assert.True(t, seating.IsNotFound(err))
	_, err = f.store.GetGuest(f.ctx, g.ID)
	assert.NoError(t, err)
}

func TestDeleteTable_RefusedWhileOccupied(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 4)
	g := f.guest(t, "Sitter", 1)
	f.seat(t, g, t1)

	err := f.engine.DeleteTable(f.ctx, editor, project, t1.ID)
	assert.ErrorIs(t, err, seating.ErrTableOccupied)

	require.NoError(t, f.engine.Unassign(f.ctx, editor, g.ID))
	require.NoError(t, f.engine.DeleteTable(f.ctx, editor, project, t1.ID))
	_, err = f.store.GetTable(f.ctx, t1.ID)
	assert.True(t, seating.IsNotFound(err))
}

func TestDeleteProject_OwnerOnlyAndCascades(t *testing.T) {
	// GIVEN: A project with seats, constraints and audit history
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 4)
	a := f.guest(t, "A", 1)
	b := f.guest(t, "B", 1)
	f.constrain(t, a, b, seating.MustTogether)
	f.seat(t, a, t1)

	// WHEN: A collaborator tries, then the owner
	err := f.engine.DeleteProject(f.ctx, editor, project)
	require.ErrorIs(t, err, seating.ErrForbidden)
	require.NoError(t, f.engine.DeleteProject(f.ctx, owner, project))

	// THEN: Nothing is left
	guests, err := f.store.ListGuests(f.ctx, project)
	require.NoError(t, err)
	assert.Empty(t, guests)
	tables, err := f.store.ListTables(f.ctx, project)
	require.NoError(t, err)
	assert.Empty(t, tables)
	assignments, err := f.store.ListAssignments(f.ctx, project)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	constraints, err := f.store.ListConstraints(f.ctx, project)
	require.NoError(t, err)
	assert.Empty(t, constraints)
	audit, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	assert.Empty(t, audit)
}
