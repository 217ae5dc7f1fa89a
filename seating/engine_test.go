package seating_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/seating-engine/seating"
	"github.com/warp/seating-engine/seating/store"
)

// =============================================================================
// FIXTURE
// =============================================================================

const project seating.ProjectID = "wedding-1"

var (
	owner  = seating.Actor{ID: "alice", Role: seating.RoleOwner}
	editor = seating.Actor{ID: "bob", Role: seating.RoleCollaborator}
	viewer = seating.Actor{ID: "carol", Role: seating.RoleViewer}
)

type recordedEvent struct {
	Project seating.ProjectID
	Event   string
	Payload seating.SeatingEvent
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(_ context.Context, projectID seating.ProjectID, event string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, _ := payload.(seating.SeatingEvent)
	r.events = append(r.events, recordedEvent{Project: projectID, Event: event, Payload: p})
	return nil
}

func (r *eventRecorder) named(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx    context.Context
	engine *seating.Engine
	store  seating.TxStore
	events *eventRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, store.NewMemory())
}

func newFixtureWithStore(t *testing.T, s seating.TxStore) *fixture {
	t.Helper()
	events := &eventRecorder{}
	return &fixture{
		ctx:    context.Background(),
		engine: seating.NewEngine(s, events, zerolog.Nop()),
		store:  s,
		events: events,
	}
}

type guestOption func(*seating.Guest)

func tags(t ...string) guestOption      { return func(g *seating.Guest) { g.Tags = t } }
func area(a seating.AreaID) guestOption { return func(g *seating.Guest) { g.AreaID = a } }

func (f *fixture) guest(t *testing.T, name string, headCount int, opts ...guestOption) seating.Guest {
	t.Helper()
	g := seating.Guest{ProjectID: project, Name: name, HeadCount: headCount}
	for _, opt := range opts {
		opt(&g)
	}
	created, err := f.engine.CreateGuest(f.ctx, owner, g)
	require.NoError(t, err)
	return created
}

func (f *fixture) table(t *testing.T, name string, capacity int) seating.Table {
	t.Helper()
	created, err := f.engine.CreateTable(f.ctx, owner, seating.Table{ProjectID: project, Name: name, Capacity: capacity})
	require.NoError(t, err)
	return created
}

func (f *fixture) seat(t *testing.T, g seating.Guest, tbl seating.Table) {
	t.Helper()
	_, err := f.engine.Assign(f.ctx, editor, g.ID, tbl.ID)
	require.NoError(t, err)
}

func (f *fixture) constrain(t *testing.T, a, b seating.Guest, kind seating.ConstraintType) seating.Constraint {
	t.Helper()
	c, err := f.engine.AddConstraint(f.ctx, editor, project, a.ID, b.ID, string(kind))
	require.NoError(t, err)
	return *c
}

func (f *fixture) occupancy(t *testing.T, tbl seating.Table) seating.Occupancy {
	t.Helper()
	overview, err := f.engine.TableOverview(f.ctx, tbl.ProjectID)
	require.NoError(t, err)
	for _, o := range overview {
		if o.Table.ID == tbl.ID {
			return o.Occupancy
		}
	}
	t.Fatalf("table %s not in overview", tbl.ID)
	return seating.Occupancy{}
}

func (f *fixture) seatOf(t *testing.T, g seating.Guest) *seating.Assignment {
	t.Helper()
	a, err := f.store.GetAssignmentByGuest(f.ctx, g.ID)
	require.NoError(t, err)
	return a
}

// =============================================================================
// ASSIGN
// =============================================================================

func TestAssign_CapacityExceededReportsSeats(t *testing.T) {
	// GIVEN: A table of 10 holding a party of 9
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	f.seat(t, f.guest(t, "Big Family", 9), t1)
	couple := f.guest(t, "Couple", 2)

	// WHEN: Seating a party of 2
	_, err := f.engine.Assign(f.ctx, editor, couple.ID, t1.ID)

	// THEN: CapacityExceeded with remaining and required seats
	require.ErrorIs(t, err, seating.ErrCapacityExceeded)
	var capErr *seating.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Remaining)
	assert.Equal(t, 2, capErr.Required)
	assert.Contains(t, err.Error(), "1 remaining, need 2")

	// AND: Nothing changed
	assert.Nil(t, f.seatOf(t, couple))
	assert.Equal(t, 9, f.occupancy(t, t1).Occupied)
}

func TestAssign_MustApartNamesBothGuests(t *testing.T) {
	// GIVEN: A and B must sit apart; A sits at Table 1
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	t2 := f.table(t, "Table 2", 10)
	a := f.guest(t, "Anna", 1)
	b := f.guest(t, "Ben", 1)
	f.constrain(t, a, b, seating.MustApart)
	f.seat(t, a, t1)

	// WHEN: Seating B at Table 1
	_, err := f.engine.Assign(f.ctx, editor, b.ID, t1.ID)

	// THEN: ConstraintViolation naming both
	require.ErrorIs(t, err, seating.ErrConstraintViolation)
	var cv *seating.ConstraintViolationError
	require.ErrorAs(t, err, &cv)
	assert.Equal(t, "Ben", cv.GuestName)
	assert.Equal(t, "Anna", cv.ConflictingName)
	assert.Contains(t, err.Error(), "Ben")
	assert.Contains(t, err.Error(), "Anna")

	// AND: Table 2 is fine
	_, err = f.engine.Assign(f.ctx, editor, b.ID, t2.ID)
	assert.NoError(t, err)
}

func TestAssign_MustApartBothOrders(t *testing.T) {
	tests := []struct {
		name        string
		first, then int
	}{
		{"first member seated first", 0, 1},
		{"second member seated first", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			t1 := f.table(t, "Table 1", 10)
			pair := []seating.Guest{f.guest(t, "G1", 1), f.guest(t, "G2", 1)}
			f.constrain(t, pair[0], pair[1], seating.MustApart)

			f.seat(t, pair[tt.first], t1)
			_, err := f.engine.Assign(f.ctx, editor, pair[tt.then].ID, t1.ID)

			assert.ErrorIs(t, err, seating.ErrConstraintViolation)
			assert.Nil(t, f.seatOf(t, pair[tt.then]))
		})
	}
}

func TestAssign_AlreadyAssignedHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	t2 := f.table(t, "Table 2", 10)
	g := f.guest(t, "Dana", 3)
	f.seat(t, g, t1)

	_, err := f.engine.Assign(f.ctx, editor, g.ID, t2.ID)

	require.ErrorIs(t, err, seating.ErrAlreadyAssigned)
	assert.Equal(t, t1.ID, f.seatOf(t, g).TableID)
	assert.Equal(t, 3, f.occupancy(t, t1).Occupied)
	assert.Equal(t, 0, f.occupancy(t, t2).Occupied)
}

func TestAssign_MissingRecordsAreNotFound(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	g := f.guest(t, "Eve", 1)

	_, err := f.engine.Assign(f.ctx, editor, "ghost", t1.ID)
	assert.True(t, seating.IsNotFound(err), "unknown guest: %v", err)

	_, err = f.engine.Assign(f.ctx, editor, g.ID, "nowhere")
	assert.True(t, seating.IsNotFound(err), "unknown table: %v", err)
}

func TestAssign_TableOfAnotherProjectIsNotFound(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, "Finn", 1)
	other, err := f.engine.CreateTable(f.ctx, owner, seating.Table{ProjectID: "wedding-2", Name: "Elsewhere", Capacity: 10})
	require.NoError(t, err)

	_, err = f.engine.Assign(f.ctx, editor, g.ID, other.ID)

	assert.True(t, seating.IsNotFound(err))
}

func TestAssign_PublishesAndAudits(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	g := f.guest(t, "Gina", 2)

	a, err := f.engine.Assign(f.ctx, editor, g.ID, t1.ID)
	require.NoError(t, err)

	events := f.events.named(seating.EventAssigned)
	require.Len(t, events, 1)
	assert.Equal(t, project, events[0].Project)
	assert.Equal(t, g.ID, events[0].Payload.GuestID)
	assert.Equal(t, t1.ID, events[0].Payload.TableID)
	assert.Equal(t, editor.ID, events[0].Payload.ActorID)

	entries, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, seating.AuditAssigned, entries[0].Action)
	assert.Equal(t, editor.ID, entries[0].ActorID)
	assert.Equal(t, g.ID, entries[0].GuestID)
	assert.Equal(t, a.TableID, entries[0].TableID)
}

func TestAssign_NotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.engine.Notifier = seating.NotifierFunc(func(context.Context, seating.ProjectID, string, any) error {
		return errors.New("broker down")
	})
	t1 := f.table(t, "Table 1", 10)
	g := f.guest(t, "Hal", 1)

	_, err := f.engine.Assign(f.ctx, editor, g.ID, t1.ID)

	require.NoError(t, err)
	assert.NotNil(t, f.seatOf(t, g))
}

// =============================================================================
// UNASSIGN
// =============================================================================

func TestUnassign_RoundTripRestoresOccupancy(t *testing.T) {
	// GIVEN: A table already holding 3
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 8)
	f.seat(t, f.guest(t, "Ivy", 3), t1)
	before := f.occupancy(t, t1)
	g := f.guest(t, "Jack", 2)

	// WHEN: assign -> unassign
	f.seat(t, g, t1)
	assert.Equal(t, before.Occupied+2, f.occupancy(t, t1).Occupied)
	require.NoError(t, f.engine.Unassign(f.ctx, editor, g.ID))

	// THEN: No seat, occupancy back to exactly where it was
	assert.Nil(t, f.seatOf(t, g))
	assert.Equal(t, before, f.occupancy(t, t1))

	events := f.events.named(seating.EventUnassigned)
	require.Len(t, events, 1)
	assert.Equal(t, t1.ID, events[0].Payload.FromTableID)
}

func TestUnassign_NotAssigned(t *testing.T) {
	f := newFixture(t)
	g := f.guest(t, "Kim", 1)

	err := f.engine.Unassign(f.ctx, editor, g.ID)

	assert.ErrorIs(t, err, seating.ErrNotAssigned)
	assert.Empty(t, f.events.named(seating.EventUnassigned))
}

// =============================================================================
// MOVE
// =============================================================================

func TestMove_RelocatesInPlace(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 4)
	t2 := f.table(t, "Table 2", 4)
	g := f.guest(t, "Leo", 2)
	f.seat(t, g, t1)
	original := f.seatOf(t, g)

	moved, err := f.engine.Move(f.ctx, editor, g.ID, t2.ID)

	require.NoError(t, err)
	assert.Equal(t, original.ID, moved.ID, "assignment is updated, not recreated")
	assert.Equal(t, t2.ID, f.seatOf(t, g).TableID)
	assert.Equal(t, 0, f.occupancy(t, t1).Occupied)
	assert.Equal(t, 2, f.occupancy(t, t2).Occupied)

	events := f.events.named(seating.EventMoved)
	require.Len(t, events, 1)
	assert.Equal(t, t1.ID, events[0].Payload.FromTableID)
	assert.Equal(t, t2.ID, events[0].Payload.TableID)

	entries, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project, Actions: []seating.AuditAction{seating.AuditMoved}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Table 1", entries[0].Payload["from_table"])
	assert.Equal(t, "Table 2", entries[0].Payload["to_table"])
}

func TestMove_UnseatedGuestIsAssigned(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 4)
	g := f.guest(t, "Mia", 1)

	_, err := f.engine.Move(f.ctx, editor, g.ID, t1.ID)

	require.NoError(t, err)
	assert.Equal(t, t1.ID, f.seatOf(t, g).TableID)

	entries, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "unassigned", entries[0].Payload["from_table"])
}

func TestMove_ChecksDestinationCapacityOnly(t *testing.T) {
	// GIVEN: Destination has 2 seats left, the guest is a party of 3
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	t2 := f.table(t, "Table 2", 4)
	f.seat(t, f.guest(t, "Nora", 2), t2)
	g := f.guest(t, "Otto", 3)
	f.seat(t, g, t1)

	// WHEN: Moving to the destination
	_, err := f.engine.Move(f.ctx, editor, g.ID, t2.ID)

	// THEN: Refused on the destination's numbers, guest stays put
	var capErr *seating.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Remaining)
	assert.Equal(t, 3, capErr.Required)
	assert.Equal(t, t1.ID, f.seatOf(t, g).TableID)
}

func TestMove_SameTableDoesNotCountGuestTwice(t *testing.T) {
	// GIVEN: A full table of 2 holding exactly this party
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 2)
	g := f.guest(t, "Pia", 2)
	f.seat(t, g, t1)

	// WHEN: Moving to the table it already sits at
	_, err := f.engine.Move(f.ctx, editor, g.ID, t1.ID)

	// THEN: Allowed; occupancy unchanged
	require.NoError(t, err)
	assert.Equal(t, 2, f.occupancy(t, t1).Occupied)
}

func TestMove_MustApartViolation(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	t2 := f.table(t, "Table 2", 10)
	a := f.guest(t, "Quinn", 1)
	b := f.guest(t, "Rae", 1)
	f.constrain(t, b, a, seating.MustApart)
	f.seat(t, a, t1)
	f.seat(t, b, t2)

	_, err := f.engine.Move(f.ctx, editor, b.ID, t1.ID)

	assert.ErrorIs(t, err, seating.ErrConstraintViolation)
	assert.Equal(t, t2.ID, f.seatOf(t, b).TableID)
}

// =============================================================================
// CONSTRAINTS
// =============================================================================

func TestAddConstraint_DuplicateInEitherOrder(t *testing.T) {
	// GIVEN: (A, B) MUST_APART
	f := newFixture(t)
	a := f.guest(t, "Sol", 1)
	b := f.guest(t, "Tess", 1)
	f.constrain(t, a, b, seating.MustApart)

	// WHEN: Adding (B, A) MUST_TOGETHER
	_, err := f.engine.AddConstraint(f.ctx, editor, project, b.ID, a.ID, "MUST_TOGETHER")

	// THEN: Duplicate, despite different type and order
	assert.ErrorIs(t, err, seating.ErrDuplicateConstraint)
	all, err := f.store.ListConstraints(f.ctx, project)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAddConstraint_Validation(t *testing.T) {
	f := newFixture(t)
	a := f.guest(t, "Uma", 1)
	b := f.guest(t, "Vic", 1)

	_, err := f.engine.AddConstraint(f.ctx, editor, project, a.ID, a.ID, "MUST_APART")
	assert.ErrorIs(t, err, seating.ErrSelfConstraint)

	_, err = f.engine.AddConstraint(f.ctx, editor, project, a.ID, b.ID, "SOMETIMES")
	assert.ErrorIs(t, err, seating.ErrInvalidConstraintType)

	_, err = f.engine.AddConstraint(f.ctx, editor, project, a.ID, "ghost", "MUST_APART")
	assert.True(t, seating.IsNotFound(err))

	c, err := f.engine.AddConstraint(f.ctx, editor, project, a.ID, b.ID, "must_together")
	require.NoError(t, err)
	assert.Equal(t, seating.MustTogether, c.Type)
}

func TestRemoveConstraint_LeavesSeatsAlone(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	a := f.guest(t, "Wes", 1)
	b := f.guest(t, "Xia", 1)
	c := f.constrain(t, a, b, seating.MustApart)
	f.seat(t, a, t1)

	require.NoError(t, f.engine.RemoveConstraint(f.ctx, editor, c.ID))

	// The pair may now share a table; A was not touched.
	assert.Equal(t, t1.ID, f.seatOf(t, a).TableID)
	_, err := f.engine.Assign(f.ctx, editor, b.ID, t1.ID)
	assert.NoError(t, err)

	err = f.engine.RemoveConstraint(f.ctx, editor, c.ID)
	assert.True(t, seating.IsNotFound(err))
}

// =============================================================================
// ROLES
// =============================================================================

func TestViewerCannotMutate(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	a := f.guest(t, "Yara", 1)
	b := f.guest(t, "Zed", 1)
	c := f.constrain(t, a, b, seating.MustTogether)
	f.seat(t, b, t1)

	_, err := f.engine.Assign(f.ctx, viewer, a.ID, t1.ID)
	assert.ErrorIs(t, err, seating.ErrForbidden, "assign")
	assert.ErrorIs(t, f.engine.Unassign(f.ctx, viewer, b.ID), seating.ErrForbidden, "unassign")
	_, err = f.engine.Move(f.ctx, viewer, a.ID, t1.ID)
	assert.ErrorIs(t, err, seating.ErrForbidden, "move")
	_, err = f.engine.AddConstraint(f.ctx, viewer, project, a.ID, b.ID, "MUST_APART")
	assert.ErrorIs(t, err, seating.ErrForbidden, "add constraint")
	assert.ErrorIs(t, f.engine.RemoveConstraint(f.ctx, viewer, c.ID), seating.ErrForbidden, "remove constraint")
	_, err = f.engine.AutoAssign(f.ctx, viewer, project)
	assert.ErrorIs(t, err, seating.ErrForbidden, "auto-assign")

	// Reads stay open to viewers.
	_, err = f.engine.Suggest(f.ctx, project, a.ID)
	assert.NoError(t, err)
	assert.Nil(t, f.seatOf(t, a))
}

// =============================================================================
// SUGGEST
// =============================================================================

func TestSuggest_MustTogetherAddsTwenty(t *testing.T) {
	// GIVEN: A and B must sit together; two empty tables of 10
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	t2 := f.table(t, "Table 2", 10)
	a := f.guest(t, "Ada", 1)
	b := f.guest(t, "Bo", 1)
	f.constrain(t, a, b, seating.MustTogether)

	// WHEN: Suggesting before B is seated
	before, err := f.engine.Suggest(f.ctx, project, a.ID)
	require.NoError(t, err)

	// THEN: Both tables score the same, no reasons
	require.Len(t, before, 2)
	assert.Equal(t, before[0].Score, before[1].Score)
	assert.Empty(t, before[0].Reasons)

	// WHEN: B sits at Table 1
	f.seat(t, b, t1)
	after, err := f.engine.Suggest(f.ctx, project, a.ID)
	require.NoError(t, err)

	// THEN: Table 1 leads by exactly 20 with a togetherness reason
	require.Len(t, after, 2)
	assert.Equal(t, t1.ID, after[0].Table.ID)
	assert.Equal(t, t2.ID, after[1].Table.ID)
	assert.Equal(t, seating.MustTogetherWeight, after[0].Score-after[1].Score)
	assert.Contains(t, after[0].Reasons, "1 guest requiring togetherness")
	assert.Equal(t, 1, after[0].Breakdown.MustTogetherCount)
}

func TestSuggest_SkipsFullAndForbiddenTables(t *testing.T) {
	f := newFixture(t)
	full := f.table(t, "Full", 2)
	enemy := f.table(t, "Enemy", 10)
	open := f.table(t, "Open", 10)
	f.seat(t, f.guest(t, "Filler", 2), full)
	rival := f.guest(t, "Rival", 1)
	f.seat(t, rival, enemy)
	g := f.guest(t, "Cleo", 1)
	f.constrain(t, g, rival, seating.MustApart)

	suggestions, err := f.engine.Suggest(f.ctx, project, g.ID)

	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, open.ID, suggestions[0].Table.ID)
}

func TestSuggest_RanksAndCapsAtFive(t *testing.T) {
	// GIVEN: Seven roomy tables; Table 7 shares two tags and the area
	f := newFixture(t)
	var tables []seating.Table
	for _, name := range []string{"T1", "T2", "T3", "T4", "T5", "T6", "T7"} {
		tables = append(tables, f.table(t, name, 10))
	}
	f.seat(t, f.guest(t, "Cousin", 1, tags("family", "kids"), area("north")), tables[6])
	f.seat(t, f.guest(t, "Colleague", 1, tags("work")), tables[3])
	g := f.guest(t, "Dee", 2, tags("family", "kids", "work"), area("north"))

	suggestions, err := f.engine.Suggest(f.ctx, project, g.ID)

	// THEN: At most five, best first, ties in table order
	require.NoError(t, err)
	require.Len(t, suggestions, seating.MaxSuggestions)
	assert.Equal(t, tables[6].ID, suggestions[0].Table.ID)
	assert.Equal(t, 25, suggestions[0].Score)
	assert.Equal(t, []string{"2 matching tags", "1 guest from the same area"}, suggestions[0].Reasons)
	assert.Equal(t, tables[3].ID, suggestions[1].Table.ID)
	assert.Equal(t, 10, suggestions[1].Score)
	assert.Equal(t, []seating.TableID{tables[0].ID, tables[1].ID, tables[2].ID},
		[]seating.TableID{suggestions[2].Table.ID, suggestions[3].Table.ID, suggestions[4].Table.ID})
}

func TestSuggest_NearlyFullPenalty(t *testing.T) {
	f := newFixture(t)
	f.table(t, "Roomy", 10)
	tight := f.table(t, "Tight", 3)
	f.seat(t, f.guest(t, "Solo", 1), tight)
	g := f.guest(t, "Eli", 1)

	suggestions, err := f.engine.Suggest(f.ctx, project, g.ID)

	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, 0, suggestions[0].Score)
	assert.Equal(t, -5, suggestions[1].Score)
	assert.True(t, suggestions[1].Breakdown.NearlyFull)
}

func TestSuggest_DeterministicAndReadOnly(t *testing.T) {
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 6)
	t2 := f.table(t, "Table 2", 6)
	f.table(t, "Table 3", 3)
	f.seat(t, f.guest(t, "Fay", 2, tags("college")), t1)
	f.seat(t, f.guest(t, "Gus", 1, area("south")), t2)
	g := f.guest(t, "Hana", 1, tags("college"), area("south"))
	assignmentsBefore, err := f.store.ListAssignments(f.ctx, project)
	require.NoError(t, err)

	first, err := f.engine.Suggest(f.ctx, project, g.ID)
	require.NoError(t, err)
	second, err := f.engine.Suggest(f.ctx, project, g.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assignmentsAfter, err := f.store.ListAssignments(f.ctx, project)
	require.NoError(t, err)
	assert.Equal(t, assignmentsBefore, assignmentsAfter)
	assert.Nil(t, f.seatOf(t, g))
	assert.Len(t, f.events.named(seating.EventAssigned), 2, "only the two setup seats were published")
}

func TestSuggest_SeatedGuestIsNotItsOwnNeighbour(t *testing.T) {
	// GIVEN: A seated guest whose tags would otherwise match itself
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	g := f.guest(t, "Ike", 1, tags("band"))
	f.seat(t, g, t1)

	suggestions, err := f.engine.Suggest(f.ctx, project, g.ID)

	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, 0, suggestions[0].Breakdown.MatchingTags)
}

func TestSuggest_UnknownGuest(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Suggest(f.ctx, project, "ghost")
	assert.True(t, seating.IsNotFound(err))
}

// =============================================================================
// AUTO-ASSIGN
// =============================================================================

func TestAutoAssign_TenSinglesFiveTablesOfTwo(t *testing.T) {
	f := newFixture(t)
	var tables []seating.Table
	for i := 0; i < 5; i++ {
		tables = append(tables, f.table(t, "Table", 2))
	}
	for i := 0; i < 10; i++ {
		f.guest(t, "Single", 1)
	}

	result, err := f.engine.AutoAssign(f.ctx, editor, project)

	require.NoError(t, err)
	assert.Equal(t, 10, result.AssignedCount)
	assert.Equal(t, 0, result.FailedCount)
	for _, tbl := range tables {
		assert.Equal(t, 2, f.occupancy(t, tbl).Occupied)
	}
}

func TestAutoAssign_LargestPartyFirst(t *testing.T) {
	// GIVEN: One table of 5; a single registered before a party of 5
	f := newFixture(t)
	t1 := f.table(t, "Only", 5)
	single := f.guest(t, "Single", 1)
	party := f.guest(t, "Party", 5)

	result, err := f.engine.AutoAssign(f.ctx, editor, project)

	// THEN: The party gets the table, the single fails
	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, t1.ID, f.seatOf(t, party).TableID)
	assert.Nil(t, f.seatOf(t, single))
	require.Len(t, result.Details, 2)
	assert.Equal(t, party.ID, result.Details[0].GuestID)
	assert.Equal(t, "Only", result.Details[0].TableName)
	assert.False(t, result.Details[1].Assigned)
	assert.Equal(t, "no table has 1 free seat", result.Details[1].Reason)
}

func TestAutoAssign_LaterGuestsSeeEarlierPlacements(t *testing.T) {
	// GIVEN: Two tables of 4; parties of 3, 3 and 1 that share no tags
	f := newFixture(t)
	t1 := f.table(t, "A", 4)
	t2 := f.table(t, "B", 4)
	p1 := f.guest(t, "P1", 3)
	p2 := f.guest(t, "P2", 3)
	f.guest(t, "P3", 1)

	result, err := f.engine.AutoAssign(f.ctx, editor, project)

	// THEN: The second party does not land on the table the first just filled
	require.NoError(t, err)
	assert.Equal(t, 3, result.AssignedCount)
	assert.Equal(t, t1.ID, f.seatOf(t, p1).TableID)
	assert.Equal(t, t2.ID, f.seatOf(t, p2).TableID)
	assert.LessOrEqual(t, f.occupancy(t, t1).Occupied, 4)
	assert.LessOrEqual(t, f.occupancy(t, t2).Occupied, 4)
}

func TestAutoAssign_TagAffinityPicksTable(t *testing.T) {
	f := newFixture(t)
	f.table(t, "Plain", 10)
	college := f.table(t, "College", 10)
	f.seat(t, f.guest(t, "Roommate", 1, tags("college")), college)
	g := f.guest(t, "Grad", 1, tags("college"))

	_, err := f.engine.AutoAssign(f.ctx, editor, project)

	require.NoError(t, err)
	assert.Equal(t, college.ID, f.seatOf(t, g).TableID)
}

func TestAutoAssign_IgnoresAreaAndTogethernessInScore(t *testing.T) {
	// GIVEN: The first table is empty; the second holds a same-area
	// MUST_TOGETHER partner but shares no tags
	f := newFixture(t)
	first := f.table(t, "First", 10)
	second := f.table(t, "Second", 10)
	partner := f.guest(t, "Partner", 1, area("east"))
	f.seat(t, partner, second)
	g := f.guest(t, "Kai", 1, area("east"))
	f.constrain(t, g, partner, seating.MustTogether)

	_, err := f.engine.AutoAssign(f.ctx, editor, project)

	// THEN: Tag-only scores tie at 0, so the first table wins
	require.NoError(t, err)
	assert.Equal(t, first.ID, f.seatOf(t, g).TableID)
}

func TestAutoAssign_RespectsMustApart(t *testing.T) {
	f := newFixture(t)
	only := f.table(t, "Only", 10)
	a := f.guest(t, "Lou", 2)
	b := f.guest(t, "Max", 1)
	f.constrain(t, a, b, seating.MustApart)

	result, err := f.engine.AutoAssign(f.ctx, editor, project)

	require.NoError(t, err)
	assert.Equal(t, 1, result.AssignedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, only.ID, f.seatOf(t, a).TableID)
	assert.Nil(t, f.seatOf(t, b))
	assert.Equal(t, "every table with room seats a guest this guest must sit apart from", result.Details[1].Reason)
}

func TestAutoAssign_SecondRunAssignsNothing(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 4)
	f.table(t, "B", 4)
	for i := 0; i < 3; i++ {
		f.guest(t, "Trio", 3)
	}

	first, err := f.engine.AutoAssign(f.ctx, editor, project)
	require.NoError(t, err)
	require.Equal(t, 2, first.AssignedCount)
	require.Equal(t, 1, first.FailedCount)

	second, err := f.engine.AutoAssign(f.ctx, editor, project)

	require.NoError(t, err)
	assert.Equal(t, 0, second.AssignedCount)
	assert.Equal(t, 1, second.FailedCount)
	assert.Equal(t, first.Details[2].Reason, second.Details[0].Reason)
}

func TestAutoAssign_PublishesOneAggregateEvent(t *testing.T) {
	f := newFixture(t)
	f.table(t, "A", 10)
	for i := 0; i < 4; i++ {
		f.guest(t, "Guest", 1)
	}

	_, err := f.engine.AutoAssign(f.ctx, editor, project)
	require.NoError(t, err)

	assert.Empty(t, f.events.named(seating.EventAssigned))
	events := f.events.named(seating.EventAutoAssigned)
	require.Len(t, events, 1)
	assert.Equal(t, 4, events[0].Payload.AssignedCount)
	assert.Equal(t, 0, events[0].Payload.FailedCount)

	entries, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project, Actions: []seating.AuditAction{seating.AuditAutoAssigned}})
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

// flakyStore fails CreateAssignment inside transactions after okCreates
// successful ones.
type flakyStore struct {
	*store.Memory
	okCreates int
	creates   int
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(seating.Store) error) error {
	return s.Memory.WithTx(ctx, func(tx seating.Store) error {
		return fn(flakyTx{Store: tx, parent: s})
	})
}

type flakyTx struct {
	seating.Store
	parent *flakyStore
}

var errDiskFull = errors.New("disk full")

func (tx flakyTx) CreateAssignment(ctx context.Context, a seating.Assignment) error {
	if tx.parent.creates >= tx.parent.okCreates {
		return errDiskFull
	}
	tx.parent.creates++
	return tx.Store.CreateAssignment(ctx, a)
}

func TestAutoAssign_MidRunFailureKeepsEarlierPlacements(t *testing.T) {
	// GIVEN: A store that breaks on the third placement
	flaky := &flakyStore{Memory: store.NewMemory(), okCreates: 2}
	f := newFixtureWithStore(t, flaky)
	f.table(t, "Big", 10)
	parties := []seating.Guest{
		f.guest(t, "Four", 4),
		f.guest(t, "Three", 3),
		f.guest(t, "Two", 2),
		f.guest(t, "One", 1),
	}

	// WHEN: Auto-assigning
	result, err := f.engine.AutoAssign(f.ctx, editor, project)

	// THEN: The error surfaces with the partial result
	require.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.AssignedCount)

	// AND: Guests 1..N-1 stay seated, guest N and later do not
	assert.NotNil(t, f.seatOf(t, parties[0]))
	assert.NotNil(t, f.seatOf(t, parties[1]))
	assert.Nil(t, f.seatOf(t, parties[2]))
	assert.Nil(t, f.seatOf(t, parties[3]))

	// AND: No audit entry for the failed placement
	entries, err := f.store.QueryAudit(f.ctx, seating.AuditFilter{ProjectID: project})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

// stallFirstEvent makes the engine's notifier block on the first event until
// release is called. stalled is closed once that event arrives.
func stallFirstEvent(t *testing.T, f *fixture) (stalled <-chan struct{}, release func()) {
	t.Helper()
	entered := make(chan struct{})
	gate := make(chan struct{})
	release = sync.OnceFunc(func() { close(gate) })
	t.Cleanup(release)

	var once sync.Once
	f.engine.Notifier = seating.NotifierFunc(func(context.Context, seating.ProjectID, string, any) error {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-gate
		}
		return nil
	})
	return entered, release
}

func requireDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("mutation blocked while an observer was stalled")
	}
}

func TestAssign_StalledObserverDoesNotHoldProject(t *testing.T) {
	// GIVEN: An assign whose event delivery is stuck
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	first := f.guest(t, "First", 1)
	second := f.guest(t, "Second", 1)
	stalled, release := stallFirstEvent(t, f)

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.engine.Assign(f.ctx, editor, first.ID, t1.ID)
		firstDone <- err
	}()
	<-stalled

	// WHEN: Another guest of the same project is assigned meanwhile
	secondDone := make(chan error, 1)
	go func() {
		_, err := f.engine.Assign(f.ctx, editor, second.ID, t1.ID)
		secondDone <- err
	}()

	// THEN: It commits before the first event is delivered
	requireDone(t, secondDone)
	assert.NotNil(t, f.seatOf(t, second))
	release()
	requireDone(t, firstDone)
	assert.Equal(t, 2, f.occupancy(t, t1).Occupied)
}

func TestAutoAssign_StalledObserverDoesNotHoldProject(t *testing.T) {
	// GIVEN: An auto-assign whose aggregate event is stuck
	f := newFixture(t)
	t1 := f.table(t, "Table 1", 10)
	f.guest(t, "Early", 2)
	stalled, release := stallFirstEvent(t, f)

	autoDone := make(chan error, 1)
	go func() {
		_, err := f.engine.AutoAssign(f.ctx, editor, project)
		autoDone <- err
	}()
	<-stalled

	// WHEN: A guest is added and seated in the same project
	moveDone := make(chan error, 1)
	go func() {
		late, err := f.engine.CreateGuest(f.ctx, owner, seating.Guest{ProjectID: project, Name: "Late", HeadCount: 1})
		if err == nil {
			_, err = f.engine.Move(f.ctx, editor, late.ID, t1.ID)
		}
		moveDone <- err
	}()

	// THEN: Both finish and the table holds everyone
	requireDone(t, moveDone)
	release()
	requireDone(t, autoDone)
	assert.Equal(t, 3, f.occupancy(t, t1).Occupied)
}

func TestAssign_ConcurrentCallsNeverOvercommit(t *testing.T) {
	// GIVEN: One seat left and ten guests racing for it
	f := newFixture(t)
	t1 := f.table(t, "Last Seat", 1)
	var guests []seating.Guest
	for i := 0; i < 10; i++ {
		guests = append(guests, f.guest(t, "Racer", 1))
	}

	// WHEN: All assign at once
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for _, g := range guests {
		wg.Add(1)
		go func(g seating.Guest) {
			defer wg.Done()
			_, err := f.engine.Assign(f.ctx, editor, g.ID, t1.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, seating.ErrCapacityExceeded):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(g)
	}
	wg.Wait()

	// THEN: Exactly one wins
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, refused)
	assert.Equal(t, 1, f.occupancy(t, t1).Occupied)
}

func TestMove_ConcurrentMovesNeverOvercommit(t *testing.T) {
	f := newFixture(t)
	source := f.table(t, "Source", 10)
	dest := f.table(t, "Dest", 3)
	var guests []seating.Guest
	for i := 0; i < 6; i++ {
		g := f.guest(t, "Mover", 1)
		f.seat(t, g, source)
		guests = append(guests, g)
	}

	var wg sync.WaitGroup
	for _, g := range guests {
		wg.Add(1)
		go func(g seating.Guest) {
			defer wg.Done()
			_, _ = f.engine.Move(f.ctx, editor, g.ID, dest.ID)
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 3, f.occupancy(t, dest).Occupied)
	assert.Equal(t, 3, f.occupancy(t, source).Occupied)
}
