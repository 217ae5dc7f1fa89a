package seating

import (
	"context"
	"fmt"
	"sort"
)

// =============================================================================
// SEATING PLAN - One consistent read of a project's seating state
// =============================================================================

// seatingPlan is a read of one project's tables, guests and seats.
type seatingPlan struct {
	tables      []Table // creation order
	guests      []Guest // creation order
	byID        map[GuestID]Guest
	seatedAt    map[GuestID]TableID
	occupantsOf map[TableID][]Guest
}

func loadSeatingPlan(ctx context.Context, s Store, projectID ProjectID) (*seatingPlan, error) {
	tables, err := s.ListTables(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	guests, err := s.ListGuests(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	assignments, err := s.ListAssignments(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	plan := &seatingPlan{
		tables:      tables,
		guests:      guests,
		byID:        make(map[GuestID]Guest, len(guests)),
		seatedAt:    make(map[GuestID]TableID, len(assignments)),
		occupantsOf: make(map[TableID][]Guest, len(tables)),
	}
	for _, g := range guests {
		plan.byID[g.ID] = g
	}
	for _, a := range assignments {
		g, ok := plan.byID[a.GuestID]
		if !ok {
			return nil, fmt.Errorf("assignment %s references unknown guest %s", a.ID, a.GuestID)
		}
		plan.seatedAt[a.GuestID] = a.TableID
		plan.occupantsOf[a.TableID] = append(plan.occupantsOf[a.TableID], g)
	}
	return plan, nil
}

// occupantsExcept returns the table's occupants without the given guest.
func (p *seatingPlan) occupantsExcept(tableID TableID, exclude GuestID) []Guest {
	seated := p.occupantsOf[tableID]
	out := make([]Guest, 0, len(seated))
	for _, g := range seated {
		if g.ID != exclude {
			out = append(out, g)
		}
	}
	return out
}

func (p *seatingPlan) unassigned() []Guest {
	var out []Guest
	for _, g := range p.guests {
		if _, ok := p.seatedAt[g.ID]; !ok {
			out = append(out, g)
		}
	}
	return out
}

// =============================================================================
// TABLE OVERVIEW
// =============================================================================

// TableOccupancy is a table with its freshly computed occupancy.
type TableOccupancy struct {
	Table     Table
	Occupancy Occupancy
	Occupants []Guest
}

// TableOverview returns every table of the project with its current occupancy.
func (e *Engine) TableOverview(ctx context.Context, projectID ProjectID) ([]TableOccupancy, error) {
	plan, err := loadSeatingPlan(ctx, e.Store, projectID)
	if err != nil {
		return nil, err
	}
	out := make([]TableOccupancy, 0, len(plan.tables))
	for _, t := range plan.tables {
		occupants := plan.occupantsOf[t.ID]
		out = append(out, TableOccupancy{
			Table:     t,
			Occupancy: CalculateOccupancy(t, occupants),
			Occupants: occupants,
		})
	}
	return out, nil
}

// =============================================================================
// SUGGEST - Ranked tables for one guest (read-only)
// =============================================================================

// Suggestion is one ranked table for a guest.
type Suggestion struct {
	Table     Table
	Score     int
	Available int
	Breakdown ScoreBreakdown
	Reasons   []string
}

// Suggest ranks the project's tables for guestID and returns the best
// MaxSuggestions. Tables without room for the guest's party, and tables
// holding a MUST_APART partner, are skipped. Equal scores keep table order.
func (e *Engine) Suggest(ctx context.Context, projectID ProjectID, guestID GuestID) ([]Suggestion, error) {
	guest, err := guestInProject(ctx, e.Store, guestID, projectID)
	if err != nil {
		return nil, err
	}
	plan, err := loadSeatingPlan(ctx, e.Store, projectID)
	if err != nil {
		return nil, err
	}
	constraints, err := e.Store.ListConstraintsForGuest(ctx, guest.ID)
	if err != nil {
		return nil, err
	}

	var candidates []Suggestion
	for _, t := range plan.tables {
		occupants := plan.occupantsExcept(t.ID, guest.ID)
		occ := CalculateOccupancy(t, occupants)
		if !occ.Fits(guest.HeadCount) {
			continue
		}
		check := CheckConstraints(guest.ID, occupantSet(occupants), constraints)
		if !check.Admissible {
			continue
		}
		b := e.SuggestScoring(ScoreInput{
			Candidate:         guest,
			Occupants:         occupants,
			MustTogetherCount: check.MustTogetherCount,
			Available:         occ.Available,
		})
		candidates = append(candidates, Suggestion{
			Table:     t,
			Score:     b.Score,
			Available: occ.Available,
			Breakdown: b,
			Reasons:   suggestionReasons(b),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > MaxSuggestions {
		candidates = candidates[:MaxSuggestions]
	}
	return candidates, nil
}

func suggestionReasons(b ScoreBreakdown) []string {
	reasons := []string{}
	if b.MatchingTags > 0 {
		reasons = append(reasons, fmt.Sprintf("%d matching %s", b.MatchingTags, plural(b.MatchingTags, "tag", "tags")))
	}
	if b.SameAreaOccupants > 0 {
		reasons = append(reasons, fmt.Sprintf("%d %s from the same area", b.SameAreaOccupants, plural(b.SameAreaOccupants, "guest", "guests")))
	}
	if b.MustTogetherCount > 0 {
		reasons = append(reasons, fmt.Sprintf("%d %s requiring togetherness", b.MustTogetherCount, plural(b.MustTogetherCount, "guest", "guests")))
	}
	return reasons
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// =============================================================================
// AUTO-ASSIGN - Greedy bulk placement
// =============================================================================

// AutoAssignDetail is the outcome for one guest.
type AutoAssignDetail struct {
	GuestID   GuestID
	GuestName string
	HeadCount int
	Assigned  bool
	TableID   TableID
	TableName string
	Reason    string // set when Assigned is false
}

// AutoAssignResult summarizes one auto-assign pass.
type AutoAssignResult struct {
	AssignedCount int
	FailedCount   int
	Details       []AutoAssignDetail
}

func (r *AutoAssignResult) placed(g Guest, t Table) {
	r.AssignedCount++
	r.Details = append(r.Details, AutoAssignDetail{
		GuestID:   g.ID,
		GuestName: g.Name,
		HeadCount: g.HeadCount,
		Assigned:  true,
		TableID:   t.ID,
		TableName: t.Name,
	})
}

func (r *AutoAssignResult) failed(g Guest, reason string) {
	r.FailedCount++
	r.Details = append(r.Details, AutoAssignDetail{
		GuestID:   g.ID,
		GuestName: g.Name,
		HeadCount: g.HeadCount,
		Reason:    reason,
	})
}

// workingTable is the in-pass picture of one table.
type workingTable struct {
	table     Table
	occupants []Guest
	occupied  int
}

func (wt *workingTable) available() int { return wt.table.Capacity - wt.occupied }

func (wt *workingTable) seat(g Guest) {
	wt.occupants = append(wt.occupants, g)
	wt.occupied += g.HeadCount
}

// workingSet maps tables to their in-pass state. It lives for one pass and
// is never persisted; only the per-guest assignment commits are.
type workingSet struct {
	order []*workingTable
}

func newWorkingSet(plan *seatingPlan) *workingSet {
	ws := &workingSet{order: make([]*workingTable, 0, len(plan.tables))}
	for _, t := range plan.tables {
		occupants := append([]Guest(nil), plan.occupantsOf[t.ID]...)
		ws.order = append(ws.order, &workingTable{
			table:     t,
			occupants: occupants,
			occupied:  CalculateOccupancy(t, occupants).Occupied,
		})
	}
	return ws
}

// best picks the highest-scoring admissible table with room for g.
// The first table wins a tie. When nothing fits, reason says why.
func (ws *workingSet) best(g Guest, constraints []Constraint, score ScoringStrategy) (pick *workingTable, reason string) {
	bestScore := 0
	roomy := 0
	for _, wt := range ws.order {
		if wt.available() < g.HeadCount {
			continue
		}
		roomy++
		check := CheckConstraints(g.ID, occupantSet(wt.occupants), constraints)
		if !check.Admissible {
			continue
		}
		b := score(ScoreInput{
			Candidate:         g,
			Occupants:         wt.occupants,
			MustTogetherCount: check.MustTogetherCount,
			Available:         wt.available(),
		})
		if pick == nil || b.Score > bestScore {
			pick, bestScore = wt, b.Score
		}
	}
	if pick != nil {
		return pick, ""
	}
	if roomy == 0 {
		return nil, fmt.Sprintf("no table has %d free %s", g.HeadCount, plural(g.HeadCount, "seat", "seats"))
	}
	return nil, "every table with room seats a guest this guest must sit apart from"
}

// AutoAssign seats every unseated guest of the project, largest party first.
// A guest that cannot be placed is recorded in the result and the pass goes
// on. An unexpected store error stops the pass; the partial result is
// returned with the error and earlier placements stay committed.
func (e *Engine) AutoAssign(ctx context.Context, actor Actor, projectID ProjectID) (*AutoAssignResult, error) {
	if err := actor.authorizeMutation(); err != nil {
		return nil, err
	}
	result, err := e.placeUnassigned(ctx, actor, projectID)
	if result != nil {
		e.finishAutoAssign(ctx, actor, projectID, result)
	}
	return result, err
}

// placeUnassigned runs the greedy pass under the project lock.
func (e *Engine) placeUnassigned(ctx context.Context, actor Actor, projectID ProjectID) (*AutoAssignResult, error) {
	unlock := e.locks.lock(projectID)
	defer unlock()

	plan, err := loadSeatingPlan(ctx, e.Store, projectID)
	if err != nil {
		return nil, err
	}
	all, err := e.Store.ListConstraints(ctx, projectID)
	if err != nil {
		return nil, err
	}
	byGuest := make(map[GuestID][]Constraint)
	for _, c := range all {
		byGuest[c.Guest1ID] = append(byGuest[c.Guest1ID], c)
		if c.Guest2ID != c.Guest1ID {
			byGuest[c.Guest2ID] = append(byGuest[c.Guest2ID], c)
		}
	}

	pending := plan.unassigned()
	sortByHeadCountDesc(pending)
	working := newWorkingSet(plan)
	result := &AutoAssignResult{Details: make([]AutoAssignDetail, 0, len(pending))}

	for _, g := range pending {
		wt, reason := working.best(g, byGuest[g.ID], e.AutoAssignScoring)
		if wt == nil {
			result.failed(g, reason)
			continue
		}
		if err := e.commitAutoPlacement(ctx, actor, g, wt.table); err != nil {
			if IsClientError(err) {
				result.failed(g, err.Error())
				continue
			}
			return result, fmt.Errorf("auto-assign stopped at guest %s: %w", g.ID, err)
		}
		wt.seat(g)
		result.placed(g, wt.table)
	}
	return result, nil
}

func (e *Engine) commitAutoPlacement(ctx context.Context, actor Actor, g Guest, t Table) error {
	return e.Store.WithTx(ctx, func(s Store) error {
		now := e.Now()
		a := Assignment{
			ID:        AssignmentID(e.NewID()),
			ProjectID: g.ProjectID,
			GuestID:   g.ID,
			TableID:   t.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateAssignment(ctx, a); err != nil {
			return err
		}
		return e.audit(ctx, s, actor, g.ProjectID, AuditAutoAssigned, g.ID, t.ID, map[string]any{
			"guest_name": g.Name,
			"table_name": t.Name,
			"head_count": g.HeadCount,
		})
	})
}

func (e *Engine) finishAutoAssign(ctx context.Context, actor Actor, projectID ProjectID, result *AutoAssignResult) {
	e.Logger.Info().
		Str("project_id", string(projectID)).
		Int("assigned", result.AssignedCount).
		Int("failed", result.FailedCount).
		Msg("auto-assign finished")
	e.publish(ctx, projectID, EventAutoAssigned, SeatingEvent{
		ActorID:       actor.ID,
		AssignedCount: result.AssignedCount,
		FailedCount:   result.FailedCount,
	})
}
