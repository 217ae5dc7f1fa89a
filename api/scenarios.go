/*
scenarios.go - Demo wedding projects for development and demonstrations

PURPOSE:
  Seeds a project with a realistic roster, floor plan and set of seating
  constraints so the editor and the engine can be tried without data entry.

AVAILABLE SCENARIOS:
  garden-wedding:    Four tables, two family sides, a couple that must sit
                     together and two exes that must not
  feuding-families:  Small tables and a web of MUST_APART pairs; auto-assign
                     leaves some guests unplaced
  big-parties:       Families of four and five against tight capacities

HOW SCENARIOS WORK:
  1. Delete the target project (owner only)
  2. Create tables, then guests, through the engine
  3. Add constraints
  Nothing is seated; run auto-assign or drag guests to see the engine work.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "garden-wedding", "project_id": "demo"}

NOTE:
  Loading replaces the target project. Only use in development/demo
  environments.

SEE ALSO:
  - handlers.go: Handler
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/seating-engine/seating"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "garden-wedding",
		Name:        "Garden Wedding",
		Description: "Two family sides, friends and a head table, with a couple and a pair of exes",
	},
	{
		ID:          "feuding-families",
		Name:        "Feuding Families",
		Description: "Small tables and many MUST_APART pairs; not everyone can be placed",
	},
	{
		ID:          "big-parties",
		Name:        "Big Parties",
		Description: "Large families against tight table capacities",
	},
}

type seedTable struct {
	key      string
	name     string
	capacity int
	area     seating.AreaID
	x, y     float64
}

type seedGuest struct {
	key       string
	name      string
	headCount int
	tags      []string
	area      seating.AreaID
}

type seedConstraint struct {
	a, b string
	kind seating.ConstraintType
}

type scenarioSeed struct {
	tables      []seedTable
	guests      []seedGuest
	constraints []seedConstraint
}

var scenarioSeeds = map[string]scenarioSeed{
	"garden-wedding": {
		tables: []seedTable{
			{key: "head", name: "Head Table", capacity: 8, x: 400, y: 80},
			{key: "bride", name: "Bride's Family", capacity: 10, area: "bride-side", x: 200, y: 260},
			{key: "groom", name: "Groom's Family", capacity: 10, area: "groom-side", x: 600, y: 260},
			{key: "friends", name: "Friends", capacity: 8, x: 400, y: 420},
		},
		guests: []seedGuest{
			{key: "grandma-rose", name: "Grandma Rose", headCount: 1, tags: []string{"family", "elderly"}, area: "bride-side"},
			{key: "miller", name: "The Millers", headCount: 4, tags: []string{"family", "kids"}, area: "bride-side"},
			{key: "aunt-clara", name: "Aunt Clara", headCount: 2, tags: []string{"family"}, area: "bride-side"},
			{key: "cousin-ben", name: "Cousin Ben", headCount: 1, tags: []string{"family", "college"}, area: "bride-side"},
			{key: "uncle-raj", name: "Uncle Raj", headCount: 2, tags: []string{"family"}, area: "groom-side"},
			{key: "patel", name: "The Patels", headCount: 5, tags: []string{"family", "kids"}, area: "groom-side"},
			{key: "nani", name: "Nani", headCount: 1, tags: []string{"family", "elderly"}, area: "groom-side"},
			{key: "sam", name: "Sam", headCount: 1, tags: []string{"college", "friends"}},
			{key: "alex", name: "Alex", headCount: 1, tags: []string{"college", "friends"}},
			{key: "jordan", name: "Jordan", headCount: 2, tags: []string{"work", "friends"}},
			{key: "taylor", name: "Taylor", headCount: 1, tags: []string{"work"}},
			{key: "morgan", name: "Morgan", headCount: 1, tags: []string{"college"}},
		},
		constraints: []seedConstraint{
			{a: "sam", b: "alex", kind: seating.MustTogether},
			{a: "grandma-rose", b: "aunt-clara", kind: seating.MustTogether},
			{a: "taylor", b: "morgan", kind: seating.MustApart},
		},
	},
	"feuding-families": {
		tables: []seedTable{
			{key: "t1", name: "Table 1", capacity: 4, x: 150, y: 150},
			{key: "t2", name: "Table 2", capacity: 4, x: 350, y: 150},
			{key: "t3", name: "Table 3", capacity: 4, x: 550, y: 150},
		},
		guests: []seedGuest{
			{key: "capulet-lord", name: "Lord Capulet", headCount: 2, tags: []string{"capulet"}, area: "verona-north"},
			{key: "capulet-tybalt", name: "Tybalt", headCount: 1, tags: []string{"capulet"}, area: "verona-north"},
			{key: "montague-lord", name: "Lord Montague", headCount: 2, tags: []string{"montague"}, area: "verona-south"},
			{key: "montague-benvolio", name: "Benvolio", headCount: 1, tags: []string{"montague"}, area: "verona-south"},
			{key: "mercutio", name: "Mercutio", headCount: 1, tags: []string{"montague", "friends"}},
			{key: "prince", name: "Prince Escalus", headCount: 2, tags: []string{"court"}},
			{key: "paris", name: "Count Paris", headCount: 1, tags: []string{"court"}},
			{key: "nurse", name: "The Nurse", headCount: 1, tags: []string{"capulet"}},
			{key: "friar", name: "Friar Laurence", headCount: 1, tags: []string{"clergy"}},
			{key: "balthasar", name: "Balthasar", headCount: 1, tags: []string{"montague"}},
		},
		constraints: []seedConstraint{
			{a: "capulet-lord", b: "montague-lord", kind: seating.MustApart},
			{a: "capulet-tybalt", b: "mercutio", kind: seating.MustApart},
			{a: "capulet-tybalt", b: "montague-benvolio", kind: seating.MustApart},
			{a: "capulet-tybalt", b: "montague-lord", kind: seating.MustApart},
			{a: "capulet-tybalt", b: "prince", kind: seating.MustApart},
			{a: "capulet-lord", b: "prince", kind: seating.MustApart},
			{a: "montague-lord", b: "prince", kind: seating.MustApart},
			{a: "paris", b: "capulet-lord", kind: seating.MustTogether},
			{a: "nurse", b: "friar", kind: seating.MustTogether},
			{a: "balthasar", b: "capulet-lord", kind: seating.MustApart},
		},
	},
	"big-parties": {
		tables: []seedTable{
			{key: "round-a", name: "Round A", capacity: 6, x: 200, y: 200},
			{key: "round-b", name: "Round B", capacity: 6, x: 400, y: 200},
			{key: "long", name: "Long Table", capacity: 10, x: 300, y: 400},
		},
		guests: []seedGuest{
			{key: "nguyen", name: "The Nguyens", headCount: 5, tags: []string{"family", "kids"}},
			{key: "garcia", name: "The Garcias", headCount: 5, tags: []string{"family", "kids"}},
			{key: "okafor", name: "The Okafors", headCount: 4, tags: []string{"family"}},
			{key: "schmidt", name: "The Schmidts", headCount: 4, tags: []string{"family"}},
			{key: "lee", name: "Lee", headCount: 1, tags: []string{"work"}},
			{key: "kim", name: "Kim", headCount: 1, tags: []string{"work"}},
			{key: "dana", name: "Dana", headCount: 2, tags: []string{"friends"}},
		},
		constraints: []seedConstraint{
			{a: "lee", b: "kim", kind: seating.MustTogether},
		},
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario replaces a project with a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	seed, ok := scenarioSeeds[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q does not exist", req.ScenarioID))
		return
	}
	pid := seating.ProjectID(req.ProjectID)
	if pid == "" {
		pid = seating.ProjectID("demo-" + req.ScenarioID)
	}

	if err := h.loadScenario(r.Context(), actorFrom(r.Context()), pid, seed); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.Logger.Info().
		Str("scenario_id", req.ScenarioID).
		Str("project_id", string(pid)).
		Msg("scenario loaded")
	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ProjectID:   string(pid),
		ScenarioID:  req.ScenarioID,
		Guests:      len(seed.guests),
		Tables:      len(seed.tables),
		Constraints: len(seed.constraints),
	})
}

func (h *Handler) loadScenario(ctx context.Context, actor seating.Actor, pid seating.ProjectID, seed scenarioSeed) error {
	if err := h.Engine.DeleteProject(ctx, actor, pid); err != nil {
		return err
	}
	for _, st := range seed.tables {
		_, err := h.Engine.CreateTable(ctx, actor, seating.Table{
			ProjectID: pid,
			Name:      st.name,
			Capacity:  st.capacity,
			AreaID:    st.area,
			X:         st.x,
			Y:         st.y,
		})
		if err != nil {
			return fmt.Errorf("seed table %s: %w", st.key, err)
		}
	}

	ids := make(map[string]seating.GuestID, len(seed.guests))
	for _, sg := range seed.guests {
		g, err := h.Engine.CreateGuest(ctx, actor, seating.Guest{
			ProjectID: pid,
			Name:      sg.name,
			HeadCount: sg.headCount,
			Tags:      sg.tags,
			AreaID:    sg.area,
		})
		if err != nil {
			return fmt.Errorf("seed guest %s: %w", sg.key, err)
		}
		ids[sg.key] = g.ID
	}

	for _, sc := range seed.constraints {
		if _, err := h.Engine.AddConstraint(ctx, actor, pid, ids[sc.a], ids[sc.b], string(sc.kind)); err != nil {
			return fmt.Errorf("seed constraint %s/%s: %w", sc.a, sc.b, err)
		}
	}
	return nil
}
