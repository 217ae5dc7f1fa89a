/*
scoring.go - Table affinity scores for a candidate guest

PURPOSE:
  Turns "how well would this guest fit at this table" into one integer.
  Higher is better. Scores are only comparable within a single suggestion
  or auto-assign pass.

STRATEGIES:
  FullScoring (used by Suggest):
    +10 per distinct candidate tag held by at least one occupant
    +5  per occupant sharing the candidate's area
    +20 per satisfied MUST_TOGETHER relation
    -5  once if the table has 2 or fewer seats available before seating

  TagAffinityScoring (used by AutoAssign):
    +10 per distinct candidate tag held by at least one occupant

  The bulk pass deliberately scores with the tag term only. Keep the two
  strategies separate; changing either changes ranking parity.
*/
package seating

const (
	TagMatchWeight      = 10
	SameAreaWeight      = 5
	MustTogetherWeight  = 20
	NearlyFullPenalty   = 5
	NearlyFullThreshold = 2
)

// ScoreInput is everything a strategy may look at.
type ScoreInput struct {
	Candidate         Guest
	Occupants         []Guest
	MustTogetherCount int
	Available         int // before seating the candidate
}

// ScoreBreakdown is a score plus the counts it was built from.
type ScoreBreakdown struct {
	Score             int
	MatchingTags      int
	SameAreaOccupants int
	MustTogetherCount int
	NearlyFull        bool
}

// ScoringStrategy scores one (guest, table) pair.
type ScoringStrategy func(in ScoreInput) ScoreBreakdown

var (
	FullScoring        ScoringStrategy = scoreFull
	TagAffinityScoring ScoringStrategy = scoreTagAffinity
)

func scoreFull(in ScoreInput) ScoreBreakdown {
	b := ScoreBreakdown{
		MatchingTags:      matchingTags(in.Candidate, in.Occupants),
		SameAreaOccupants: sameAreaOccupants(in.Candidate, in.Occupants),
		MustTogetherCount: in.MustTogetherCount,
		NearlyFull:        in.Available <= NearlyFullThreshold,
	}
	b.Score = b.MatchingTags*TagMatchWeight +
		b.SameAreaOccupants*SameAreaWeight +
		b.MustTogetherCount*MustTogetherWeight
	if b.NearlyFull {
		b.Score -= NearlyFullPenalty
	}
	return b
}

func scoreTagAffinity(in ScoreInput) ScoreBreakdown {
	n := matchingTags(in.Candidate, in.Occupants)
	return ScoreBreakdown{Score: n * TagMatchWeight, MatchingTags: n}
}

// matchingTags counts the candidate's distinct tags that appear on any occupant.
func matchingTags(candidate Guest, occupants []Guest) int {
	if len(candidate.Tags) == 0 || len(occupants) == 0 {
		return 0
	}
	seated := make(map[string]struct{})
	for _, o := range occupants {
		for _, t := range o.Tags {
			seated[t] = struct{}{}
		}
	}
	n := 0
	for t := range candidate.TagSet() {
		if _, ok := seated[t]; ok {
			n++
		}
	}
	return n
}

// sameAreaOccupants counts occupants in the candidate's area. A candidate
// without an area matches nobody.
func sameAreaOccupants(candidate Guest, occupants []Guest) int {
	if !candidate.HasArea() {
		return 0
	}
	n := 0
	for _, o := range occupants {
		if o.AreaID == candidate.AreaID {
			n++
		}
	}
	return n
}
