package seating

// ConstraintCheck is the verdict for seating one guest at one table.
type ConstraintCheck struct {
	Admissible        bool
	MustTogetherCount int

	// ConflictsWith is the occupant that made the table inadmissible.
	ConflictsWith GuestID
}

// CheckConstraints evaluates the candidate's constraints against the guests
// already seated at a table.
//
// A MUST_APART partner among the occupants makes the table inadmissible and
// stops the scan. Every MUST_TOGETHER partner among the occupants adds one to
// MustTogetherCount. Constraints that do not involve the candidate, and
// constraints pairing a guest with itself, are ignored.
func CheckConstraints(candidate GuestID, occupants map[GuestID]struct{}, constraints []Constraint) ConstraintCheck {
	check := ConstraintCheck{Admissible: true}
	for _, c := range constraints {
		other, ok := c.Other(candidate)
		if !ok {
			continue
		}
		if _, seated := occupants[other]; !seated {
			continue
		}
		switch c.Type {
		case MustApart:
			return ConstraintCheck{Admissible: false, ConflictsWith: other}
		case MustTogether:
			check.MustTogetherCount++
		}
	}
	return check
}

// occupantSet builds the id set CheckConstraints expects.
func occupantSet(occupants []Guest) map[GuestID]struct{} {
	set := make(map[GuestID]struct{}, len(occupants))
	for _, g := range occupants {
		set[g.ID] = struct{}{}
	}
	return set
}
