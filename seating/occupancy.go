package seating

// Occupancy is the derived seat count of one table.
// It is recomputed from assignments on every read and never cached across
// a mutation.
type Occupancy struct {
	TableID   TableID
	Capacity  int
	Occupied  int
	Available int
}

// Fits reports whether a party of headCount still fits.
func (o Occupancy) Fits(headCount int) bool {
	return o.Available >= headCount
}

// CalculateOccupancy sums the head count of the guests seated at table.
func CalculateOccupancy(table Table, occupants []Guest) Occupancy {
	occupied := 0
	for _, g := range occupants {
		occupied += g.HeadCount
	}
	return Occupancy{
		TableID:   table.ID,
		Capacity:  table.Capacity,
		Occupied:  occupied,
		Available: table.Capacity - occupied,
	}
}
