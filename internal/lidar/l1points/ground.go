package l1points

// HeightFloorFilter drops every return below a fixed height above ground.
// Heights are already normalised, so a single floor separates ground, low
// shrubs and noise from candidate crown returns.
type HeightFloorFilter struct {
	// MinZ is the lowest height (metres above ground) a point may have.
	// Points with Z < MinZ are discarded; Z == MinZ is kept.
	MinZ float64

	pointsProcessed  int64
	pointsKept       int64
	pointsBelowFloor int64
}

// NewHeightFloorFilter constructs a ground filter with the given floor.
func NewHeightFloorFilter(minZ float64) *HeightFloorFilter {
	return &HeightFloorFilter{MinZ: minZ}
}

// FilterGround copies the points at or above MinZ into a new slice. The input
// is never modified: tiles are shared read-only between callers.
func (f *HeightFloorFilter) FilterGround(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}

	kept := make([]Point, 0, len(points))
	for _, p := range points {
		f.pointsProcessed++
		if p.Z < f.MinZ {
			f.pointsBelowFloor++
			continue
		}
		f.pointsKept++
		kept = append(kept, p)
	}
	return kept
}

// Stats returns accumulated filter statistics.
func (f *HeightFloorFilter) Stats() (processed, kept, belowFloor int64) {
	return f.pointsProcessed, f.pointsKept, f.pointsBelowFloor
}
