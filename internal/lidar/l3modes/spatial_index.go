package l3modes

import "math"

// SpatialIndex provides planar neighbour queries using a regular grid.
// Cell size should approximately match the largest query radius.
type SpatialIndex struct {
	CellSize float64
	Grid     map[int64][]int // Cell ID → sample indices
}

// NewSpatialIndex creates a spatial index with the specified cell size.
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	return &SpatialIndex{
		CellSize: cellSize,
		Grid:     make(map[int64][]int),
	}
}

// Build populates the index from the samples' (x, y) coordinates.
func (si *SpatialIndex) Build(samples []sample) {
	si.Grid = make(map[int64][]int, len(samples)/4+1)
	for i, s := range samples {
		id := cellID(si.cell(s.X), si.cell(s.Y))
		si.Grid[id] = append(si.Grid[id], i)
	}
}

func (si *SpatialIndex) cell(v float64) int64 {
	return int64(math.Floor(v / si.CellSize))
}

// cellID maps a signed cell coordinate pair to a unique key using zigzag
// encoding followed by Szudzik's pairing function.
func cellID(cx, cy int64) int64 {
	var a, b int64
	if cx >= 0 {
		a = 2 * cx
	} else {
		a = -2*cx - 1
	}
	if cy >= 0 {
		b = 2 * cy
	} else {
		b = -2*cy - 1
	}
	if a >= b {
		return a*a + a + b
	}
	return a + b*b
}

// Query calls fn with the index of every sample within planar distance radius
// of (x, y).
func (si *SpatialIndex) Query(samples []sample, x, y, radius float64, fn func(i int)) {
	r2 := radius * radius
	reach := int64(math.Ceil(radius / si.CellSize))
	cx, cy := si.cell(x), si.cell(y)

	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			for _, i := range si.Grid[cellID(cx+dx, cy+dy)] {
				s := samples[i]
				ox, oy := s.X-x, s.Y-y
				if ox*ox+oy*oy <= r2 {
					fn(i)
				}
			}
		}
	}
}
