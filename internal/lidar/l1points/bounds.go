package l1points

import "math"

// Bounds is an axis-aligned box over a set of points.
type Bounds struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// BoundsOf returns the bounding box of points. ok is false when points is empty.
func BoundsOf(points []Point) (b Bounds, ok bool) {
	return boundsWhere(points, func(Point) bool { return true })
}

// CoreBoundsOf returns the bounding box of the non-buffer points only.
// ok is false when the tile has no core points.
func CoreBoundsOf(points []Point) (b Bounds, ok bool) {
	return boundsWhere(points, func(p Point) bool { return !p.InBuffer })
}

func boundsWhere(points []Point, keep func(Point) bool) (Bounds, bool) {
	b := Bounds{
		MinX: math.Inf(1), MinY: math.Inf(1), MinZ: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1), MaxZ: math.Inf(-1),
	}
	found := false
	for _, p := range points {
		if !keep(p) {
			continue
		}
		found = true
		b.MinX = math.Min(b.MinX, p.X)
		b.MinY = math.Min(b.MinY, p.Y)
		b.MinZ = math.Min(b.MinZ, p.Z)
		b.MaxX = math.Max(b.MaxX, p.X)
		b.MaxY = math.Max(b.MaxY, p.Y)
		b.MaxZ = math.Max(b.MaxZ, p.Z)
	}
	if !found {
		return Bounds{}, false
	}
	return b, true
}

// ContainsXY reports whether (x, y) lies in the half-open planar box
// [MinX, MaxX) × [MinY, MaxY).
func (b Bounds) ContainsXY(x, y float64) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// EdgeDistance returns the planar distance from (x, y) to the nearest side of
// b, for a point inside b.
func (b Bounds) EdgeDistance(x, y float64) float64 {
	return math.Min(
		math.Min(x-b.MinX, b.MaxX-x),
		math.Min(y-b.MinY, b.MaxY-y),
	)
}
