package l4tiles

import (
	"fmt"
	"math"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
)

// insetSlack absorbs floating-point noise in the buffer-width check.
const insetSlack = 1e-9

// Process runs mode seeking over one tile and keeps only detections whose
// rounded centroid falls inside the tile's core box. An empty tile, a tile
// with no core points, or one whose points are all ground yields an empty
// result, not an error.
func Process(tile l1points.Tile, params Params) (Result, error) {
	res := Result{Stats: Stats{Input: len(tile.Points)}}

	if params.BufferWidth > 0 {
		if err := checkBufferWidth(tile, params.BufferWidth); err != nil {
			return Result{}, err
		}
	}

	seeker, err := l3modes.NewSeeker(params.Variant, params.Seek)
	if err != nil {
		return Result{}, err
	}

	floor := l1points.NewHeightFloorFilter(params.MinZ)
	points := floor.FilterGround(tile.Points)
	_, _, below := floor.Stats()
	res.Stats.Ground = int(below)

	full, ok := l1points.BoundsOf(points)
	if !ok {
		return res, nil
	}
	core, ok := l1points.CoreBoundsOf(points)
	if !ok {
		return res, nil
	}

	// Work near the origin. The origin sits on the rounding grid so rounded
	// centroids agree between neighbouring tiles.
	ac := params.CtrAccuracy
	ox := math.Floor(full.MinX/ac) * ac
	oy := math.Floor(full.MinY/ac) * ac

	local := make([]l1points.Point, len(points))
	for i, p := range points {
		local[i] = l1points.Point{X: p.X - ox, Y: p.Y - oy, Z: p.Z, InBuffer: p.InBuffer}
	}

	modes := seeker.Seek(local)
	res.Stats.Seeded = len(modes)

	for i, m := range modes {
		if !m.Converged {
			res.Stats.NonConverged++
		}

		rx := Round(m.CtrX, ac)
		ry := Round(m.CtrY, ac)
		rz := Round(m.CtrZ, ac)

		d := Detection{
			X:    points[i].X,
			Y:    points[i].Y,
			Z:    points[i].Z,
			CtrX: m.CtrX + ox,
			CtrY: m.CtrY + oy,
			CtrZ: m.CtrZ,
			// Re-snapping after the shift removes float noise from adding
			// the origin, so equal grid cells compare equal across tiles.
			RoundCtrX: Round(rx+ox, ac),
			RoundCtrY: Round(ry+oy, ac),
			RoundCtrZ: rz,
			Tile:      tile.ID,
		}

		if !core.ContainsXY(d.RoundCtrX, d.RoundCtrY) {
			continue
		}
		res.Detections = append(res.Detections, d)
	}
	res.Stats.Kept = len(res.Detections)

	return res, nil
}

// checkBufferWidth rejects tiles holding a buffer return deeper than width
// inside the tile extent. A tile cut to core+width never contains one: a
// buffer return lies outside the core on some side, and the extent ends at
// most width beyond that side. Sparse or empty core areas do not matter.
// Ground returns are included: they still mark the extent the tile was cut to.
func checkBufferWidth(tile l1points.Tile, width float64) error {
	full, ok := l1points.BoundsOf(tile.Points)
	if !ok {
		return nil
	}
	for _, p := range tile.Points {
		if !p.InBuffer {
			continue
		}
		if d := full.EdgeDistance(p.X, p.Y); d > width+insetSlack {
			return fmt.Errorf("tile %s: buffer return at (%.3f, %.3f) lies %.3f inside the tile edge, beyond buffer_width %.3f",
				tile.ID, p.X, p.Y, d, width)
		}
	}
	return nil
}
