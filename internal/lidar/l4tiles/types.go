package l4tiles

import (
	"math"

	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
)

// Defaults for tile processing.
const (
	DefaultMinZ        = 2.0
	DefaultCtrAccuracy = 2.0
	DefaultBufferWidth = 10.0
)

// Params configures the tile processor. It is a plain value and is copied
// into every worker.
type Params struct {
	Seek    l3modes.Params
	Variant l3modes.Variant

	// MinZ drops returns with Z < MinZ before mode seeking.
	MinZ float64
	// CtrAccuracy is the grid step centroids are rounded to.
	CtrAccuracy float64
	// BufferWidth is the margin the tiles were cut with. It is only checked,
	// never used to derive the core area; 0 disables the check.
	BufferWidth float64
}

// DefaultParams returns production-default tile parameters.
func DefaultParams() Params {
	return Params{
		Seek:        l3modes.DefaultParams(),
		Variant:     l3modes.VariantClassic,
		MinZ:        DefaultMinZ,
		CtrAccuracy: DefaultCtrAccuracy,
		BufferWidth: DefaultBufferWidth,
	}
}

// Detection is one surviving source point with its mode. ID is assigned by
// the identity resolver after all tiles finish; it is 0 until then.
type Detection struct {
	X, Y, Z                         float64
	CtrX, CtrY, CtrZ                float64
	RoundCtrX, RoundCtrY, RoundCtrZ float64
	ID                              int
	Tile                            string // Originating tile ID
}

// Stats counts what happened to one tile's points.
type Stats struct {
	Input        int // Points in the tile
	Ground       int // Removed by the MinZ filter
	Seeded       int // Points mode seeking ran for
	Kept         int // Detections inside the core area
	NonConverged int // Modes that hit the iteration cap
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Input += o.Input
	s.Ground += o.Ground
	s.Seeded += o.Seeded
	s.Kept += o.Kept
	s.NonConverged += o.NonConverged
}

// Result is the output of one tile.
type Result struct {
	Detections []Detection
	Stats      Stats
}

// Round snaps v to the nearest multiple of ac.
func Round(v, ac float64) float64 {
	return math.Round(v/ac) * ac
}
