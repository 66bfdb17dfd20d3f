package l3modes

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l2kernel"
)

// Defaults for the iteration policy.
const (
	DefaultMaxIter = 20
	// DefaultTolerance is the kernel shift (metres) below which a position
	// counts as stable.
	DefaultTolerance = 0.01
)

// ErrUnknownVariant is returned for a variant name other than classic or voxel.
var ErrUnknownVariant = errors.New("unknown mode-seeking variant")

// Variant selects the mode-seeking implementation.
type Variant string

const (
	// VariantClassic iterates on raw floating-point coordinates.
	VariantClassic Variant = "classic"
	// VariantVoxel iterates on a 1-unit integer voxel grid.
	VariantVoxel Variant = "voxel"
)

// ParseVariant converts a configuration string to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantClassic, VariantVoxel:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
	}
}

// Params configures mode seeking. It is a plain value and is copied into
// every worker.
type Params struct {
	Kernel    l2kernel.Params
	MaxIter   int
	Tolerance float64
}

// DefaultParams returns production-default mode-seeking parameters.
func DefaultParams() Params {
	return Params{
		Kernel:    l2kernel.DefaultParams(),
		MaxIter:   DefaultMaxIter,
		Tolerance: DefaultTolerance,
	}
}

// Mode is the position mean shift reached for one source point. When the
// iteration cap is hit first, the last position is the mode and Converged is
// false; this is not an error.
type Mode struct {
	CtrX, CtrY, CtrZ float64
	Iterations       int
	Converged        bool
}

// Seeker finds one mode per input point.
type Seeker interface {
	// Seek returns modes aligned index-for-index with points.
	Seek(points []l1points.Point) []Mode
}

// NewSeeker returns the Seeker for variant v.
func NewSeeker(v Variant, params Params) (Seeker, error) {
	switch v {
	case VariantClassic:
		return &ClassicSeeker{Params: params}, nil
	case VariantVoxel:
		return &VoxelSeeker{Params: params}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, v)
	}
}

// sample is one weighted position the kernel averages over: a raw point
// (weight 1) or an occupied voxel (weight = point count).
type sample struct {
	X, Y, Z float64
	W       float64
}

// sampleSet is an indexed collection of samples.
type sampleSet struct {
	samples []sample
	index   *SpatialIndex
}

// newSampleSet indexes samples with a cell size equal to the widest kernel
// radius over the samples' height range, so every query touches at most a
// 3×3 block of cells.
func newSampleSet(samples []sample, kp l2kernel.Params) *sampleSet {
	minZ, maxZ := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		minZ = math.Min(minZ, s.Z)
		maxZ = math.Max(maxZ, s.Z)
	}
	cell := math.Max(kp.At(minZ).Radius, kp.At(maxZ).Radius)
	if !(cell > 0) || math.IsInf(cell, 0) {
		cell = 1
	}

	idx := NewSpatialIndex(cell)
	idx.Build(samples)
	return &sampleSet{samples: samples, index: idx}
}

// seek runs mean shift from (x, y, z). The kernel is resized from the current
// height at every step. Samples beyond one kernel radius are skipped; their
// horizontal weight is below exp(-20).
func (s *sampleSet) seek(x, y, z float64, p Params) Mode {
	m := Mode{CtrX: x, CtrY: y, CtrZ: z}

	for m.Iterations < p.MaxIter {
		k := p.Kernel.At(m.CtrZ)
		if !k.Valid() {
			break
		}

		var sw, sx, sy, sz float64
		s.index.Query(s.samples, m.CtrX, m.CtrY, k.Radius, func(i int) {
			c := s.samples[i]
			w := c.W * k.Weight(m.CtrX, m.CtrY, m.CtrZ, c.X, c.Y, c.Z)
			if w == 0 {
				return
			}
			sw += w
			sx += w * c.X
			sy += w * c.Y
			sz += w * c.Z
		})
		m.Iterations++

		if sw == 0 {
			// Nothing under the kernel: the window cannot move.
			m.Converged = true
			break
		}

		nx, ny, nz := sx/sw, sy/sw, sz/sw
		dx, dy, dz := nx-m.CtrX, ny-m.CtrY, nz-m.CtrZ
		m.CtrX, m.CtrY, m.CtrZ = nx, ny, nz

		if math.Sqrt(dx*dx+dy*dy+dz*dz) < p.Tolerance {
			m.Converged = true
			break
		}
	}

	return m
}
