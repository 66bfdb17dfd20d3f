package l3modes

import "github.com/banshee-data/canopy.report/internal/lidar/l1points"

// ClassicSeeker runs mean shift on the raw point coordinates. It is the
// precise variant: every iteration re-weights the original points.
type ClassicSeeker struct {
	Params Params
}

// Seek returns one mode per point, starting each kernel at its own point.
func (c *ClassicSeeker) Seek(points []l1points.Point) []Mode {
	if len(points) == 0 {
		return nil
	}

	samples := make([]sample, len(points))
	for i, p := range points {
		samples[i] = sample{X: p.X, Y: p.Y, Z: p.Z, W: 1}
	}
	set := newSampleSet(samples, c.Params.Kernel)

	modes := make([]Mode, len(points))
	for i, p := range points {
		modes[i] = set.seek(p.X, p.Y, p.Z, c.Params)
	}
	return modes
}
