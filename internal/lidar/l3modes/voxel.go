package l3modes

import (
	"math"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
)

// VoxelSeeker runs mean shift on a 1-unit integer voxel grid. Points are
// rounded to the nearest voxel, each occupied voxel is weighted by its point
// count, and every voxel seeks its mode once; all points in that voxel share
// the result. This trades sub-unit precision for throughput on dense tiles.
type VoxelSeeker struct {
	Params Params
}

type voxelKey [3]int64

// Seek returns one mode per point, starting each kernel at the point's voxel.
func (v *VoxelSeeker) Seek(points []l1points.Point) []Mode {
	if len(points) == 0 {
		return nil
	}

	slot := make(map[voxelKey]int, len(points)/2+1)
	owner := make([]int, len(points))
	var samples []sample

	for i, p := range points {
		key := voxelKey{
			int64(math.Round(p.X)),
			int64(math.Round(p.Y)),
			int64(math.Round(p.Z)),
		}
		j, ok := slot[key]
		if !ok {
			j = len(samples)
			slot[key] = j
			samples = append(samples, sample{
				X: float64(key[0]),
				Y: float64(key[1]),
				Z: float64(key[2]),
			})
		}
		samples[j].W++
		owner[i] = j
	}

	set := newSampleSet(samples, v.Params.Kernel)
	voxelModes := make([]Mode, len(samples))
	for j, s := range samples {
		voxelModes[j] = set.seek(s.X, s.Y, s.Z, v.Params)
	}

	modes := make([]Mode, len(points))
	for i, j := range owner {
		modes[i] = voxelModes[j]
	}
	return modes
}
