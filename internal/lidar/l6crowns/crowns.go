package l6crowns

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
)

// Crown summarises the points that share one cluster ID.
type Crown struct {
	ID     int `json:"id"`
	Points int `json:"points"`

	// Mean mode position of the members.
	CtrX float64 `json:"ctr_x"`
	CtrY float64 `json:"ctr_y"`
	CtrZ float64 `json:"ctr_z"`

	// Highest member return.
	ApexX float64 `json:"apex_x"`
	ApexY float64 `json:"apex_y"`
	ApexZ float64 `json:"apex_z"`

	HeightP95  float64 `json:"height_p95"`
	MeanHeight float64 `json:"mean_height"`
	// Radius is the largest planar distance from a member return to the
	// mean mode position.
	Radius float64 `json:"radius"`
}

// Summarise groups detections by ID and returns one Crown per ID, sorted by
// ID. Detections with ID 0 (unresolved) are ignored.
func Summarise(ds []l4tiles.Detection) []Crown {
	members := make(map[int][]int)
	for i, d := range ds {
		if d.ID == 0 {
			continue
		}
		members[d.ID] = append(members[d.ID], i)
	}

	ids := make([]int, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	crowns := make([]Crown, 0, len(ids))
	for _, id := range ids {
		crowns = append(crowns, summarise(id, ds, members[id]))
	}
	return crowns
}

func summarise(id int, ds []l4tiles.Detection, idx []int) Crown {
	n := len(idx)
	cx := make([]float64, n)
	cy := make([]float64, n)
	cz := make([]float64, n)
	heights := make([]float64, n)

	c := Crown{ID: id, Points: n, ApexZ: math.Inf(-1)}
	for k, i := range idx {
		d := ds[i]
		cx[k], cy[k], cz[k] = d.CtrX, d.CtrY, d.CtrZ
		heights[k] = d.Z
		if d.Z > c.ApexZ {
			c.ApexX, c.ApexY, c.ApexZ = d.X, d.Y, d.Z
		}
	}

	c.CtrX = stat.Mean(cx, nil)
	c.CtrY = stat.Mean(cy, nil)
	c.CtrZ = stat.Mean(cz, nil)
	c.MeanHeight = stat.Mean(heights, nil)

	sort.Float64s(heights)
	c.HeightP95 = stat.Quantile(0.95, stat.Empirical, heights, nil)

	dist := make([]float64, n)
	for k, i := range idx {
		dist[k] = math.Hypot(ds[i].X-c.CtrX, ds[i].Y-c.CtrY)
	}
	c.Radius = floats.Max(dist)

	return c
}
