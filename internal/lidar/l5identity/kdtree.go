package l5identity

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
)

// KDTreeResolver produces exactly the GreedyResolver IDs. For each detection
// it range-queries a k-d tree over all centroids and takes the lowest-indexed
// earlier neighbour strictly closer than Eps.
type KDTreeResolver struct {
	Eps float64
}

// Resolve implements Resolver.
func (r KDTreeResolver) Resolve(ds []l4tiles.Detection) []int {
	if len(ds) == 0 {
		return []int{}
	}

	pts := make(centroids, len(ds))
	for i, d := range ds {
		pts[i] = centroid{X: d.CtrX, Y: d.CtrY, Z: d.CtrZ, Idx: i}
	}
	query := append(centroids(nil), pts...)
	tree := kdtree.New(pts, false)

	eps2 := r.Eps * r.Eps
	ids := make([]int, len(ds))
	for i := range ds {
		ids[i] = i + 1

		keeper := kdtree.NewDistKeeper(eps2)
		tree.NearestSet(keeper, query[i])

		first := -1
		for _, cd := range keeper.Heap {
			c, ok := cd.Comparable.(centroid)
			if !ok || c.Idx >= i || cd.Dist >= eps2 {
				continue
			}
			if first < 0 || c.Idx < first {
				first = c.Idx
			}
		}
		if first >= 0 {
			ids[i] = ids[first]
		}
	}
	return ids
}

// centroid is a detection centroid in a k-d tree. Idx is the detection's
// position in the resolver input.
type centroid struct {
	X, Y, Z float64
	Idx     int
}

// Compare implements kdtree.Comparable.
func (p centroid) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(centroid)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims implements kdtree.Comparable.
func (p centroid) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (p centroid) Distance(c kdtree.Comparable) float64 {
	q := c.(centroid)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

type centroids []centroid

func (p centroids) Index(i int) kdtree.Comparable         { return p[i] }
func (p centroids) Len() int                              { return len(p) }
func (p centroids) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements kdtree.Interface.
func (p centroids) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(centroidPlane{centroids: p, Dim: d}, kdtree.MedianOfRandoms(centroidPlane{centroids: p, Dim: d}, 100))
}

// centroidPlane implements kdtree.SortSlicer along one dimension.
type centroidPlane struct {
	centroids
	kdtree.Dim
}

func (p centroidPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.centroids[i].X < p.centroids[j].X
	case 1:
		return p.centroids[i].Y < p.centroids[j].Y
	case 2:
		return p.centroids[i].Z < p.centroids[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p centroidPlane) Slice(start, end int) kdtree.SortSlicer {
	return centroidPlane{centroids: p.centroids[start:end], Dim: p.Dim}
}

func (p centroidPlane) Swap(i, j int) {
	p.centroids[i], p.centroids[j] = p.centroids[j], p.centroids[i]
}
