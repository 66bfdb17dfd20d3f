package l5identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
)

// DefaultEps is the default merge distance (metres) for the distance
// strategies.
const DefaultEps = 1.0

// ErrUnknownStrategy is returned for an unrecognised strategy name.
var ErrUnknownStrategy = errors.New("unknown identity strategy")

// Strategy selects how detections are merged into clusters.
type Strategy string

const (
	// StrategyExact groups detections with identical rounded centroids.
	StrategyExact Strategy = "exact"
	// StrategyDistance greedily merges detections closer than eps using a
	// pairwise scan.
	StrategyDistance Strategy = "distance"
	// StrategyDistanceKDTree gives the same IDs as StrategyDistance using a
	// k-d tree range query.
	StrategyDistanceKDTree Strategy = "distance_kdtree"
)

// ParseStrategy converts a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case StrategyExact, StrategyDistance, StrategyDistanceKDTree:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Resolver assigns cluster IDs. IDs are 1-based.
type Resolver interface {
	// Resolve returns one ID per detection, aligned by index.
	Resolve(ds []l4tiles.Detection) []int
}

// NewResolver returns the Resolver for strategy s. eps is ignored by
// StrategyExact.
func NewResolver(s Strategy, eps float64) (Resolver, error) {
	switch s {
	case StrategyExact:
		return ExactResolver{}, nil
	case StrategyDistance:
		return GreedyResolver{Eps: eps}, nil
	case StrategyDistanceKDTree:
		return KDTreeResolver{Eps: eps}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Assign resolves ds with r and writes the IDs into the detections.
func Assign(ds []l4tiles.Detection, r Resolver) {
	for i, id := range r.Resolve(ds) {
		ds[i].ID = id
	}
}

// ExactResolver gives one ID per distinct (RoundCtrX, RoundCtrY, RoundCtrZ),
// numbered in order of first appearance. Two detections of one tree whose
// rounded centroids differ by a grid step get different IDs.
type ExactResolver struct{}

// Resolve implements Resolver.
func (ExactResolver) Resolve(ds []l4tiles.Detection) []int {
	ids := make([]int, len(ds))
	groups := make(map[[3]float64]int)
	for i, d := range ds {
		key := [3]float64{d.RoundCtrX, d.RoundCtrY, d.RoundCtrZ}
		id, ok := groups[key]
		if !ok {
			id = len(groups) + 1
			groups[key] = id
		}
		ids[i] = id
	}
	return ids
}

// GreedyResolver scans detections in order. Detection i takes the ID of the
// first earlier detection j whose centroid is closer than Eps; otherwise it
// opens a new cluster whose ID is its own 1-based position (i+1, one more
// than a 0-based row index; ID 0 is reserved for unresolved detections). This
// is a single pass, not a transitive closure, so the grouping depends on input
// order.
type GreedyResolver struct {
	Eps float64
}

// Resolve implements Resolver.
func (g GreedyResolver) Resolve(ds []l4tiles.Detection) []int {
	ids := make([]int, len(ds))
	eps2 := g.Eps * g.Eps
	for i := range ds {
		ids[i] = i + 1
		for j := 0; j < i; j++ {
			if centroidDist2(ds[i], ds[j]) < eps2 {
				ids[i] = ids[j]
				break
			}
		}
	}
	return ids
}

func centroidDist2(a, b l4tiles.Detection) float64 {
	dx := a.CtrX - b.CtrX
	dy := a.CtrY - b.CtrY
	dz := a.CtrZ - b.CtrZ
	return dx*dx + dy*dy + dz*dz
}
