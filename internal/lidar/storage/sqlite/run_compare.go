package sqlite

import (
	"fmt"
	"math"

	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// RunComparison summarises how two runs differ.
type RunComparison struct {
	Run1ID     string         `json:"run1_id"`
	Run2ID     string         `json:"run2_id"`
	ParamDiff  map[string]any `json:"param_diff"`
	Clusters1  int            `json:"clusters1"`
	Clusters2  int            `json:"clusters2"`
	Matched    int            `json:"matched"`
	Only1      int            `json:"only1"`
	Only2      int            `json:"only2"`
	MeanOffset float64        `json:"mean_offset"` // metres between matched crown centres
}

// Compare loads two runs and matches their crowns by planar centre distance.
func (s *RunStore) Compare(runID1, runID2 string, matchDist float64) (*RunComparison, error) {
	r1, err := s.Get(runID1)
	if err != nil {
		return nil, err
	}
	r2, err := s.Get(runID2)
	if err != nil {
		return nil, err
	}
	c1, err := s.Crowns(runID1)
	if err != nil {
		return nil, err
	}
	c2, err := s.Crowns(runID2)
	if err != nil {
		return nil, err
	}
	if matchDist <= 0 {
		return nil, fmt.Errorf("match distance must be positive, got %f", matchDist)
	}

	cmp := &RunComparison{
		Run1ID:    r1.RunID,
		Run2ID:    r2.RunID,
		ParamDiff: compareParams(&r1.Params, &r2.Params),
		Clusters1: len(c1),
		Clusters2: len(c2),
	}
	matched, offset := matchCrowns(c1, c2, matchDist)
	cmp.Matched = matched
	cmp.Only1 = len(c1) - matched
	cmp.Only2 = len(c2) - matched
	if matched > 0 {
		cmp.MeanOffset = offset / float64(matched)
	}
	return cmp, nil
}

// matchCrowns pairs each crown in a with the nearest unpaired crown in b
// within maxDist, in ID order. It returns the pair count and summed offset.
func matchCrowns(a, b []l6crowns.Crown, maxDist float64) (int, float64) {
	used := make([]bool, len(b))
	matched := 0
	total := 0.0
	for _, ca := range a {
		best, bestDist := -1, maxDist
		for j, cb := range b {
			if used[j] {
				continue
			}
			if d := math.Hypot(ca.CtrX-cb.CtrX, ca.CtrY-cb.CtrY); d <= bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			used[best] = true
			matched++
			total += bestDist
		}
	}
	return matched, total
}

func diffValue(diff map[string]any, key string, v1, v2 any) {
	if v1 != v2 {
		diff[key] = map[string]any{"run1": v1, "run2": v2}
	}
}

// compareParams compares two RunParams and returns a map of differences.
func compareParams(p1, p2 *RunParams) map[string]any {
	diff := make(map[string]any)

	if p1.Kernel != p2.Kernel {
		kDiff := make(map[string]any)
		diffValue(kDiff, "cw_inter", p1.Kernel.CWInter, p2.Kernel.CWInter)
		diffValue(kDiff, "h2cw", p1.Kernel.H2CW, p2.Kernel.H2CW)
		diffValue(kDiff, "cl_inter", p1.Kernel.CLInter, p2.Kernel.CLInter)
		diffValue(kDiff, "h2cl", p1.Kernel.H2CL, p2.Kernel.H2CL)
		diff["kernel"] = kDiff
	}

	if p1.Seek != p2.Seek {
		sDiff := make(map[string]any)
		diffValue(sDiff, "version", p1.Seek.Variant, p2.Seek.Variant)
		diffValue(sDiff, "max_iter", p1.Seek.MaxIter, p2.Seek.MaxIter)
		diffValue(sDiff, "convergence_tol", p1.Seek.Tolerance, p2.Seek.Tolerance)
		diff["seek"] = sDiff
	}

	if p1.Tiles != p2.Tiles {
		tDiff := make(map[string]any)
		diffValue(tDiff, "minz", p1.Tiles.MinZ, p2.Tiles.MinZ)
		diffValue(tDiff, "ctr_ac", p1.Tiles.CtrAccuracy, p2.Tiles.CtrAccuracy)
		diffValue(tDiff, "buffer_width", p1.Tiles.BufferWidth, p2.Tiles.BufferWidth)
		diff["tiles"] = tDiff
	}

	if p1.Identity != p2.Identity {
		iDiff := make(map[string]any)
		diffValue(iDiff, "id_strategy", p1.Identity.Strategy, p2.Identity.Strategy)
		diffValue(iDiff, "eps", p1.Identity.Eps, p2.Identity.Eps)
		diff["identity"] = iDiff
	}

	return diff
}
