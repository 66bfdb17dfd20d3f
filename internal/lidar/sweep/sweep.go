package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l2kernel"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/pipeline"
)

// Combo is one point of the sweep grid.
type Combo struct {
	H2CW    float64
	H2CL    float64
	Variant l3modes.Variant
}

// Grid returns the cartesian product of the given values, variant
// outermost. Empty h2cw or h2cl lists fall back to the base setting.
func Grid(base l2kernel.Params, h2cw, h2cl []float64, variants []l3modes.Variant) []Combo {
	if len(h2cw) == 0 {
		h2cw = []float64{base.H2CW}
	}
	if len(h2cl) == 0 {
		h2cl = []float64{base.H2CL}
	}
	if len(variants) == 0 {
		variants = []l3modes.Variant{l3modes.VariantClassic}
	}

	combos := make([]Combo, 0, len(variants)*len(h2cw)*len(h2cl))
	for _, v := range variants {
		for _, cw := range h2cw {
			for _, cl := range h2cl {
				combos = append(combos, Combo{H2CW: cw, H2CL: cl, Variant: v})
			}
		}
	}
	return combos
}

// Result holds the outcome of one combo.
type Result struct {
	Combo
	Detections   int
	NonConverged int
	Clusters     int

	// Mean and sample standard deviation over crowns.
	MeanPoints float64
	MeanRadius float64
	StdRadius  float64
	MeanHeight float64
	StdHeight  float64

	Elapsed    time.Duration
	Skipped    bool // Kernel invalid over the data's height range
	SkipReason string
}

// Runner runs the pipeline once per combo on the same tiles.
type Runner struct {
	Base  pipeline.Config
	Tiles []l1points.Tile
	// OnResult, if set, is called after each combo completes.
	OnResult func(Result)
}

// Run evaluates every combo in order. A combo whose kernel is invalid is
// reported as skipped; any other failure stops the sweep.
func (r *Runner) Run(ctx context.Context, combos []Combo) ([]Result, error) {
	results := make([]Result, 0, len(combos))
	for i, c := range combos {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cfg := r.Base
		cfg.Tile.Seek.Kernel.H2CW = c.H2CW
		cfg.Tile.Seek.Kernel.H2CL = c.H2CL
		cfg.Tile.Variant = c.Variant

		res, err := pipeline.Run(ctx, r.Tiles, cfg)
		var out Result
		switch {
		case errors.Is(err, l2kernel.ErrInvalidKernel):
			out = Result{Combo: c, Skipped: true, SkipReason: err.Error()}
		case err != nil:
			return results, fmt.Errorf("combo %d (h2cw=%g h2cl=%g %s): %w", i, c.H2CW, c.H2CL, c.Variant, err)
		default:
			out = summarise(c, res)
		}

		log.Printf("[sweep] %d/%d h2cw=%.3f h2cl=%.3f %s: clusters=%d skipped=%v",
			i+1, len(combos), c.H2CW, c.H2CL, c.Variant, out.Clusters, out.Skipped)
		results = append(results, out)
		if r.OnResult != nil {
			r.OnResult(out)
		}
	}
	return results, nil
}

func summarise(c Combo, res *pipeline.Result) Result {
	out := Result{
		Combo:        c,
		Detections:   res.Stats.Kept,
		NonConverged: res.Stats.NonConverged,
		Clusters:     res.Stats.Clusters,
		Elapsed:      res.Stats.Elapsed,
	}
	if len(res.Crowns) == 0 {
		return out
	}

	points := make([]float64, len(res.Crowns))
	radii := make([]float64, len(res.Crowns))
	heights := make([]float64, len(res.Crowns))
	for i, cr := range res.Crowns {
		points[i] = float64(cr.Points)
		radii[i] = cr.Radius
		heights[i] = cr.HeightP95
	}
	out.MeanPoints = stat.Mean(points, nil)
	if len(radii) > 1 {
		out.MeanRadius, out.StdRadius = stat.MeanStdDev(radii, nil)
		out.MeanHeight, out.StdHeight = stat.MeanStdDev(heights, nil)
	} else {
		out.MeanRadius, out.MeanHeight = radii[0], heights[0]
	}
	return out
}
