package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l5identity"
	"github.com/banshee-data/canopy.report/internal/lidar/l6crowns"
)

// Config is everything a run needs besides its tiles.
type Config struct {
	Tile     l4tiles.Params
	Strategy l5identity.Strategy
	Eps      float64
	// Workers is the pool size; < 1 selects the default fraction of cores.
	Workers int
}

// Stats summarises a run.
type Stats struct {
	l4tiles.Stats
	Tiles    int           `json:"tiles"`
	Workers  int           `json:"workers"`
	Clusters int           `json:"clusters"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Result is the labelled output of a run.
type Result struct {
	Detections []l4tiles.Detection
	Crowns     []l6crowns.Crown
	Stats      Stats
}

// Run processes all tiles in parallel and resolves global cluster IDs.
// Configuration problems (unknown strategy, a kernel that is not positive
// over the height range of the input) fail before any tile is dispatched.
func Run(ctx context.Context, tiles []l1points.Tile, cfg Config) (*Result, error) {
	start := time.Now()

	resolver, err := l5identity.NewResolver(cfg.Strategy, cfg.Eps)
	if err != nil {
		return nil, err
	}
	if err := preflightKernel(tiles, cfg.Tile); err != nil {
		return nil, err
	}

	d := NewDispatcher(cfg.Tile, cfg.Workers)
	opsf("processing %d tiles with %d workers (variant=%s, strategy=%s)", len(tiles), d.Workers, cfg.Tile.Variant, cfg.Strategy)

	detections, tileStats, err := d.Dispatch(ctx, tiles)
	if err != nil {
		opsf("run failed: %v", err)
		return nil, err
	}

	l5identity.Assign(detections, resolver)
	crowns := l6crowns.Summarise(detections)

	res := &Result{
		Detections: detections,
		Crowns:     crowns,
		Stats: Stats{
			Stats:    tileStats,
			Tiles:    len(tiles),
			Workers:  d.Workers,
			Clusters: len(crowns),
			Elapsed:  time.Since(start),
		},
	}
	opsf("done: %d detections, %d clusters, %d non-converged modes in %s",
		len(detections), len(crowns), tileStats.NonConverged, res.Stats.Elapsed.Round(time.Millisecond))
	return res, nil
}

// preflightKernel checks the kernel at minz and at the tallest return across
// all tiles. The voxel variant seeks from voxel centres rounded to whole
// metres, which may sit just below minz or above the tallest return, so the
// range is widened to the rounded heights.
func preflightKernel(tiles []l1points.Tile, p l4tiles.Params) error {
	maxZ := math.Inf(-1)
	for _, t := range tiles {
		for _, pt := range t.Points {
			if pt.Z >= p.MinZ && pt.Z > maxZ {
				maxZ = pt.Z
			}
		}
	}
	if math.IsInf(maxZ, -1) {
		maxZ = p.MinZ
	}
	minZ := p.MinZ
	if p.Variant == l3modes.VariantVoxel {
		minZ = math.Min(minZ, math.Round(minZ))
		maxZ = math.Max(maxZ, math.Round(maxZ))
	}
	if err := p.Seek.Kernel.CheckRange(minZ, maxZ); err != nil {
		return fmt.Errorf("kernel preflight: %w", err)
	}
	return nil
}
