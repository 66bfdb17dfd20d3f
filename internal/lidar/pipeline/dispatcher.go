package pipeline

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
)

// DefaultFracCores is the default share of hardware threads given to tiles.
const DefaultFracCores = 0.5

// TileError reports a tile whose processing failed. A failed tile fails the
// whole run: dropping it would silently undercount the crowns in its area.
type TileError struct {
	Index int    // Position in the submitted tile list
	ID    string // Tile ID
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

// WorkerCount returns floor(cores × frac), never less than one.
func WorkerCount(frac float64, cores int) int {
	n := int(math.Floor(float64(cores) * frac))
	if n < 1 {
		return 1
	}
	return n
}

// processFunc processes one tile. Tests substitute it to inject failures.
type processFunc func(l1points.Tile, l4tiles.Params) (l4tiles.Result, error)

// Dispatcher runs the tile processor over a bounded worker pool.
type Dispatcher struct {
	Workers int
	Params  l4tiles.Params

	process processFunc
}

// NewDispatcher creates a dispatcher with the given parameters. workers < 1
// selects WorkerCount(DefaultFracCores, runtime.NumCPU()).
func NewDispatcher(params l4tiles.Params, workers int) *Dispatcher {
	if workers < 1 {
		workers = WorkerCount(DefaultFracCores, runtime.NumCPU())
	}
	return &Dispatcher{
		Workers: workers,
		Params:  params,
		process: l4tiles.Process,
	}
}

// Dispatch processes every tile and concatenates the detections in tile
// order, whatever order the workers finish in. Tiles are only read. If any
// tile fails, Dispatch returns its *TileError and no detections; remaining
// tiles are not started.
func (d *Dispatcher) Dispatch(ctx context.Context, tiles []l1points.Tile) ([]l4tiles.Detection, l4tiles.Stats, error) {
	results := make([]l4tiles.Result, len(tiles))
	errs := make([]error, len(tiles))
	jobs := make(chan int)

	var failed atomic.Bool
	var wg sync.WaitGroup

	workers := d.Workers
	if workers > len(tiles) {
		workers = len(tiles)
	}
	for w := 0; w < workers; w++ {
		params := d.Params // each worker owns its copy
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = d.runTile(i, tiles[i], params)
				if errs[i] != nil {
					failed.Store(true)
					continue
				}
				diagf("tile %d (%s): %d points, %d ground, %d kept", i, tiles[i].ID,
					results[i].Stats.Input, results[i].Stats.Ground, results[i].Stats.Kept)
			}
		}()
	}

feed:
	for i := range tiles {
		if failed.Load() {
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, l4tiles.Stats{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, l4tiles.Stats{}, err
	}

	var stats l4tiles.Stats
	total := 0
	for _, r := range results {
		total += len(r.Detections)
	}
	out := make([]l4tiles.Detection, 0, total)
	for _, r := range results {
		out = append(out, r.Detections...)
		stats.Add(r.Stats)
	}
	return out, stats, nil
}

// runTile processes one tile, converting an error or a panic into a
// *TileError.
func (d *Dispatcher) runTile(i int, tile l1points.Tile, params l4tiles.Params) (res l4tiles.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = l4tiles.Result{}
			err = &TileError{Index: i, ID: tile.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, err = d.process(tile, params)
	if err != nil {
		return l4tiles.Result{}, &TileError{Index: i, ID: tile.ID, Err: err}
	}
	return res, nil
}
