package pipeline

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy.report/internal/lidar/l1points"
	"github.com/banshee-data/canopy.report/internal/lidar/l2kernel"
	"github.com/banshee-data/canopy.report/internal/lidar/l3modes"
	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
	"github.com/banshee-data/canopy.report/internal/lidar/l5identity"
)

func crown(rng *rand.Rand, cx, cy, top float64, n int) []l1points.Point {
	pts := make([]l1points.Point, n)
	for i := range pts {
		r := rng.Float64() * 2
		a := rng.Float64() * 2 * math.Pi
		pts[i] = l1points.Point{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a), Z: top - r*0.8 - rng.Float64()}
	}
	return pts
}

// cutTile keeps the points with x in [coreMin-buf, coreMax+buf) and flags
// those outside [coreMin, coreMax) as buffer.
func cutTile(id string, all []l1points.Point, coreMin, coreMax, buf float64) l1points.Tile {
	t := l1points.Tile{ID: id}
	for _, p := range all {
		if p.X < coreMin-buf || p.X >= coreMax+buf {
			continue
		}
		p.InBuffer = p.X < coreMin || p.X >= coreMax
		t.Points = append(t.Points, p)
	}
	return t
}

// stand returns a strip of crowns cut into four tiles with 10 m buffers.
func stand(seed int64) []l1points.Tile {
	rng := rand.New(rand.NewSource(seed))
	var all []l1points.Point
	for x := 5.0; x < 80; x += 9 {
		all = append(all, crown(rng, x, 5+rng.Float64()*10, 15+rng.Float64()*10, 60)...)
	}
	for i := 0; i < 300; i++ {
		all = append(all, l1points.Point{X: rng.Float64() * 80, Y: rng.Float64() * 20, Z: rng.Float64()})
	}
	var tiles []l1points.Tile
	for i := 0; i < 4; i++ {
		core := float64(i) * 20
		tiles = append(tiles, cutTile(string(rune('a'+i)), all, core, core+20, 10))
	}
	return tiles
}

func testConfig() Config {
	tp := l4tiles.DefaultParams()
	tp.BufferWidth = 0
	return Config{Tile: tp, Strategy: l5identity.StrategyExact, Eps: 1}
}

func sortDetections(ds []l4tiles.Detection) {
	sort.Slice(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
}

func TestWorkerCount(t *testing.T) {
	tests := []struct {
		frac  float64
		cores int
		want  int
	}{
		{0.5, 8, 4},
		{0.5, 3, 1},
		{1, 16, 16},
		{0.1, 4, 1},
		{0.75, 10, 7},
	}
	for _, tt := range tests {
		if got := WorkerCount(tt.frac, tt.cores); got != tt.want {
			t.Errorf("WorkerCount(%v, %d) = %d, want %d", tt.frac, tt.cores, got, tt.want)
		}
	}
}

func TestRun_ThreePointCluster(t *testing.T) {
	tile := l1points.Tile{ID: "tiny", Points: []l1points.Point{
		{X: 0, Y: 0, Z: 2},
		{X: 0.1, Y: 0, Z: 2},
		{X: 0, Y: 0.1, Z: 2},
	}}
	cfg := testConfig()
	cfg.Tile.MinZ = 2
	cfg.Tile.Seek.Kernel = l2kernel.Params{CWInter: 10, CLInter: 10}
	cfg.Tile.Seek.Tolerance = 1e-6
	cfg.Workers = 1

	res, err := Run(context.Background(), []l1points.Tile{tile}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Detections, 3)

	for _, d := range res.Detections {
		assert.Equal(t, 1, d.ID)
		assert.InDelta(t, 0.1/3, d.CtrX, 1e-3)
		assert.InDelta(t, 0.1/3, d.CtrY, 1e-3)
		assert.InDelta(t, 2, d.CtrZ, 1e-9)
	}
	assert.Equal(t, 1, res.Stats.Clusters)
	require.Len(t, res.Crowns, 1)
	assert.Equal(t, 3, res.Crowns[0].Points)
}

func TestRun_BoundaryTreeCountedOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	tree1 := crown(rng, 16, 8, 20, 80) // core of A, buffer of B
	tree2 := crown(rng, 32, 8, 22, 80) // core of B only
	all := append(append([]l1points.Point(nil), tree1...), tree2...)

	a := cutTile("A", all, 0, 20, 10)
	b := cutTile("B", all, 20, 40, 10)

	// Crown centres sit mid-cell on a 4 m grid, so every mode rounds to the
	// centre.
	cfg := testConfig()
	cfg.Tile.CtrAccuracy = 4

	res, err := Run(context.Background(), []l1points.Tile{a, b}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Detections, len(all))

	seen := map[[3]float64]bool{}
	for _, d := range res.Detections {
		key := [3]float64{d.X, d.Y, d.Z}
		require.False(t, seen[key], "point %v emitted twice", key)
		seen[key] = true
		if d.X < 20 {
			assert.Equal(t, "A", d.Tile)
		} else {
			assert.Equal(t, "B", d.Tile)
		}
	}
}

func TestRun_IdempotentAcrossWorkerCounts(t *testing.T) {
	tiles := stand(3)

	cfg := testConfig()
	cfg.Workers = 1
	first, err := Run(context.Background(), tiles, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, first.Detections)

	again, err := Run(context.Background(), tiles, cfg)
	require.NoError(t, err)
	if diff := cmp.Diff(first.Detections, again.Detections); diff != "" {
		t.Errorf("single-worker rerun differs (-first +again):\n%s", diff)
	}

	cfg.Workers = 4
	parallel, err := Run(context.Background(), tiles, cfg)
	require.NoError(t, err)

	a := append([]l4tiles.Detection(nil), first.Detections...)
	b := append([]l4tiles.Detection(nil), parallel.Detections...)
	sortDetections(a)
	sortDetections(b)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("parallel run differs from single-worker run (-1 +4):\n%s", diff)
	}
}

func TestRun_GroundNeverAttributed(t *testing.T) {
	cfg := testConfig()
	res, err := Run(context.Background(), stand(8), cfg)
	require.NoError(t, err)
	for _, d := range res.Detections {
		if d.Z < cfg.Tile.MinZ {
			t.Fatalf("ground return Z=%.3f received cluster %d", d.Z, d.ID)
		}
	}
	assert.Greater(t, res.Stats.Ground, 0)
	assert.Equal(t, len(res.Detections), res.Stats.Kept)
}

func TestRun_DistanceStrategies(t *testing.T) {
	tiles := stand(5)
	cfg := testConfig()
	cfg.Workers = 2

	cfg.Strategy = l5identity.StrategyDistance
	greedy, err := Run(context.Background(), tiles, cfg)
	require.NoError(t, err)

	cfg.Strategy = l5identity.StrategyDistanceKDTree
	kd, err := Run(context.Background(), tiles, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(greedy.Detections, kd.Detections); diff != "" {
		t.Errorf("kd-tree strategy differs from greedy (-greedy +kd):\n%s", diff)
	}
}

func TestRun_InvalidKernelFailsFast(t *testing.T) {
	cfg := testConfig()
	cfg.Tile.Seek.Kernel = l2kernel.Params{CWInter: 5, H2CW: -0.5, CLInter: 1, H2CL: 0.4}

	_, err := Run(context.Background(), stand(1), cfg)
	assert.True(t, errors.Is(err, l2kernel.ErrInvalidKernel), "got %v", err)
}

func TestRun_VoxelKernelCheckedAtRoundedHeight(t *testing.T) {
	// Height is positive from h=2.25 up. minz=2.4 is valid for exact
	// coordinates, but voxel centres round down to h=2.
	tile := l1points.Tile{ID: "low", Points: []l1points.Point{
		{X: 0, Y: 0, Z: 2.4},
		{X: 0.5, Y: 0, Z: 6},
		{X: 0, Y: 0.5, Z: 10},
	}}
	cfg := testConfig()
	cfg.Workers = 1
	cfg.Tile.MinZ = 2.4
	cfg.Tile.Seek.Kernel = l2kernel.Params{CWInter: 1, H2CW: 0.3, CLInter: -0.9, H2CL: 0.4}

	cfg.Tile.Variant = l3modes.VariantClassic
	_, err := Run(context.Background(), []l1points.Tile{tile}, cfg)
	require.NoError(t, err)

	cfg.Tile.Variant = l3modes.VariantVoxel
	_, err = Run(context.Background(), []l1points.Tile{tile}, cfg)
	assert.True(t, errors.Is(err, l2kernel.ErrInvalidKernel), "got %v", err)
}

func TestRun_UnknownStrategy(t *testing.T) {
	cfg := testConfig()
	cfg.Strategy = "nearest"
	_, err := Run(context.Background(), stand(1), cfg)
	assert.True(t, errors.Is(err, l5identity.ErrUnknownStrategy), "got %v", err)
}

func TestRun_NoTiles(t *testing.T) {
	res, err := Run(context.Background(), nil, testConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Detections)
	assert.Equal(t, 0, res.Stats.Clusters)
}

func TestDispatch_TileFailureFailsRun(t *testing.T) {
	tiles := stand(2)
	d := NewDispatcher(testConfig().Tile, 2)
	d.process = func(tile l1points.Tile, p l4tiles.Params) (l4tiles.Result, error) {
		if tile.ID == "c" {
			return l4tiles.Result{}, errors.New("disk on fire")
		}
		return l4tiles.Process(tile, p)
	}

	ds, _, err := d.Dispatch(context.Background(), tiles)
	require.Error(t, err)
	assert.Nil(t, ds)

	var te *TileError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 2, te.Index)
	assert.Equal(t, "c", te.ID)
}

func TestDispatch_PanicBecomesTileError(t *testing.T) {
	tiles := stand(2)
	d := NewDispatcher(testConfig().Tile, 3)
	d.process = func(tile l1points.Tile, p l4tiles.Params) (l4tiles.Result, error) {
		if tile.ID == "b" {
			panic("index out of range")
		}
		return l4tiles.Process(tile, p)
	}

	_, _, err := d.Dispatch(context.Background(), tiles)
	var te *TileError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, "b", te.ID)
}

func TestDispatch_WorkersGetOwnParams(t *testing.T) {
	tiles := stand(4)
	d := NewDispatcher(testConfig().Tile, 4)

	var calls atomic.Int32
	d.process = func(tile l1points.Tile, p l4tiles.Params) (l4tiles.Result, error) {
		calls.Add(1)
		p.MinZ = -100 // must not leak into other tiles
		return l4tiles.Result{Stats: l4tiles.Stats{Input: len(tile.Points)}}, nil
	}

	_, stats, err := d.Dispatch(context.Background(), tiles)
	require.NoError(t, err)
	assert.Equal(t, int32(len(tiles)), calls.Load())
	assert.Equal(t, l4tiles.DefaultMinZ, d.Params.MinZ)

	total := 0
	for _, tile := range tiles {
		total += len(tile.Points)
	}
	assert.Equal(t, total, stats.Input)
}

func TestDispatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(testConfig().Tile, 2)
	_, _, err := d.Dispatch(ctx, stand(1))
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
