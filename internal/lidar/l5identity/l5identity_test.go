package l5identity

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/canopy.report/internal/lidar/l4tiles"
)

func det(x, y, z float64) l4tiles.Detection {
	return l4tiles.Detection{
		CtrX: x, CtrY: y, CtrZ: z,
		RoundCtrX: x, RoundCtrY: y, RoundCtrZ: z,
	}
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"exact", "DISTANCE", " distance_kdtree "} {
		_, err := ParseStrategy(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseStrategy("dbscan")
	assert.True(t, errors.Is(err, ErrUnknownStrategy))

	_, err = NewResolver("dbscan", 1)
	assert.True(t, errors.Is(err, ErrUnknownStrategy))
}

func TestExactResolver_FirstEncounterOrder(t *testing.T) {
	t.Parallel()

	ds := []l4tiles.Detection{
		det(4, 4, 10),
		det(0, 0, 10),
		det(4, 4, 10),
		det(2, 2, 10),
		det(0, 0, 10),
	}
	got := ExactResolver{}.Resolve(ds)
	assert.Equal(t, []int{1, 2, 1, 3, 2}, got)
}

func TestExactResolver_OrderIndependentGrouping(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(4))
	ds := make([]l4tiles.Detection, 200)
	for i := range ds {
		ds[i] = det(float64(rng.Intn(5)*2), float64(rng.Intn(5)*2), 16)
	}
	shuffled := append([]l4tiles.Detection(nil), ds...)
	perm := rng.Perm(len(ds))
	for i, p := range perm {
		shuffled[i] = ds[p]
	}

	a := ExactResolver{}.Resolve(ds)
	b := ExactResolver{}.Resolve(shuffled)

	// Same partition regardless of order: members of one group in ds map to
	// one group in shuffled.
	mapping := map[int]int{}
	for i, p := range perm {
		if prev, ok := mapping[a[p]]; ok {
			require.Equal(t, prev, b[i])
		} else {
			mapping[a[p]] = b[i]
		}
	}
}

func TestResolvers_AdjacentTileScenario(t *testing.T) {
	t.Parallel()

	same := []l4tiles.Detection{det(100, 200, 15), det(100, 200, 15)}
	assert.Equal(t, []int{1, 1}, ExactResolver{}.Resolve(same))

	// One rounding unit apart: exact keeps them apart, a 1.5 m threshold
	// merges them.
	offByOne := []l4tiles.Detection{det(100, 200, 15), det(101, 200, 15)}
	assert.Equal(t, []int{1, 2}, ExactResolver{}.Resolve(offByOne))
	assert.Equal(t, []int{1, 1}, GreedyResolver{Eps: 1.5}.Resolve(offByOne))
	assert.Equal(t, []int{1, 1}, KDTreeResolver{Eps: 1.5}.Resolve(offByOne))
}

func TestGreedyResolver_SinglePassIsOrderSensitive(t *testing.T) {
	t.Parallel()

	// A and C are 1.6 apart; B sits between them.
	a, b, c := det(0, 0, 10), det(0.8, 0, 10), det(1.6, 0, 10)
	g := GreedyResolver{Eps: 1}

	assert.Equal(t, []int{1, 1, 1}, g.Resolve([]l4tiles.Detection{a, b, c}))
	// With C before B, C cannot see A, so it opens its own cluster and B
	// joins A (the first match).
	assert.Equal(t, []int{1, 2, 1}, g.Resolve([]l4tiles.Detection{a, c, b}))
}

func TestGreedyResolver_TakesEarlierID(t *testing.T) {
	t.Parallel()

	// d2 matches d1 (which already carries d0's ID), so d2 gets ID 1, not 2.
	ds := []l4tiles.Detection{det(0, 0, 0), det(0.9, 0, 0), det(1.8, 0, 0)}
	assert.Equal(t, []int{1, 1, 1}, GreedyResolver{Eps: 1}.Resolve(ds))
}

func TestGreedyResolver_StrictThreshold(t *testing.T) {
	t.Parallel()

	ds := []l4tiles.Detection{det(0, 0, 0), det(1, 0, 0)}
	assert.Equal(t, []int{1, 2}, GreedyResolver{Eps: 1}.Resolve(ds))
	assert.Equal(t, []int{1, 2}, KDTreeResolver{Eps: 1}.Resolve(ds))
}

func TestKDTreeResolver_MatchesGreedy(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(99))
	ds := make([]l4tiles.Detection, 800)
	for i := range ds {
		ds[i] = det(rng.Float64()*60, rng.Float64()*60, 10+rng.Float64()*15)
	}

	for _, eps := range []float64{0.5, 1, 2.5} {
		want := GreedyResolver{Eps: eps}.Resolve(ds)
		got := KDTreeResolver{Eps: eps}.Resolve(ds)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("eps=%v: kd-tree IDs differ from greedy (-want +got):\n%s", eps, diff)
		}
	}
}

func TestAssign(t *testing.T) {
	t.Parallel()

	ds := []l4tiles.Detection{det(0, 0, 0), det(0, 0, 0), det(5, 5, 5)}
	r, err := NewResolver(StrategyExact, 0)
	require.NoError(t, err)
	Assign(ds, r)
	assert.Equal(t, 1, ds[0].ID)
	assert.Equal(t, 1, ds[1].ID)
	assert.Equal(t, 2, ds[2].ID)
}

func TestResolvers_Empty(t *testing.T) {
	t.Parallel()

	for _, r := range []Resolver{ExactResolver{}, GreedyResolver{Eps: 1}, KDTreeResolver{Eps: 1}} {
		assert.Empty(t, r.Resolve(nil))
	}
}
