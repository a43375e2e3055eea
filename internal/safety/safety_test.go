package safety

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/highway.planner/internal/perception"
)

func testQuery() Query {
	return Query{MinGap: 5, ReactionTime: 1, ComfortDeceleration: 5}
}

func set(vs ...perception.VehicleState) perception.PredictionSet {
	p := perception.PredictionSet{}
	for _, v := range vs {
		p[v.ID] = []perception.VehicleState{v, v.At(1)}
	}
	return p
}

func TestSafeDistance(t *testing.T) {
	q := testQuery()
	assert.InDelta(t, 5, q.SafeDistance(0), 1e-9)
	assert.InDelta(t, 25, q.SafeDistance(10), 1e-9)
	assert.InDelta(t, 5, q.SafeDistance(-3), 1e-9)

	prev := q.SafeDistance(0)
	for v := 0.5; v < 40; v += 0.5 {
		d := q.SafeDistance(v)
		assert.GreaterOrEqual(t, d, prev, "not monotonic at v=%v", v)
		prev = d
	}
}

func TestVehicleAhead(t *testing.T) {
	q := testQuery()
	ego := perception.VehicleState{ID: perception.EgoID, Lane: 1, S: 100, V: 10}
	p := set(
		perception.VehicleState{ID: 1, Lane: 1, S: 140, V: 8},
		perception.VehicleState{ID: 2, Lane: 1, S: 115, V: 9},
		perception.VehicleState{ID: 3, Lane: 1, S: 90, V: 12},
		perception.VehicleState{ID: 4, Lane: 0, S: 105, V: 12},
	)

	t.Run("nearest ahead regardless of gap", func(t *testing.T) {
		v, ok := q.VehicleAhead(p, 1, ego, false)
		require.True(t, ok)
		assert.Equal(t, 2, v.ID)
	})

	t.Run("within safe distance", func(t *testing.T) {
		v, ok := q.VehicleAhead(p, 1, ego, true)
		require.True(t, ok)
		assert.Equal(t, 2, v.ID)
	})

	t.Run("outside safe distance", func(t *testing.T) {
		far := set(perception.VehicleState{ID: 1, Lane: 1, S: 140, V: 8})
		_, ok := q.VehicleAhead(far, 1, ego, true)
		assert.False(t, ok)
		_, ok = q.VehicleAhead(far, 1, ego, false)
		assert.True(t, ok)
	})

	t.Run("empty lane", func(t *testing.T) {
		_, ok := q.VehicleAhead(p, 2, ego, false)
		assert.False(t, ok)
	})
}

func TestVehicleBehind(t *testing.T) {
	q := testQuery()
	ego := perception.VehicleState{ID: perception.EgoID, Lane: 1, S: 100, V: 10}
	p := set(
		perception.VehicleState{ID: 1, Lane: 1, S: 60, V: 20},
		perception.VehicleState{ID: 2, Lane: 1, S: 80, V: 10},
		perception.VehicleState{ID: 3, Lane: 1, S: 120, V: 12},
	)

	v, ok := q.VehicleBehind(p, 1, ego, false)
	require.True(t, ok)
	assert.Equal(t, 2, v.ID)

	// Gap 20 is inside SafeDistance(10) = 25 of the trailing vehicle.
	v, ok = q.VehicleBehind(p, 1, ego, true)
	require.True(t, ok)
	assert.Equal(t, 2, v.ID)

	slow := set(perception.VehicleState{ID: 5, Lane: 1, S: 80, V: 2})
	_, ok = q.VehicleBehind(slow, 1, ego, true)
	assert.False(t, ok, "gap 20 exceeds SafeDistance(2) = 7.4")
}

func TestOccupied(t *testing.T) {
	q := testQuery()
	ego := perception.VehicleState{ID: perception.EgoID, Lane: 1, S: 100, V: 10}

	assert.False(t, q.Occupied(perception.PredictionSet{}, 0, ego))
	assert.True(t, q.Occupied(set(perception.VehicleState{ID: 1, Lane: 0, S: 100, V: 10}), 0, ego), "alongside")
	assert.True(t, q.Occupied(set(perception.VehicleState{ID: 1, Lane: 0, S: 110, V: 10}), 0, ego), "close ahead")
	assert.True(t, q.Occupied(set(perception.VehicleState{ID: 1, Lane: 0, S: 85, V: 20}), 0, ego), "fast behind")
	assert.False(t, q.Occupied(set(perception.VehicleState{ID: 1, Lane: 0, S: 200, V: 10}), 0, ego), "far ahead")
}

func TestQueriesAcrossLapSeam(t *testing.T) {
	q := testQuery()
	q.TrackLength = 1000
	ego := perception.VehicleState{ID: perception.EgoID, Lane: 1, S: 995, V: 10}
	p := set(
		perception.VehicleState{ID: 1, Lane: 1, S: 3, V: 5},
		perception.VehicleState{ID: 2, Lane: 1, S: 985, V: 12},
		perception.VehicleState{ID: 3, Lane: 1, S: 500, V: 10},
	)

	if got := q.Gap(ego.S, 3); math.Abs(got-8) > 1e-9 {
		t.Errorf("Gap(995, 3) = %v, want 8", got)
	}

	v, ok := q.VehicleAhead(p, 1, ego, true)
	require.True(t, ok, "lead just past s=0 is ahead")
	assert.Equal(t, 1, v.ID)

	v, ok = q.VehicleBehind(p, 1, ego, false)
	require.True(t, ok)
	assert.Equal(t, 2, v.ID)

	lane0 := set(perception.VehicleState{ID: 4, Lane: 0, S: 1, V: 10})
	assert.True(t, q.Occupied(lane0, 0, ego), "close ahead across the seam")

	q.TrackLength = 0
	v, ok = q.VehicleAhead(p, 1, ego, false)
	assert.False(t, ok, "open road has nothing ahead of s=995, got %d", v.ID)
}
