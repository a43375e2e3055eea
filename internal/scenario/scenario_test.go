package scenario

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/planner"
)

func TestParseTraffic(t *testing.T) {
	t.Parallel()

	vs, err := ParseTraffic("1:160:8, 0:300:15", 4)
	require.NoError(t, err)
	assert.Equal(t, []Vehicle{
		{ID: 0, S: 160, D: 6, Speed: 8},
		{ID: 1, S: 300, D: 2, Speed: 15},
	}, vs)

	vs, err = ParseTraffic("  ", 4)
	require.NoError(t, err)
	assert.Empty(t, vs)

	for _, bad := range []string{"1:160", "x:160:8", "1:y:8", "1:160:z", "1:160:-3"} {
		_, err := ParseTraffic(bad, 4)
		assert.Error(t, err, bad)
	}
}

func baseConfig() Config {
	return Config{
		Name:            "test",
		Tuning:          config.EmptyTuningConfig(),
		Map:             highway.StraightMap(8000, 30),
		Cycles:          100,
		ConsumePerCycle: 5,
		StartS:          100,
		StartLane:       1,
	}
}

func assertSane(t *testing.T, res *Result) {
	t.Helper()
	assert.Zero(t, res.Summary.Collisions)
	for _, out := range res.Cycles {
		require.True(t, highway.InRange(out.Lane, 3), "cycle %d lane %d", out.Cycle, out.Lane)
		require.NotEmpty(t, out.Path)
	}
	for _, s := range res.Trace.Samples {
		require.Greater(t, s.Speed, 0.0)
		require.Less(t, s.Speed, 22*1.1)
	}
}

func TestRun_FreeRoadReachesTargetSpeed(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)

	sum := res.Summary
	assert.Equal(t, 500, sum.Ticks)
	assert.Len(t, res.Trace.Samples, 500)
	assert.Zero(t, sum.LaneChanges)
	assert.Zero(t, sum.EmergencyCycles)
	assert.True(t, math.IsInf(sum.MinGap, 1))
	last := res.Trace.Samples[len(res.Trace.Samples)-1]
	assert.InDelta(t, 22, last.Speed, 0.5)
	assert.InDelta(t, 6, -last.Y, 0.1, "stays in lane 1")
	assert.Greater(t, sum.Distance, 100.0)
}

func TestRun_OvertakesSlowVehicle(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Cycles = 400
	cfg.StartSpeed = 15
	cfg.Traffic = []Vehicle{{ID: 0, S: 160, D: 6, Speed: 8}}

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)

	sum := res.Summary
	assert.GreaterOrEqual(t, sum.LaneChanges, 1)
	assert.Greater(t, sum.MinGap, 0.0)
	egoX := res.Trace.Samples[len(res.Trace.Samples)-1].X
	lead := res.Trace.Traffic[0]
	require.NotEmpty(t, lead)
	assert.Greater(t, egoX, lead[len(lead)-1].X, "ego ends ahead of the slow vehicle")
}

func TestRun_BoxedInStaysBehind(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Cycles = 300
	cfg.StartSpeed = 10
	// A wall of traffic at the same speed in every lane.
	cfg.Traffic = []Vehicle{
		{ID: 0, S: 160, D: 2, Speed: 9},
		{ID: 1, S: 160, D: 6, Speed: 9},
		{ID: 2, S: 160, D: 10, Speed: 9},
	}

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)
	egoX := res.Trace.Samples[len(res.Trace.Samples)-1].X
	for _, track := range res.Trace.Traffic {
		assert.Less(t, egoX, track[len(track)-1].X)
	}
}

func TestRun_Loop(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Map = highway.CircleMap(400, 360)
	cfg.StartS = 0
	cfg.Cycles = 150

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)
	assert.Zero(t, res.Summary.LaneChanges)
}

func TestRun_LoopLeadAcrossSeam(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.Map = highway.CircleMap(400, 360)
	cfg.StartS = cfg.Map.MaxS() - 40
	cfg.StartSpeed = 10
	cfg.Cycles = 200
	cfg.Traffic = []Vehicle{{ID: 0, S: 5, D: 6, Speed: 5}}

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)
	assert.False(t, math.IsInf(res.Summary.MinGap, 1), "lead across the seam is tracked")
	assert.Greater(t, res.Summary.MinGap, collisionLength)
}

func TestRun_HoldsCruiseSpeed(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.StartSpeed = 22
	cfg.Cycles = 200

	res, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assertSane(t, res)
	for _, out := range res.Cycles[len(res.Cycles)/2:] {
		assert.InDelta(t, 22, out.Speed, 1e-6, "cycle %d", out.Cycle)
	}
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordCycle(context.Context, planner.CycleRecord) error {
	c.n++
	return nil
}

func TestRun_RecordsCycles(t *testing.T) {
	t.Parallel()
	rec := &countingRecorder{}
	cfg := baseConfig()
	cfg.Cycles = 20
	cfg.Recorder = rec

	_, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 20, rec.n)
}

func TestRun_Validation(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	cfg.ConsumePerCycle = 0
	_, err := Run(context.Background(), cfg)
	assert.Error(t, err)

	cfg = baseConfig()
	cfg.Map = nil
	_, err = Run(context.Background(), cfg)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, baseConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectorSummary(t *testing.T) {
	col := newCollector(0.02, 4, math.Inf(1))
	for _, v := range []float64{10, 10.2, 10.3, 10.1} {
		col.tick(v, v*0.02, 100, 6, []Vehicle{{ID: 0, S: 130, D: 6, Speed: 8}})
	}
	sum := col.summary(2)

	if sum.Ticks != 4 {
		t.Errorf("Ticks = %d, want 4", sum.Ticks)
	}
	if math.Abs(sum.MaxAccel-10) > 1e-9 {
		t.Errorf("MaxAccel = %v, want 10", sum.MaxAccel)
	}
	if math.Abs(sum.MaxDecel-10) > 1e-9 {
		t.Errorf("MaxDecel = %v, want 10", sum.MaxDecel)
	}
	if math.Abs(sum.MinGap-30) > 1e-9 {
		t.Errorf("MinGap = %v, want 30", sum.MinGap)
	}
	if sum.Collisions != 0 || sum.Overruns != 2 {
		t.Errorf("Collisions = %d, Overruns = %d, want 0 and 2", sum.Collisions, sum.Overruns)
	}
}
