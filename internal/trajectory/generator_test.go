package trajectory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/safety"
)

func testGenerator(t *testing.T, mutate func(*Config)) *Generator {
	t.Helper()
	tuning := config.EmptyTuningConfig()
	cfg := ConfigFromTuning(tuning)
	if mutate != nil {
		mutate(&cfg)
	}
	return NewGenerator(cfg, highway.StraightMap(8000, 30), safety.QueryFromTuning(tuning))
}

// egoAt places the ego on the straight test map, heading +x.
func egoAt(s, d, v float64) perception.EgoState {
	return perception.EgoState{X: s, Y: -d, S: s, D: d, SpeedMPS: v}
}

func traffic(vs ...perception.VehicleState) perception.PredictionSet {
	p := perception.PredictionSet{}
	for _, v := range vs {
		p[v.ID] = []perception.VehicleState{v, v.At(1)}
	}
	return p
}

func car(id int, s, d, v float64) perception.VehicleState {
	return perception.VehicleState{ID: id, Lane: highway.LaneOf(d, 4), S: s, D: d, V: v}
}

func TestBrakeModeString(t *testing.T) {
	assert.Equal(t, "none", BrakeNone.String())
	assert.Equal(t, "end_of_course", BrakeEndOfCourse.String())
	assert.Equal(t, "emergency", BrakeEmergency.String())
	assert.Equal(t, "BrakeMode(9)", BrakeMode(9).String())
}

func TestEmergencyBraking_OnlyForLeadInOwnLane(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		p       perception.PredictionSet
		want    BrakeMode
		wantRef float64
	}{
		{"no traffic", nil, BrakeNone, 20},
		{"lead inside safe distance", traffic(car(1, 115, 6, 8)), BrakeEmergency, 5},
		{"lead beyond safe distance", traffic(car(1, 200, 6, 8)), BrakeNone, 20},
		{"adjacent lane", traffic(car(1, 115, 2, 8), car(2, 110, 10, 8)), BrakeNone, 20},
		{"behind ego", traffic(car(1, 90, 6, 25)), BrakeNone, 20},
		{"nearest of several", traffic(car(1, 200, 6, 8), car(2, 120, 6, 8)), BrakeEmergency, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := testGenerator(t, nil)
			res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10)}, 20, 1, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Brake)
			assert.InDelta(t, tt.wantRef, res.RefVel, 1e-12)
		})
	}
}

func TestEmergencyBraking_EndOfCourseIsGentle(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	leftover := Path{{X: 6920.2, Y: -6}, {X: 6920.4, Y: -6}, {X: 6920.6, Y: -6}, {X: 6920.8, Y: -6}}
	loc := LocationInput{Ego: egoAt(6920, 6, 10), Leftover: leftover, EndPathS: 6920.8}

	res, err := g.Generate(loc, 20, 1, traffic(car(1, 6935, 6, 5)))
	require.NoError(t, err)
	assert.Equal(t, BrakeEndOfCourse, res.Brake)
	assert.InDelta(t, 9, res.RefVel, 1e-12)
	assert.Equal(t, leftover, res.Path[:len(leftover)], "leftover is kept near the course end")
	assert.True(t, g.Context().Ramp.SlowRamp)
}

func TestEmergencyBraking_TruncatesLeftover(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	var leftover Path
	for i := 1; i <= 10; i++ {
		leftover = append(leftover, Point{X: 100 + 0.2*float64(i), Y: -6})
	}
	loc := LocationInput{Ego: egoAt(100, 6, 10), Leftover: leftover, EndPathS: 102}

	res, err := g.Generate(loc, 20, 1, traffic(car(1, 115, 6, 8)))
	require.NoError(t, err)
	require.Equal(t, BrakeEmergency, res.Brake)
	require.Len(t, res.Path, 50)
	assert.Equal(t, leftover[:3], res.Path[:3])
	assert.Greater(t, res.Path[3].X, leftover[2].X)
	assert.InDelta(t, 100.6, g.Context().EndPathS, 1e-9)

	// slow ramp: 10 m/s² * 0.001 per tick
	require.NotEmpty(t, res.Speeds)
	assert.InDelta(t, 9.99, res.Speeds[0], 1e-9)
}

func TestEmergencyBraking_ResyncsCarriedSpeed(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	g.SetSpeed(20)
	var leftover Path
	for i := 1; i <= 10; i++ {
		leftover = append(leftover, Point{X: 100 + 0.2*float64(i), Y: -6})
	}
	loc := LocationInput{Ego: egoAt(100, 6, 10), Leftover: leftover, EndPathS: 102}

	res, err := g.Generate(loc, 20, 1, traffic(car(1, 115, 6, 8)))
	require.NoError(t, err)
	require.Equal(t, BrakeEmergency, res.Brake)
	// the kept points run at 10 m/s, not at the discarded tail's 20
	assert.InDelta(t, 5, res.RefVel, 1e-9)
	assert.InDelta(t, 9.99, res.Speeds[0], 1e-9)
}

func TestGenerate_HorizonLength(t *testing.T) {
	t.Parallel()

	t.Run("fresh start", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10)}, 20, 1, nil)
		require.NoError(t, err)
		assert.Len(t, res.Path, 50)
		assert.Len(t, res.Speeds, 50)
		assert.False(t, res.EarlyExit)
		for i, p := range res.Path {
			assert.InDelta(t, -6, p.Y, 1e-6)
			if i > 0 {
				assert.Greater(t, p.X, res.Path[i-1].X)
			}
		}
	})

	t.Run("reuses leftover", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		first, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10)}, 20, 1, nil)
		require.NoError(t, err)

		consumed := first.Path[9]
		leftover := first.Path[10:]
		loc := LocationInput{
			Ego:      egoAt(consumed.X, 6, g.Speed()),
			Leftover: leftover,
			EndPathS: leftover[len(leftover)-1].X,
		}
		second, err := g.Generate(loc, 20, 1, nil)
		require.NoError(t, err)
		assert.Len(t, second.Path, 50)
		assert.Len(t, second.Speeds, 10)
		assert.Equal(t, leftover, second.Path[:len(leftover)])
	})

	t.Run("overlong leftover is capped", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		var leftover Path
		for i := 1; i <= 60; i++ {
			leftover = append(leftover, Point{X: 100 + 0.2*float64(i), Y: -6})
		}
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10), Leftover: leftover, EndPathS: 112}, 20, 1, nil)
		require.NoError(t, err)
		assert.Len(t, res.Path, 50)
	})

	t.Run("early exit yields fewer", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, func(c *Config) { c.LookaheadX = 5 })
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10)}, 20, 1, nil)
		require.NoError(t, err)
		assert.True(t, res.EarlyExit)
		assert.Less(t, len(res.Path), 50)
		assert.NotEmpty(t, res.Path)
		for _, p := range res.Path {
			assert.LessOrEqual(t, p.X-100, 5.0+1e-9)
		}
		assert.InDelta(t, res.Speeds[len(res.Speeds)-1], g.Speed(), 1e-12)
	})
}

func TestFit_SynthesizesHistory(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	res, err := g.Generate(LocationInput{Ego: egoAt(0, 0, 10)}, 20, 0, nil)
	require.NoError(t, err)

	require.Len(t, res.Anchors, 5)
	assert.InDelta(t, -1, res.Anchors[0].X, 1e-12)
	assert.InDelta(t, 0, res.Anchors[0].Y, 1e-12)
	assert.Equal(t, Point{X: 0, Y: 0}, res.Anchors[1])
	for i, s := range []float64{30, 60, 90} {
		assert.InDelta(t, s, res.Anchors[i+2].X, 1e-9)
		assert.InDelta(t, -2, res.Anchors[i+2].Y, 1e-9, "centre of lane 0")
	}
}

func TestFit_HeadingFromLeftover(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	loc := LocationInput{
		Ego:      egoAt(0, 0, 10),
		Leftover: Path{{X: 0, Y: 0}, {X: 1, Y: 1}},
	}
	g.UpdateLocationData(loc)
	g.UpdateBehaviorData(20, 0)
	g.UpdatePredictionData(nil)
	require.Equal(t, BrakeNone, g.EmergencyBraking())
	_, err := g.Fit()
	require.NoError(t, err)

	ref := g.Context().Ref
	assert.InDelta(t, 1, ref.X, 1e-12)
	assert.InDelta(t, 1, ref.Y, 1e-12)
	assert.InDelta(t, math.Pi/4, ref.Yaw, 1e-12)
	assert.Equal(t, Point{X: 0, Y: 0}, g.Context().Anchors[0])
}

func TestFit_RejectsAnchorsBehindReference(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	// heading -x while the anchors lie along +x
	res, err := g.Generate(LocationInput{Ego: perception.EgoState{X: 100, Y: -6, S: 100, D: 6, YawRad: math.Pi, SpeedMPS: 10}}, 20, 1, nil)
	assert.ErrorIs(t, err, ErrUnsortedAnchors)
	assert.Empty(t, res.Path)
}

func TestGenerate_AcceleratesToGoal(t *testing.T) {
	t.Parallel()

	t.Run("startup ramp", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 10)}, 20, 1, nil)
		require.NoError(t, err)
		assert.True(t, g.Context().Ramp.Startup)
		assert.InDelta(t, 10.2, res.Speeds[0], 1e-9)
		prev := 10.0
		for _, v := range res.Speeds {
			assert.GreaterOrEqual(t, v, prev)
			assert.LessOrEqual(t, v-prev, 0.2+1e-9)
			assert.LessOrEqual(t, v, 20.0)
			prev = v
		}
	})

	t.Run("cruise ramp then hold", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		g.SetSpeed(18)
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 18)}, 20, 1, nil)
		require.NoError(t, err)
		assert.False(t, g.Context().Ramp.Startup)
		require.Len(t, res.Speeds, 50)
		for i, v := range res.Speeds {
			want := math.Min(18+0.1*float64(i+1), 20)
			assert.InDelta(t, want, v, 1e-9, "tick %d", i)
		}
		assert.InDelta(t, 20, g.Speed(), 1e-9)
	})

	t.Run("lane change uses the gentle step", func(t *testing.T) {
		t.Parallel()
		g := testGenerator(t, nil)
		g.SetSpeed(15)
		res, err := g.Generate(LocationInput{Ego: egoAt(100, 6, 15)}, 20, 0, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, g.Context().Ramp.LaneDelta)
		assert.InDelta(t, 15.05, res.Speeds[0], 1e-9)
		assert.InDelta(t, -2, res.Anchors[4].Y, 1e-9)
	})
}

func TestUpdateBehaviorData_PanicsOutsideRoad(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	g.UpdateLocationData(LocationInput{Ego: egoAt(100, 6, 10)})
	assert.Panics(t, func() { g.UpdateBehaviorData(20, 3) })
	assert.Panics(t, func() { g.UpdateBehaviorData(20, -1) })
	assert.NotPanics(t, func() { g.UpdateBehaviorData(20, 2) })
}

// driveCycles runs n cycles on the straight test map, consuming the first
// consume points of each path before the next cycle.
func driveCycles(t *testing.T, g *Generator, ego perception.EgoState, goalV float64, n, consume int) []Result {
	t.Helper()
	var (
		results  []Result
		leftover Path
		endS     float64
	)
	for i := 0; i < n; i++ {
		res, err := g.Generate(LocationInput{Ego: ego, Leftover: leftover, EndPathS: endS}, goalV, 1, nil)
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		results = append(results, res)

		last := res.Path[consume-1]
		prev := Point{X: ego.X, Y: ego.Y}
		if consume > 1 {
			prev = res.Path[consume-2]
		}
		ego = egoAt(last.X, -last.Y, math.Hypot(last.X-prev.X, last.Y-prev.Y)/g.cfg.TickDuration)
		leftover = res.Path[consume:]
		endS = leftover[len(leftover)-1].X
	}
	return results
}

func TestGenerate_HoldsGoalSpeedAcrossCycles(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	g.SetSpeed(20)

	for i, res := range driveCycles(t, g, egoAt(100, 6, 20), 20, 20, 5) {
		if res.Brake != BrakeNone {
			t.Fatalf("cycle %d: unexpected %s braking", i, res.Brake)
		}
		for k, v := range res.Speeds {
			if math.Abs(v-20) > 1e-9 {
				t.Fatalf("cycle %d tick %d: speed %.4f, want 20", i, k, v)
			}
		}
		if math.Abs(res.Speed-20) > 1e-9 {
			t.Errorf("cycle %d: carried speed %.4f, want 20", i, res.Speed)
		}
		for k := 1; k < len(res.Path); k++ {
			step := math.Hypot(res.Path[k].X-res.Path[k-1].X, res.Path[k].Y-res.Path[k-1].Y)
			if math.Abs(step-0.4) > 1e-6 {
				t.Fatalf("cycle %d point %d: spacing %.6f, want 0.4", i, k, step)
			}
		}
	}
}

func TestGenerate_SlowsToLowerGoalAndHolds(t *testing.T) {
	t.Parallel()
	g := testGenerator(t, nil)
	g.SetSpeed(20)

	prev := 20.0
	for i, res := range driveCycles(t, g, egoAt(100, 6, 20), 15, 30, 5) {
		for _, v := range res.Speeds {
			if v > prev+1e-9 {
				t.Fatalf("cycle %d: speed rose from %.4f to %.4f", i, prev, v)
			}
			if v < 15-1e-9 {
				t.Fatalf("cycle %d: speed %.4f undershoots the goal", i, v)
			}
			prev = v
		}
	}
	if math.Abs(g.Speed()-15) > 1e-9 {
		t.Errorf("carried speed %.4f, want 15", g.Speed())
	}
}

func TestEmergencyBraking_LeadAcrossLapSeam(t *testing.T) {
	t.Parallel()
	m := highway.CircleMap(1000, 400)
	tuning := config.EmptyTuningConfig()
	q := safety.QueryFromTuning(tuning)
	q.TrackLength = m.MaxS()
	g := NewGenerator(ConfigFromTuning(tuning), m, q)

	s := m.MaxS() - 5
	x, y := m.XY(s, 6)
	x1, y1 := m.XY(s+1, 6)
	ego := perception.EgoState{X: x, Y: y, S: s, D: 6, YawRad: math.Atan2(y1-y, x1-x), SpeedMPS: 20}

	res, err := g.Generate(LocationInput{Ego: ego}, 20, 1, traffic(car(1, 3, 6, 5)))
	require.NoError(t, err)
	assert.Equal(t, BrakeEmergency, res.Brake, "lead 8m ahead just past s=0")
	assert.InDelta(t, 10, res.RefVel, 1e-9)
	require.Len(t, res.Path, 50)

	other := NewGenerator(ConfigFromTuning(tuning), m, q)
	res, err = other.Generate(LocationInput{Ego: ego}, 20, 1, traffic(car(1, 3, 2, 5)))
	require.NoError(t, err)
	assert.Equal(t, BrakeNone, res.Brake, "lead in another lane")
}
