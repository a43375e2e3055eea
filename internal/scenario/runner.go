// Package scenario drives the planner offline against a synthetic road and
// scripted traffic, standing in for the simulator: the ego follows each
// emitted path for a fixed number of ticks before the next cycle.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/planner"
	"github.com/banshee-data/highway.planner/internal/report"
	"github.com/banshee-data/highway.planner/internal/trajectory"
)

// Config describes one offline run.
type Config struct {
	Name            string
	Tuning          *config.TuningConfig
	Map             *highway.Map
	Cycles          int
	ConsumePerCycle int // path points the ego drives per cycle
	StartS          float64
	StartLane       int
	StartSpeed      float64 // m/s
	Traffic         []Vehicle
	Recorder        planner.Recorder // Optional
}

// Result is a completed run.
type Result struct {
	Trace   report.Trace
	Summary Summary
	Cycles  []planner.Output
}

// egoState is the simulated vehicle between cycles.
type egoState struct {
	x, y, yaw float64
	s, d      float64
	speed     float64
}

// Run drives cfg.Cycles planning cycles.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Tuning == nil || cfg.Map == nil {
		return nil, errors.New("scenario: tuning and map are required")
	}
	if cfg.ConsumePerCycle < 1 || cfg.ConsumePerCycle > cfg.Tuning.GetHorizonPoints() {
		return nil, fmt.Errorf("scenario: consume per cycle %d outside [1,%d]", cfg.ConsumePerCycle, cfg.Tuning.GetHorizonPoints())
	}
	p, err := planner.New(planner.Config{Tuning: cfg.Tuning, Lookup: cfg.Map, Recorder: cfg.Recorder})
	if err != nil {
		return nil, err
	}

	tick := cfg.Tuning.GetTickDuration()
	laneWidth := cfg.Tuning.GetLaneWidth()
	traffic := append([]Vehicle(nil), cfg.Traffic...)

	ego := egoState{s: cfg.StartS, d: highway.LaneCenter(cfg.StartLane, laneWidth), speed: cfg.StartSpeed}
	ego.x, ego.y = cfg.Map.XY(ego.s, ego.d)
	ego.yaw = roadHeading(cfg.Map, ego.s, ego.d)

	res := &Result{Trace: report.Trace{Title: cfg.Name, Traffic: map[int][]report.Sample{}}}
	col := newCollector(tick, laneWidth, cfg.Map.MaxS())
	var leftover trajectory.Path
	endS := 0.0
	t := 0.0

	for cycle := 0; cycle < cfg.Cycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := planner.Input{
			Ego: perception.EgoState{
				X: ego.x, Y: ego.y, S: ego.s, D: ego.d,
				YawRad: ego.yaw, SpeedMPS: ego.speed,
			},
			Leftover:     leftover,
			EndPathS:     endS,
			Observations: observe(cfg.Map, traffic),
		}
		out, err := p.Step(ctx, in)
		if err != nil {
			return nil, err
		}
		res.Cycles = append(res.Cycles, out)
		col.cycle(out)

		n := min(cfg.ConsumePerCycle, len(out.Path))
		for i := 0; i < n; i++ {
			pt := out.Path[i]
			dist := math.Hypot(pt.X-ego.x, pt.Y-ego.y)
			if dist > 1e-9 {
				ego.yaw = math.Atan2(pt.Y-ego.y, pt.X-ego.x)
			}
			ego.x, ego.y = pt.X, pt.Y
			ego.speed = dist / tick
			t += tick

			for k := range traffic {
				traffic[k].S = wrapS(traffic[k].S+traffic[k].Speed*tick, cfg.Map.MaxS())
				vx, vy := cfg.Map.XY(traffic[k].S, traffic[k].D)
				id := traffic[k].ID
				res.Trace.Traffic[id] = append(res.Trace.Traffic[id], report.Sample{T: t, X: vx, Y: vy, Speed: traffic[k].Speed})
			}

			ego.s, ego.d = cfg.Map.Frenet(ego.x, ego.y, ego.yaw)
			res.Trace.Samples = append(res.Trace.Samples, report.Sample{
				T:       t,
				X:       ego.x,
				Y:       ego.y,
				Speed:   ego.speed,
				Target:  out.RefVel,
				Lane:    highway.LaneOf(ego.d, laneWidth),
				Braking: out.Brake == trajectory.BrakeEmergency,
			})
			col.tick(ego.speed, dist, ego.s, ego.d, traffic)
		}

		leftover = out.Path[n:]
		endS = ego.s
		if len(leftover) > 0 {
			last := leftover[len(leftover)-1]
			heading := ego.yaw
			if len(leftover) > 1 {
				prev := leftover[len(leftover)-2]
				heading = math.Atan2(last.Y-prev.Y, last.X-prev.X)
			}
			endS, _ = cfg.Map.Frenet(last.X, last.Y, heading)
		}
	}

	res.Summary = col.summary(p.Overruns())
	return res, nil
}

// observe renders traffic as sensor-fusion rows.
func observe(m *highway.Map, traffic []Vehicle) []perception.Observation {
	out := make([]perception.Observation, 0, len(traffic))
	for _, v := range traffic {
		x, y := m.XY(v.S, v.D)
		h := roadHeading(m, v.S, v.D)
		out = append(out, perception.Observation{
			ID: v.ID, X: x, Y: y,
			VX: v.Speed * math.Cos(h), VY: v.Speed * math.Sin(h),
			S: v.S, D: v.D,
		})
	}
	return out
}

func roadHeading(m *highway.Map, s, d float64) float64 {
	x0, y0 := m.XY(s, d)
	x1, y1 := m.XY(s+1, d)
	return math.Atan2(y1-y0, x1-x0)
}

func wrapS(s, maxS float64) float64 {
	if math.IsInf(maxS, 1) {
		return s
	}
	s = math.Mod(s, maxS)
	if s < 0 {
		s += maxS
	}
	return s
}
