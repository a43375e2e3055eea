// Package planner runs one behavior + trajectory cycle per control tick: it
// refreshes the ego snapshot, predicts traffic, picks the next maneuver and
// turns it into a path.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/highway.planner/internal/behavior"
	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/safety"
	"github.com/banshee-data/highway.planner/internal/timeutil"
	"github.com/banshee-data/highway.planner/internal/trajectory"
)

// Input is everything the host reports for one cycle.
type Input struct {
	Ego          perception.EgoState
	Leftover     trajectory.Path
	EndPathS     float64
	Observations []perception.Observation
}

// Output is one cycle's decision and path.
type Output struct {
	Cycle       int
	Path        trajectory.Path
	State       behavior.State
	Lane        int
	TargetSpeed float64 // behavior goal, m/s
	RefVel      float64 // goal after braking overrides, m/s
	Speed       float64 // commanded speed at the end of the path, m/s
	Brake       trajectory.BrakeMode
	EarlyExit   bool
	Elapsed     time.Duration
}

// CycleRecord is the persisted summary of one cycle.
type CycleRecord struct {
	Cycle       int
	S           float64
	D           float64
	Speed       float64
	State       string
	Lane        int
	TargetSpeed float64
	Braking     string
	Points      int
}

// Recorder persists cycle summaries.
type Recorder interface {
	RecordCycle(ctx context.Context, rec CycleRecord) error
}

// Config holds the dependencies of a Planner.
type Config struct {
	Tuning   *config.TuningConfig      // required
	Lookup   trajectory.WaypointLookup // required; a MaxS() method marks a closed course
	Recorder Recorder                  // Optional: cycle persistence
	Clock    timeutil.Clock            // Optional: defaults to RealClock
}

// Planner owns one planning session. It is not safe for concurrent use.
type Planner struct {
	fsm      *behavior.FSM
	gen      *trajectory.Generator
	predCfg  perception.Config
	recorder Recorder
	clock    timeutil.Clock

	laneWidth float64
	dt        float64
	budget    time.Duration
	cycle     int
	overruns  int
}

// New validates cfg and returns a Planner in KeepLane.
func New(cfg Config) (*Planner, error) {
	if cfg.Tuning == nil {
		return nil, errors.New("planner: tuning config is required")
	}
	if cfg.Lookup == nil {
		return nil, errors.New("planner: waypoint lookup is required")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	q := safety.QueryFromTuning(cfg.Tuning)
	if track, ok := cfg.Lookup.(interface{ MaxS() float64 }); ok {
		q.TrackLength = track.MaxS()
	}
	return &Planner{
		fsm:       behavior.NewFSM(behavior.ConfigFromTuning(cfg.Tuning), q),
		gen:       trajectory.NewGenerator(trajectory.ConfigFromTuning(cfg.Tuning), cfg.Lookup, q),
		predCfg:   perception.ConfigFromTuning(cfg.Tuning),
		recorder:  cfg.Recorder,
		clock:     clock,
		laneWidth: cfg.Tuning.GetLaneWidth(),
		dt:        cfg.Tuning.GetPlanningDt(),
		budget:    time.Duration(cfg.Tuning.GetTickDuration() * float64(time.Second)),
	}, nil
}

// Step runs one planning cycle. A failed spline fit is returned; recorder
// failures are logged and do not fail the cycle.
func (p *Planner) Step(ctx context.Context, in Input) (Output, error) {
	start := p.clock.Now()
	p.cycle++

	p.fsm.RefreshEgo(in.Ego.Vehicle(p.laneWidth), p.dt)
	predictions := perception.Predict(in.Observations, p.predCfg)
	next := p.fsm.ChooseNextState(predictions)
	p.fsm.RealizeNextState(next)

	res, err := p.gen.Generate(trajectory.LocationInput{
		Ego:      in.Ego,
		Leftover: in.Leftover,
		EndPathS: in.EndPathS,
	}, next.TargetV, next.Lane, predictions)
	if err != nil {
		return Output{}, fmt.Errorf("planner: cycle %d: %w", p.cycle, err)
	}

	out := Output{
		Cycle:       p.cycle,
		Path:        res.Path,
		State:       next.State,
		Lane:        next.Lane,
		TargetSpeed: next.TargetV,
		RefVel:      res.RefVel,
		Speed:       res.Speed,
		Brake:       res.Brake,
		EarlyExit:   res.EarlyExit,
	}

	if p.recorder != nil {
		rec := CycleRecord{
			Cycle:       p.cycle,
			S:           in.Ego.S,
			D:           in.Ego.D,
			Speed:       in.Ego.SpeedMPS,
			State:       next.State.String(),
			Lane:        next.Lane,
			TargetSpeed: next.TargetV,
			Braking:     res.Brake.String(),
			Points:      len(res.Path),
		}
		if err := p.recorder.RecordCycle(ctx, rec); err != nil {
			monitoring.Logf("planner: record cycle %d: %v", p.cycle, err)
		}
	}

	out.Elapsed = p.clock.Since(start)
	if p.budget > 0 && out.Elapsed > p.budget {
		p.overruns++
		monitoring.Logf("planner: cycle %d took %v, over the %v tick budget (%d overruns)",
			p.cycle, out.Elapsed, p.budget, p.overruns)
	}
	return out, nil
}

// Cycles returns the number of cycles run.
func (p *Planner) Cycles() int { return p.cycle }

// Overruns returns the number of cycles that exceeded the tick budget.
func (p *Planner) Overruns() int { return p.overruns }

// Speed returns the commanded speed carried into the next cycle.
func (p *Planner) Speed() float64 { return p.gen.Speed() }
