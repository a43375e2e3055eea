package behavior

import (
	"fmt"
	"math"

	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/safety"
)

// EgoContext is the planner's working state for one cycle.
type EgoContext struct {
	State State
	Lane  int // committed lane
	Ego   perception.VehicleState
}

// Candidate is one evaluated maneuver. Lane is where the ego should drive
// now; IntendedLane is where the maneuver is heading (they differ only for
// prep states).
type Candidate struct {
	State        State
	Lane         int
	IntendedLane int
	TargetS      float64
	TargetV      float64
	TargetA      float64
	Cost         float64
}

// FSM is the behavior state machine. It is not safe for concurrent use; one
// FSM belongs to one planning loop.
type FSM struct {
	cfg    Config
	safety safety.Query

	ctx         EgoContext
	initialized bool
}

// NewFSM returns a machine in KeepLane. The lane is taken from the first ego
// snapshot passed to RefreshEgo.
func NewFSM(cfg Config, q safety.Query) *FSM {
	return &FSM{cfg: cfg, safety: q, ctx: EgoContext{State: KeepLane}}
}

// Context returns a copy of the current working state.
func (f *FSM) Context() EgoContext { return f.ctx }

// RefreshEgo ingests the perceived ego snapshot and advances it by one
// planning step under the acceleration realized last cycle.
func (f *FSM) RefreshEgo(ego perception.VehicleState, dt float64) {
	if !f.initialized {
		lane := ego.Lane
		if lane < 0 {
			lane = 0
		}
		if lane >= f.cfg.LanesAvailable {
			lane = f.cfg.LanesAvailable - 1
		}
		f.ctx.Lane = lane
		f.initialized = true
	}
	ego.A = f.ctx.Ego.A
	ego.Lane = f.ctx.Lane
	f.ctx.Ego = ego
	f.increment(dt)
}

func (f *FSM) increment(dt float64) {
	next := f.ctx.Ego.At(dt)
	if next.V < 0 {
		next.V = 0
	}
	f.ctx.Ego = next
}

// SuccessorStates returns the maneuvers reachable from the committed state,
// pruned to those that keep the ego on the carriageway. An unfinished lane
// change can only continue.
func (f *FSM) SuccessorStates() []State {
	cur := f.ctx.State
	if cur.IsLaneChange() && !f.laneChangeComplete() {
		return []State{cur}
	}

	var out []State
	for _, s := range Transitions(cur) {
		if cur.IsLaneChange() && s == cur {
			// The lateral move is done; continuing would only re-enter it.
			continue
		}
		if s != KeepLane && !highway.InRange(f.ctx.Lane+s.LaneDirection(), f.cfg.LanesAvailable) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f *FSM) laneChangeComplete() bool {
	center := highway.LaneCenter(f.ctx.Lane, f.cfg.LaneWidth)
	return math.Abs(f.ctx.Ego.D-center) <= f.cfg.LaneChangeTolerance
}

// ChooseNextState evaluates every reachable maneuver and returns the
// cheapest. Ties go to the earlier state in the transition table, which puts
// KeepLane first wherever it is reachable.
func (f *FSM) ChooseNextState(p perception.PredictionSet) Candidate {
	var best Candidate
	found := false
	for _, s := range f.SuccessorStates() {
		c, ok := f.generateCandidate(s, p)
		if !ok {
			continue
		}
		c.Cost = f.cost(c, p)
		monitoring.Debugf("behavior: candidate %s lane=%d intended=%d v=%.2f cost=%.4f", c.State, c.Lane, c.IntendedLane, c.TargetV, c.Cost)
		if !found || c.Cost < best.Cost {
			best, found = c, true
		}
	}
	if !found {
		// Every maneuver was infeasible; hold the committed lane.
		best = f.keepLane(p)
		best.Cost = f.cost(best, p)
	}
	return best
}

// RealizeNextState commits the chosen maneuver.
func (f *FSM) RealizeNextState(c Candidate) {
	if !highway.InRange(c.Lane, f.cfg.LanesAvailable) {
		panic(fmt.Sprintf("behavior: maneuver %s targets lane %d outside [0,%d)", c.State, c.Lane, f.cfg.LanesAvailable))
	}
	if c.State != f.ctx.State {
		monitoring.Logf("behavior: %s -> %s (lane %d -> %d, v=%.2f)", f.ctx.State, c.State, f.ctx.Lane, c.Lane, c.TargetV)
	}
	f.ctx.State = c.State
	f.ctx.Lane = c.Lane
	f.ctx.Ego.A = c.TargetA
}

func (f *FSM) generateCandidate(s State, p perception.PredictionSet) (Candidate, bool) {
	switch {
	case s == KeepLane:
		return f.keepLane(p), true
	case s.IsPrep():
		return f.prepLaneChange(s, p)
	case s.IsLaneChange():
		return f.laneChange(s, p)
	default:
		panic(fmt.Sprintf("behavior: unhandled state %v", s))
	}
}

func (f *FSM) keepLane(p perception.PredictionSet) Candidate {
	k := f.kinematics(p, f.ctx.Lane)
	return Candidate{
		State:        KeepLane,
		Lane:         f.ctx.Lane,
		IntendedLane: f.ctx.Lane,
		TargetS:      k.s,
		TargetV:      k.v,
		TargetA:      k.a,
	}
}

// prepLaneChange stays in the committed lane but matches the slower of the
// two lanes, so the ego is ready to slot into the adjacent one.
func (f *FSM) prepLaneChange(s State, p perception.PredictionSet) (Candidate, bool) {
	intended := f.ctx.Lane + s.LaneDirection()
	if !highway.InRange(intended, f.cfg.LanesAvailable) {
		return Candidate{}, false
	}
	cur := f.kinematics(p, f.ctx.Lane)
	next := f.kinematics(p, intended)
	k := cur
	if next.v < cur.v {
		k = next
	}
	return Candidate{
		State:        s,
		Lane:         f.ctx.Lane,
		IntendedLane: intended,
		TargetS:      k.s,
		TargetV:      k.v,
		TargetA:      k.a,
	}, true
}

func (f *FSM) laneChange(s State, p perception.PredictionSet) (Candidate, bool) {
	lane := f.ctx.Lane
	if f.ctx.State != s {
		// Entering the change: shift the target and check the gap.
		lane += s.LaneDirection()
		if !highway.InRange(lane, f.cfg.LanesAvailable) {
			return Candidate{}, false
		}
		if f.safety.Occupied(p, lane, f.ctx.Ego) {
			return Candidate{}, false
		}
	}
	k := f.kinematics(p, lane)
	return Candidate{
		State:        s,
		Lane:         lane,
		IntendedLane: lane,
		TargetS:      k.s,
		TargetV:      k.v,
		TargetA:      k.a,
	}, true
}

type kinematics struct {
	s, v, a float64
}

// kinematics returns the target position, speed and acceleration the ego can
// hold in lane over the next planning step.
func (f *FSM) kinematics(p perception.PredictionSet, lane int) kinematics {
	ego := f.ctx.Ego
	dt := f.cfg.Dt

	v := f.cfg.TargetSpeed
	s := ego.S + v*dt
	if ahead, ok := f.safety.VehicleAhead(p, lane, ego, true); ok {
		v = math.Min(ahead.V, f.cfg.TargetSpeed)
		s = ego.S + math.Max(f.safety.Gap(ego.S, ahead.S)-f.cfg.PreferredBuffer, 0)
	}

	a := 0.0
	if dt > 0 {
		a = (v - ego.V) / dt
	}
	a = math.Max(-f.cfg.MaxAcceleration, math.Min(f.cfg.MaxAcceleration, a))
	return kinematics{s: s, v: v, a: a}
}
