package behavior

import (
	"math"

	"github.com/banshee-data/highway.planner/internal/perception"
)

// cost scores a candidate; lower is better. Terms:
//
//   - efficiency: how far the achievable speeds in the intended and final
//     lanes fall short of the target speed, normalised to [0, 2];
//   - buffer: exp(-gap/safe) proximity of the lead vehicle in the final lane;
//   - a flat penalty for preparing or executing a lane change.
func (f *FSM) cost(c Candidate, p perception.PredictionSet) float64 {
	w := f.cfg.Cost
	total := w.Efficiency * f.efficiencyCost(c, p)
	total += w.Buffer * f.bufferCost(c.Lane, p)
	switch {
	case c.State.IsPrep():
		total += w.Prep
	case c.State.IsLaneChange():
		total += w.Change
	}
	return total
}

func (f *FSM) efficiencyCost(c Candidate, p perception.PredictionSet) float64 {
	target := f.cfg.TargetSpeed
	if target <= 0 {
		return 0
	}
	intended := f.kinematics(p, c.IntendedLane).v
	final := f.kinematics(p, c.Lane).v
	return (2*target - intended - final) / target
}

func (f *FSM) bufferCost(lane int, p perception.PredictionSet) float64 {
	ahead, ok := f.safety.VehicleAhead(p, lane, f.ctx.Ego, false)
	if !ok {
		return 0
	}
	safe := f.safety.SafeDistance(f.ctx.Ego.V)
	if safe <= 0 {
		return 0
	}
	return math.Exp(-f.safety.Gap(f.ctx.Ego.S, ahead.S) / safe)
}
