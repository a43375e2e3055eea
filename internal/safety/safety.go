// Package safety owns the safe-following-distance contract shared by the
// behavior planner and the trajectory generator, and the lane occupancy
// queries built on it.
package safety

import (
	"math"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/perception"
)

// Query answers "who is ahead of / behind me in this lane" against a
// PredictionSet. The zero value has a zero safe distance.
type Query struct {
	MinGap              float64 // metres kept even at standstill
	ReactionTime        float64 // seconds
	ComfortDeceleration float64 // m/s²
	TrackLength         float64 // lap length of a closed course; zero for an open road
}

// QueryFromTuning builds a Query from a loaded TuningConfig.
func QueryFromTuning(cfg *config.TuningConfig) Query {
	return Query{
		MinGap:              cfg.GetMinGap(),
		ReactionTime:        cfg.GetReactionTime(),
		ComfortDeceleration: cfg.GetComfortDeceleration(),
	}
}

// Gap returns the distance along the road from s to other, positive when
// other is ahead, measured across the lap seam on a closed course.
func (q Query) Gap(s, other float64) float64 {
	return highway.Gap(s, other, q.TrackLength)
}

// SafeDistance returns the minimum longitudinal gap considered safe at speed
// v: standstill gap, reaction distance and comfortable braking distance. It is
// non-decreasing in v.
func (q Query) SafeDistance(v float64) float64 {
	v = math.Max(v, 0)
	d := q.MinGap + q.ReactionTime*v
	if q.ComfortDeceleration > 0 {
		d += v * v / (2 * q.ComfortDeceleration)
	}
	return d
}

// VehicleAhead returns the nearest vehicle in lane ahead of ego. With inSafe
// set the gap must also be below SafeDistance(ego.V).
func (q Query) VehicleAhead(p perception.PredictionSet, lane int, ego perception.VehicleState, inSafe bool) (perception.VehicleState, bool) {
	var best perception.VehicleState
	bestGap := math.Inf(1)
	for _, v := range p.InLane(lane) {
		if g := q.Gap(ego.S, v.S); g > 0 && g < bestGap {
			best, bestGap = v, g
		}
	}
	if math.IsInf(bestGap, 1) {
		return perception.VehicleState{}, false
	}
	if inSafe && bestGap >= q.SafeDistance(ego.V) {
		return perception.VehicleState{}, false
	}
	return best, true
}

// VehicleBehind returns the nearest vehicle in lane behind ego. With inSafe
// set the gap must also be below the trailing vehicle's SafeDistance, since it
// is the one that would have to brake.
func (q Query) VehicleBehind(p perception.PredictionSet, lane int, ego perception.VehicleState, inSafe bool) (perception.VehicleState, bool) {
	var best perception.VehicleState
	bestGap := math.Inf(1)
	for _, v := range p.InLane(lane) {
		if g := -q.Gap(ego.S, v.S); g > 0 && g < bestGap {
			best, bestGap = v, g
		}
	}
	if math.IsInf(bestGap, 1) {
		return perception.VehicleState{}, false
	}
	if inSafe && bestGap >= q.SafeDistance(best.V) {
		return perception.VehicleState{}, false
	}
	return best, true
}

// Occupied reports whether moving into lane would put the ego inside anyone's
// safe envelope: a vehicle alongside, one ahead within the ego's safe
// distance, or one behind within its own.
func (q Query) Occupied(p perception.PredictionSet, lane int, ego perception.VehicleState) bool {
	for _, v := range p.InLane(lane) {
		if math.Abs(q.Gap(ego.S, v.S)) < q.MinGap {
			return true
		}
	}
	if _, ok := q.VehicleAhead(p, lane, ego, true); ok {
		return true
	}
	_, ok := q.VehicleBehind(p, lane, ego, true)
	return ok
}
