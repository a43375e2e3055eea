package perception

import (
	"math"
	"sort"

	"github.com/banshee-data/highway.planner/internal/highway"
)

// EgoID identifies the ego vehicle in VehicleState snapshots.
const EgoID = -1

// VehicleState is an immutable snapshot of one vehicle in Frenet coordinates.
// V is m/s along s, A is m/s².
type VehicleState struct {
	ID   int
	Lane int
	S    float64
	D    float64
	V    float64
	A    float64
}

// At returns the snapshot advanced t seconds under constant acceleration.
// Lane and D are unchanged.
func (v VehicleState) At(t float64) VehicleState {
	next := v
	next.S = v.S + v.V*t + v.A*t*t/2
	next.V = v.V + v.A*t
	return next
}

// PredictionSet maps a tracked vehicle id to its predicted snapshots, ordered
// by time. Index 0 is the current position.
type PredictionSet map[int][]VehicleState

// IDs returns the tracked ids in ascending order, for deterministic scans.
func (p PredictionSet) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Current returns the nearest-in-time snapshot of vehicle id.
func (p PredictionSet) Current(id int) (VehicleState, bool) {
	snaps := p[id]
	if len(snaps) == 0 {
		return VehicleState{}, false
	}
	return snaps[0], true
}

// InLane returns the current snapshots of every vehicle in lane, in id order.
func (p PredictionSet) InLane(lane int) []VehicleState {
	var out []VehicleState
	for _, id := range p.IDs() {
		if v, ok := p.Current(id); ok && v.Lane == lane {
			out = append(out, v)
		}
	}
	return out
}

// Observation is one sensor-fusion row: a tracked vehicle's map position,
// map-frame velocity (m/s) and Frenet position.
type Observation struct {
	ID int
	X  float64
	Y  float64
	VX float64
	VY float64
	S  float64
	D  float64
}

// Speed returns the magnitude of the observed velocity.
func (o Observation) Speed() float64 {
	return math.Hypot(o.VX, o.VY)
}

// Vehicle converts the observation into a snapshot.
func (o Observation) Vehicle(laneWidth float64) VehicleState {
	return VehicleState{
		ID:   o.ID,
		Lane: highway.LaneOf(o.D, laneWidth),
		S:    o.S,
		D:    o.D,
		V:    o.Speed(),
	}
}

// EgoState is the ego pose for one cycle, already in planner units.
type EgoState struct {
	X        float64
	Y        float64
	S        float64
	D        float64
	YawRad   float64
	SpeedMPS float64
}

// Vehicle converts the ego pose into a snapshot.
func (e EgoState) Vehicle(laneWidth float64) VehicleState {
	return VehicleState{
		ID:   EgoID,
		Lane: highway.LaneOf(e.D, laneWidth),
		S:    e.S,
		D:    e.D,
		V:    e.SpeedMPS,
	}
}
