// Package perception turns the simulator's sensor-fusion rows into the
// per-vehicle snapshots and short-horizon predictions the planner consumes.
//
// Key types: VehicleState, PredictionSet, Observation, EgoState.
//
// Predictions are constant-velocity and rebuilt every cycle; nothing here
// persists between cycles.
package perception
