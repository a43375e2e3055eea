package perception

import (
	"fmt"

	"github.com/banshee-data/highway.planner/internal/config"
	"github.com/banshee-data/highway.planner/internal/highway"
)

// Config controls prediction generation.
type Config struct {
	LanesAvailable int
	LaneWidth      float64
	Horizon        int     // snapshots per vehicle, including the current one
	Dt             float64 // seconds between snapshots
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		LanesAvailable: cfg.GetLanesAvailable(),
		LaneWidth:      cfg.GetLaneWidth(),
		Horizon:        cfg.GetPredictionHorizon(),
		Dt:             cfg.GetPredictionDt(),
	}
}

// ParseSensorFusion converts raw rows of [id, x, y, vx, vy, s, d].
func ParseSensorFusion(rows [][]float64) ([]Observation, error) {
	out := make([]Observation, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("sensor fusion row %d: expected 7 values, got %d", i, len(row))
		}
		out = append(out, Observation{
			ID: int(row[0]),
			X:  row[1],
			Y:  row[2],
			VX: row[3],
			VY: row[4],
			S:  row[5],
			D:  row[6],
		})
	}
	return out, nil
}

// Predict builds a constant-velocity PredictionSet. Vehicles outside the
// carriageway are not tracked.
func Predict(observations []Observation, cfg Config) PredictionSet {
	horizon := cfg.Horizon
	if horizon < 1 {
		horizon = 1
	}
	set := make(PredictionSet, len(observations))
	for _, o := range observations {
		v := o.Vehicle(cfg.LaneWidth)
		if !highway.InRange(v.Lane, cfg.LanesAvailable) {
			continue
		}
		snaps := make([]VehicleState, horizon)
		for k := range snaps {
			snaps[k] = v.At(float64(k) * cfg.Dt)
		}
		set[o.ID] = snaps
	}
	return set
}
