package behavior

import "github.com/banshee-data/highway.planner/internal/config"

// Config is the immutable parameter set of the state machine.
type Config struct {
	LanesAvailable      int
	LaneWidth           float64
	TargetSpeed         float64 // m/s
	MaxAcceleration     float64 // m/s²
	GoalS               float64
	Dt                  float64 // planning step, seconds
	PreferredBuffer     float64 // metres kept behind a lead vehicle
	LaneChangeTolerance float64 // |d - lane centre| below which a change is complete
	Cost                CostWeights
}

// CostWeights scales the terms of the maneuver cost.
type CostWeights struct {
	Efficiency float64
	Buffer     float64
	Prep       float64
	Change     float64
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		LanesAvailable:      cfg.GetLanesAvailable(),
		LaneWidth:           cfg.GetLaneWidth(),
		TargetSpeed:         cfg.GetTargetSpeedMPS(),
		MaxAcceleration:     cfg.GetMaxAcceleration(),
		GoalS:               cfg.GetGoalS(),
		Dt:                  cfg.GetPlanningDt(),
		PreferredBuffer:     cfg.GetPreferredBuffer(),
		LaneChangeTolerance: cfg.GetLaneChangeTolerance(),
		Cost: CostWeights{
			Efficiency: cfg.GetCostEfficiencyWeight(),
			Buffer:     cfg.GetCostBufferWeight(),
			Prep:       cfg.GetCostPrepPenalty(),
			Change:     cfg.GetCostChangePenalty(),
		},
	}
}
