package trajectory

import "github.com/banshee-data/highway.planner/internal/config"

// Config is the immutable parameter set of the generator.
type Config struct {
	LanesAvailable int
	LaneWidth      float64
	GoalS          float64 // course length used by the end-of-course check

	HorizonPoints int     // output length
	TickDuration  float64 // seconds between output points
	LookaheadX    float64 // local-frame x window trusted for sampling
	AnchorSpacing float64 // s spacing of forward anchors

	EndOfCourseMargin   float64
	StartupRatio        float64 // startup while speed < ratio*goal
	EmergencyKeepPoints int
	EmergencyFactor     float64
	EndOfCourseFactor   float64

	Ramp RampConfig
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		LanesAvailable:      cfg.GetLanesAvailable(),
		LaneWidth:           cfg.GetLaneWidth(),
		GoalS:               cfg.GetGoalS(),
		HorizonPoints:       cfg.GetHorizonPoints(),
		TickDuration:        cfg.GetTickDuration(),
		LookaheadX:          cfg.GetLookaheadX(),
		AnchorSpacing:       cfg.GetAnchorSpacing(),
		EndOfCourseMargin:   cfg.GetEndOfCourseMargin(),
		StartupRatio:        cfg.GetStartupRatio(),
		EmergencyKeepPoints: cfg.GetEmergencyKeepPoints(),
		EmergencyFactor:     cfg.GetEmergencyFactor(),
		EndOfCourseFactor:   cfg.GetEndOfCourseFactor(),
		Ramp: RampConfig{
			MaxAcceleration:        cfg.GetMaxAcceleration(),
			TargetSpeed:            cfg.GetTargetSpeedMPS(),
			MinSpeed:               cfg.GetMinSpeedMPS(),
			StartupWeight:          cfg.GetStartupWeight(),
			CruiseWeight:           cfg.GetCruiseWeight(),
			LaneChangeWeight:       cfg.GetLaneChangeWeight(),
			DoubleLaneChangeWeight: cfg.GetDoubleLaneChangeWeight(),
			SlowRampWeight:         cfg.GetSlowRampWeight(),
		},
	}
}
