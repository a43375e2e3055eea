package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/planner.defaults.json"

// TuningConfig is the root planner configuration. Every field is optional;
// the Get* methods fall back to built-in defaults so partial files are safe.
// All speeds are m/s, distances metres, durations seconds.
type TuningConfig struct {
	// Road geometry
	LanesAvailable *int     `json:"lanes_available,omitempty"`
	LaneWidth      *float64 `json:"lane_width,omitempty"`
	GoalS          *float64 `json:"goal_s,omitempty"` // course length

	// Behavior planner
	TargetSpeedMPS      *float64 `json:"target_speed_mps,omitempty"`
	MaxAcceleration     *float64 `json:"max_acceleration,omitempty"`
	PlanningDt          *float64 `json:"planning_dt,omitempty"`
	PreferredBuffer     *float64 `json:"preferred_buffer,omitempty"`
	LaneChangeTolerance *float64 `json:"lane_change_tolerance,omitempty"`

	// Maneuver cost weights
	CostEfficiencyWeight *float64 `json:"cost_efficiency_weight,omitempty"`
	CostBufferWeight     *float64 `json:"cost_buffer_weight,omitempty"`
	CostPrepPenalty      *float64 `json:"cost_prep_penalty,omitempty"`
	CostChangePenalty    *float64 `json:"cost_change_penalty,omitempty"`

	// Prediction
	PredictionHorizon *int     `json:"prediction_horizon,omitempty"`
	PredictionDt      *float64 `json:"prediction_dt,omitempty"`

	// Safe following distance: min_gap + reaction_time*v + v²/(2*comfort_deceleration)
	MinGap              *float64 `json:"min_gap,omitempty"`
	ReactionTime        *float64 `json:"reaction_time,omitempty"`
	ComfortDeceleration *float64 `json:"comfort_deceleration,omitempty"`

	// Trajectory generator
	HorizonPoints       *int     `json:"horizon_points,omitempty"`
	TickDuration        *float64 `json:"tick_duration,omitempty"`
	LookaheadX          *float64 `json:"lookahead_x,omitempty"`
	AnchorSpacing       *float64 `json:"anchor_spacing,omitempty"`
	EndOfCourseMargin   *float64 `json:"end_of_course_margin,omitempty"`
	StartupRatio        *float64 `json:"startup_ratio,omitempty"`
	EmergencyKeepPoints *int     `json:"emergency_keep_points,omitempty"`
	EmergencyFactor     *float64 `json:"emergency_factor,omitempty"`
	EndOfCourseFactor   *float64 `json:"end_of_course_factor,omitempty"`

	// Velocity profiler ramp weights (fraction of max_acceleration per tick)
	MinSpeedMPS            *float64 `json:"min_speed_mps,omitempty"`
	StartupWeight          *float64 `json:"startup_weight,omitempty"`
	CruiseWeight           *float64 `json:"cruise_weight,omitempty"`
	LaneChangeWeight       *float64 `json:"lane_change_weight,omitempty"`
	DoubleLaneChangeWeight *float64 `json:"double_lane_change_weight,omitempty"`
	SlowRampWeight         *float64 `json:"slow_ramp_weight,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		LanesAvailable:         ptrInt(c.GetLanesAvailable()),
		LaneWidth:              ptrFloat64(c.GetLaneWidth()),
		GoalS:                  ptrFloat64(c.GetGoalS()),
		TargetSpeedMPS:         ptrFloat64(c.GetTargetSpeedMPS()),
		MaxAcceleration:        ptrFloat64(c.GetMaxAcceleration()),
		PlanningDt:             ptrFloat64(c.GetPlanningDt()),
		PreferredBuffer:        ptrFloat64(c.GetPreferredBuffer()),
		LaneChangeTolerance:    ptrFloat64(c.GetLaneChangeTolerance()),
		CostEfficiencyWeight:   ptrFloat64(c.GetCostEfficiencyWeight()),
		CostBufferWeight:       ptrFloat64(c.GetCostBufferWeight()),
		CostPrepPenalty:        ptrFloat64(c.GetCostPrepPenalty()),
		CostChangePenalty:      ptrFloat64(c.GetCostChangePenalty()),
		PredictionHorizon:      ptrInt(c.GetPredictionHorizon()),
		PredictionDt:           ptrFloat64(c.GetPredictionDt()),
		MinGap:                 ptrFloat64(c.GetMinGap()),
		ReactionTime:           ptrFloat64(c.GetReactionTime()),
		ComfortDeceleration:    ptrFloat64(c.GetComfortDeceleration()),
		HorizonPoints:          ptrInt(c.GetHorizonPoints()),
		TickDuration:           ptrFloat64(c.GetTickDuration()),
		LookaheadX:             ptrFloat64(c.GetLookaheadX()),
		AnchorSpacing:          ptrFloat64(c.GetAnchorSpacing()),
		EndOfCourseMargin:      ptrFloat64(c.GetEndOfCourseMargin()),
		StartupRatio:           ptrFloat64(c.GetStartupRatio()),
		EmergencyKeepPoints:    ptrInt(c.GetEmergencyKeepPoints()),
		EmergencyFactor:        ptrFloat64(c.GetEmergencyFactor()),
		EndOfCourseFactor:      ptrFloat64(c.GetEndOfCourseFactor()),
		MinSpeedMPS:            ptrFloat64(c.GetMinSpeedMPS()),
		StartupWeight:          ptrFloat64(c.GetStartupWeight()),
		CruiseWeight:           ptrFloat64(c.GetCruiseWeight()),
		LaneChangeWeight:       ptrFloat64(c.GetLaneChangeWeight()),
		DoubleLaneChangeWeight: ptrFloat64(c.GetDoubleLaneChangeWeight()),
		SlowRampWeight:         ptrFloat64(c.GetSlowRampWeight()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.LanesAvailable != nil && *c.LanesAvailable < 1 {
		return fmt.Errorf("lanes_available must be at least 1, got %d", *c.LanesAvailable)
	}
	if c.HorizonPoints != nil && *c.HorizonPoints < 3 {
		return fmt.Errorf("horizon_points must be at least 3, got %d", *c.HorizonPoints)
	}
	if c.PredictionHorizon != nil && *c.PredictionHorizon < 1 {
		return fmt.Errorf("prediction_horizon must be at least 1, got %d", *c.PredictionHorizon)
	}
	if c.EmergencyKeepPoints != nil && *c.EmergencyKeepPoints < 0 {
		return fmt.Errorf("emergency_keep_points must be non-negative, got %d", *c.EmergencyKeepPoints)
	}

	positive := map[string]*float64{
		"lane_width":           c.LaneWidth,
		"goal_s":               c.GoalS,
		"target_speed_mps":     c.TargetSpeedMPS,
		"max_acceleration":     c.MaxAcceleration,
		"planning_dt":          c.PlanningDt,
		"prediction_dt":        c.PredictionDt,
		"comfort_deceleration": c.ComfortDeceleration,
		"tick_duration":        c.TickDuration,
		"lookahead_x":          c.LookaheadX,
		"anchor_spacing":       c.AnchorSpacing,
		"min_speed_mps":        c.MinSpeedMPS,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	fractions := map[string]*float64{
		"startup_ratio":             c.StartupRatio,
		"emergency_factor":          c.EmergencyFactor,
		"end_of_course_factor":      c.EndOfCourseFactor,
		"startup_weight":            c.StartupWeight,
		"cruise_weight":             c.CruiseWeight,
		"lane_change_weight":        c.LaneChangeWeight,
		"double_lane_change_weight": c.DoubleLaneChangeWeight,
		"slow_ramp_weight":          c.SlowRampWeight,
	}
	for name, v := range fractions {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	nonNegative := map[string]*float64{
		"preferred_buffer":       c.PreferredBuffer,
		"lane_change_tolerance":  c.LaneChangeTolerance,
		"min_gap":                c.MinGap,
		"reaction_time":          c.ReactionTime,
		"end_of_course_margin":   c.EndOfCourseMargin,
		"cost_efficiency_weight": c.CostEfficiencyWeight,
		"cost_buffer_weight":     c.CostBufferWeight,
		"cost_prep_penalty":      c.CostPrepPenalty,
		"cost_change_penalty":    c.CostChangePenalty,
	}
	for name, v := range nonNegative {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.GetMinSpeedMPS() >= c.GetTargetSpeedMPS() {
		return fmt.Errorf("min_speed_mps (%f) must be below target_speed_mps (%f)", c.GetMinSpeedMPS(), c.GetTargetSpeedMPS())
	}
	if c.GetLookaheadX() > c.GetAnchorSpacing()*3 {
		return fmt.Errorf("lookahead_x (%f) must not exceed the fitted anchor window (%f)", c.GetLookaheadX(), c.GetAnchorSpacing()*3)
	}

	return nil
}

// GetLanesAvailable returns the lanes_available value or the default.
func (c *TuningConfig) GetLanesAvailable() int {
	if c.LanesAvailable == nil {
		return 3
	}
	return *c.LanesAvailable
}

// GetLaneWidth returns the lane_width value or the default.
func (c *TuningConfig) GetLaneWidth() float64 {
	if c.LaneWidth == nil {
		return 4.0
	}
	return *c.LaneWidth
}

// GetGoalS returns the course length or the default (one lap of the simulator track).
func (c *TuningConfig) GetGoalS() float64 {
	if c.GoalS == nil {
		return 6945.554
	}
	return *c.GoalS
}

// GetTargetSpeedMPS returns the target_speed_mps value or the default (just under 50 mph).
func (c *TuningConfig) GetTargetSpeedMPS() float64 {
	if c.TargetSpeedMPS == nil {
		return 22.0
	}
	return *c.TargetSpeedMPS
}

// GetMaxAcceleration returns the max_acceleration value or the default.
func (c *TuningConfig) GetMaxAcceleration() float64 {
	if c.MaxAcceleration == nil {
		return 10.0
	}
	return *c.MaxAcceleration
}

// GetPlanningDt returns the planning_dt value or the default.
func (c *TuningConfig) GetPlanningDt() float64 {
	if c.PlanningDt == nil {
		return 0.02
	}
	return *c.PlanningDt
}

// GetPreferredBuffer returns the preferred_buffer value or the default.
func (c *TuningConfig) GetPreferredBuffer() float64 {
	if c.PreferredBuffer == nil {
		return 6.0
	}
	return *c.PreferredBuffer
}

// GetLaneChangeTolerance returns the lane_change_tolerance value or the default.
func (c *TuningConfig) GetLaneChangeTolerance() float64 {
	if c.LaneChangeTolerance == nil {
		return 1.0
	}
	return *c.LaneChangeTolerance
}

// GetCostEfficiencyWeight returns the cost_efficiency_weight value or the default.
func (c *TuningConfig) GetCostEfficiencyWeight() float64 {
	if c.CostEfficiencyWeight == nil {
		return 1.0
	}
	return *c.CostEfficiencyWeight
}

// GetCostBufferWeight returns the cost_buffer_weight value or the default.
func (c *TuningConfig) GetCostBufferWeight() float64 {
	if c.CostBufferWeight == nil {
		return 0.5
	}
	return *c.CostBufferWeight
}

// GetCostPrepPenalty returns the cost_prep_penalty value or the default.
func (c *TuningConfig) GetCostPrepPenalty() float64 {
	if c.CostPrepPenalty == nil {
		return 0.02
	}
	return *c.CostPrepPenalty
}

// GetCostChangePenalty returns the cost_change_penalty value or the default.
func (c *TuningConfig) GetCostChangePenalty() float64 {
	if c.CostChangePenalty == nil {
		return 0.05
	}
	return *c.CostChangePenalty
}

// GetPredictionHorizon returns the prediction_horizon value or the default.
func (c *TuningConfig) GetPredictionHorizon() int {
	if c.PredictionHorizon == nil {
		return 2
	}
	return *c.PredictionHorizon
}

// GetPredictionDt returns the prediction_dt value or the default.
func (c *TuningConfig) GetPredictionDt() float64 {
	if c.PredictionDt == nil {
		return 1.0
	}
	return *c.PredictionDt
}

// GetMinGap returns the min_gap value or the default.
func (c *TuningConfig) GetMinGap() float64 {
	if c.MinGap == nil {
		return 5.0
	}
	return *c.MinGap
}

// GetReactionTime returns the reaction_time value or the default.
func (c *TuningConfig) GetReactionTime() float64 {
	if c.ReactionTime == nil {
		return 1.0
	}
	return *c.ReactionTime
}

// GetComfortDeceleration returns the comfort_deceleration value or the default.
func (c *TuningConfig) GetComfortDeceleration() float64 {
	if c.ComfortDeceleration == nil {
		return 5.0
	}
	return *c.ComfortDeceleration
}

// GetHorizonPoints returns the horizon_points value or the default.
func (c *TuningConfig) GetHorizonPoints() int {
	if c.HorizonPoints == nil {
		return 50
	}
	return *c.HorizonPoints
}

// GetTickDuration returns the tick_duration value or the default.
func (c *TuningConfig) GetTickDuration() float64 {
	if c.TickDuration == nil {
		return 0.02
	}
	return *c.TickDuration
}

// GetLookaheadX returns the lookahead_x value or the default.
func (c *TuningConfig) GetLookaheadX() float64 {
	if c.LookaheadX == nil {
		return 30.0
	}
	return *c.LookaheadX
}

// GetAnchorSpacing returns the anchor_spacing value or the default.
func (c *TuningConfig) GetAnchorSpacing() float64 {
	if c.AnchorSpacing == nil {
		return 30.0
	}
	return *c.AnchorSpacing
}

// GetEndOfCourseMargin returns the end_of_course_margin value or the default.
func (c *TuningConfig) GetEndOfCourseMargin() float64 {
	if c.EndOfCourseMargin == nil {
		return 50.0
	}
	return *c.EndOfCourseMargin
}

// GetStartupRatio returns the startup_ratio value or the default.
func (c *TuningConfig) GetStartupRatio() float64 {
	if c.StartupRatio == nil {
		return 0.7
	}
	return *c.StartupRatio
}

// GetEmergencyKeepPoints returns the emergency_keep_points value or the default.
func (c *TuningConfig) GetEmergencyKeepPoints() int {
	if c.EmergencyKeepPoints == nil {
		return 3
	}
	return *c.EmergencyKeepPoints
}

// GetEmergencyFactor returns the emergency_factor value or the default.
func (c *TuningConfig) GetEmergencyFactor() float64 {
	if c.EmergencyFactor == nil {
		return 0.5
	}
	return *c.EmergencyFactor
}

// GetEndOfCourseFactor returns the end_of_course_factor value or the default.
func (c *TuningConfig) GetEndOfCourseFactor() float64 {
	if c.EndOfCourseFactor == nil {
		return 0.9
	}
	return *c.EndOfCourseFactor
}

// GetMinSpeedMPS returns the min_speed_mps value or the default.
func (c *TuningConfig) GetMinSpeedMPS() float64 {
	if c.MinSpeedMPS == nil {
		return 0.1
	}
	return *c.MinSpeedMPS
}

// GetStartupWeight returns the startup_weight value or the default.
func (c *TuningConfig) GetStartupWeight() float64 {
	if c.StartupWeight == nil {
		return 0.02
	}
	return *c.StartupWeight
}

// GetCruiseWeight returns the cruise_weight value or the default.
func (c *TuningConfig) GetCruiseWeight() float64 {
	if c.CruiseWeight == nil {
		return 0.01
	}
	return *c.CruiseWeight
}

// GetLaneChangeWeight returns the lane_change_weight value or the default.
func (c *TuningConfig) GetLaneChangeWeight() float64 {
	if c.LaneChangeWeight == nil {
		return 0.005
	}
	return *c.LaneChangeWeight
}

// GetDoubleLaneChangeWeight returns the double_lane_change_weight value or the default.
func (c *TuningConfig) GetDoubleLaneChangeWeight() float64 {
	if c.DoubleLaneChangeWeight == nil {
		return 0.001
	}
	return *c.DoubleLaneChangeWeight
}

// GetSlowRampWeight returns the slow_ramp_weight value or the default.
func (c *TuningConfig) GetSlowRampWeight() float64 {
	if c.SlowRampWeight == nil {
		return 0.001
	}
	return *c.SlowRampWeight
}
