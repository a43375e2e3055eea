package trajectory

import "math"

// RampConfig parameterises the per-tick speed ramp. Weights are fractions of
// MaxAcceleration applied per tick.
type RampConfig struct {
	MaxAcceleration        float64
	TargetSpeed            float64 // global ceiling, m/s
	MinSpeed               float64 // floor, m/s
	StartupWeight          float64
	CruiseWeight           float64
	LaneChangeWeight       float64
	DoubleLaneChangeWeight float64
	SlowRampWeight         float64
}

// RampState is the part of the trajectory context the profiler reads.
type RampState struct {
	Accelerating bool
	Startup      bool
	SlowRamp     bool // set by the braking override
	LaneDelta    int  // |target lane - current lane|
}

// VelocityProfiler converts a goal speed into per-tick speed commands.
type VelocityProfiler struct {
	cfg RampConfig
}

// NewVelocityProfiler returns a profiler for cfg.
func NewVelocityProfiler(cfg RampConfig) VelocityProfiler {
	return VelocityProfiler{cfg: cfg}
}

// Weight returns the ramp weight for st. A lane change overrides the
// startup/cruise choice; the braking override takes precedence over both.
func (p VelocityProfiler) Weight(st RampState) float64 {
	w := p.cfg.CruiseWeight
	if st.Startup {
		w = p.cfg.StartupWeight
	}
	switch {
	case st.LaneDelta == 1:
		w = p.cfg.LaneChangeWeight
	case st.LaneDelta >= 2:
		w = p.cfg.DoubleLaneChangeWeight
	}
	if st.SlowRamp {
		w = p.cfg.SlowRampWeight
	}
	return w
}

// Step returns the largest speed change the profiler applies in one tick.
func (p VelocityProfiler) Step(st RampState) float64 {
	return p.cfg.MaxAcceleration * p.Weight(st)
}

// Next returns the speed command for the next tick. The command moves toward
// goal by at most one step and holds once it gets there.
func (p VelocityProfiler) Next(cur, goal float64, st RampState) float64 {
	step := p.Step(st)
	next := cur
	switch {
	case st.Accelerating && cur < goal:
		next = math.Min(cur+step, goal)
	case !st.Accelerating && cur > goal:
		next = math.Max(cur-step, goal)
	}
	if next > p.cfg.TargetSpeed {
		next = p.cfg.TargetSpeed
	}
	if next < p.cfg.MinSpeed {
		next = p.cfg.MinSpeed
	}
	return next
}
