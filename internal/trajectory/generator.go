package trajectory

import (
	"fmt"
	"math"

	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/monitoring"
	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/safety"
)

// WaypointLookup converts Frenet coordinates to the map frame.
// *highway.Map satisfies it.
type WaypointLookup interface {
	XY(s, d float64) (x, y float64)
}

// BrakeMode reports which braking override, if any, fired this cycle.
type BrakeMode int

const (
	BrakeNone BrakeMode = iota
	BrakeEndOfCourse
	BrakeEmergency
)

func (b BrakeMode) String() string {
	switch b {
	case BrakeNone:
		return "none"
	case BrakeEndOfCourse:
		return "end_of_course"
	case BrakeEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("BrakeMode(%d)", int(b))
	}
}

// LocationInput is what the transport layer reports at cycle start.
type LocationInput struct {
	Ego      perception.EgoState
	Leftover Path    // unconsumed points of the previous output, map frame
	EndPathS float64 // s of the last leftover point
}

// Context is the generator's working state for one cycle. It is rebuilt by
// UpdateLocationData and filled in by the later stages.
type Context struct {
	Ref      Pose // reference pose of the local frame
	CarS     float64
	CarD     float64
	CarSpeed float64 // measured
	CarLane  int
	Leftover Path
	EndPathS float64

	TargetLane int
	RefVel     float64 // goal speed after any braking override
	Speed      float64 // commanded speed at cycle start
	Ramp       RampState
	Brake      BrakeMode

	Anchors []Point // map frame, history first
}

// Result is one cycle's output.
type Result struct {
	Path      Path
	Speeds    []float64 // speed command of each newly sampled point
	Brake     BrakeMode
	RefVel    float64
	Speed     float64 // commanded speed at the end of the path
	EarlyExit bool    // sampling reached the end of the lookahead window
	Anchors   []Point
}

// Generator produces the per-cycle trajectory. The commanded speed carries
// across cycles; everything else is rebuilt each cycle. It is not safe for
// concurrent use.
type Generator struct {
	cfg      Config
	lookup   WaypointLookup
	safety   safety.Query
	profiler VelocityProfiler

	speed    float64
	speedSet bool

	ctx         Context
	predictions perception.PredictionSet
}

// NewGenerator returns a generator placing anchors with lookup.
func NewGenerator(cfg Config, lookup WaypointLookup, q safety.Query) *Generator {
	return &Generator{
		cfg:      cfg,
		lookup:   lookup,
		safety:   q,
		profiler: NewVelocityProfiler(cfg.Ramp),
	}
}

// SetSpeed overrides the commanded speed carried into the next cycle.
func (g *Generator) SetSpeed(v float64) {
	g.speed = v
	g.speedSet = true
}

// Speed returns the commanded speed carried into the next cycle.
func (g *Generator) Speed() float64 { return g.speed }

// Context returns a copy of the current cycle's working state.
func (g *Generator) Context() Context { return g.ctx }

// Generate runs one full cycle in order: location, behavior, prediction,
// emergency braking, fit, discretize.
func (g *Generator) Generate(loc LocationInput, goalV float64, goalLane int, p perception.PredictionSet) (Result, error) {
	g.UpdateLocationData(loc)
	g.UpdateBehaviorData(goalV, goalLane)
	g.UpdatePredictionData(p)
	brake := g.EmergencyBraking()

	spline, err := g.Fit()
	if err != nil {
		return Result{}, err
	}
	path, speeds, early := g.discretize(spline)
	if early {
		monitoring.Debugf("trajectory: early exit after %d points (lookahead %.1fm)", len(path), g.cfg.LookaheadX)
	}
	return Result{
		Path:      path,
		Speeds:    speeds,
		Brake:     brake,
		RefVel:    g.ctx.RefVel,
		Speed:     g.speed,
		EarlyExit: early,
		Anchors:   g.ctx.Anchors,
	}, nil
}

// UpdateLocationData starts a new cycle from the ego pose and the leftover
// path. The first call also seeds the commanded speed from the ego.
func (g *Generator) UpdateLocationData(loc LocationInput) {
	ego := loc.Ego
	if !g.speedSet {
		g.SetSpeed(ego.SpeedMPS)
	}
	leftover := make(Path, len(loc.Leftover))
	copy(leftover, loc.Leftover)

	endS := ego.S
	if len(leftover) > 2 {
		endS = loc.EndPathS
	}
	g.ctx = Context{
		Ref:      Pose{X: ego.X, Y: ego.Y, Yaw: ego.YawRad},
		CarS:     ego.S,
		CarD:     ego.D,
		CarSpeed: ego.SpeedMPS,
		CarLane:  highway.LaneOf(ego.D, g.cfg.LaneWidth),
		Leftover: leftover,
		EndPathS: endS,
		Speed:    g.speed,
	}
}

// UpdateBehaviorData records the planner's decision. goalLane outside the
// road is a programming error.
func (g *Generator) UpdateBehaviorData(goalV float64, goalLane int) {
	if !highway.InRange(goalLane, g.cfg.LanesAvailable) {
		panic(fmt.Sprintf("trajectory: goal lane %d outside [0,%d)", goalLane, g.cfg.LanesAvailable))
	}
	delta := goalLane - g.ctx.CarLane
	if delta < 0 {
		delta = -delta
	}
	g.ctx.TargetLane = goalLane
	g.ctx.RefVel = goalV
	g.ctx.Ramp = RampState{
		Accelerating: goalV > g.ctx.Speed,
		Startup:      g.ctx.Speed < g.cfg.StartupRatio*goalV,
		LaneDelta:    delta,
	}
}

// UpdatePredictionData stores the predictions the braking check scans.
func (g *Generator) UpdatePredictionData(p perception.PredictionSet) {
	g.predictions = p
}

// EmergencyBraking overrides the goal speed when the nearest vehicle ahead
// in the current lane is inside the safe distance. Near the end of the course
// the reduction is gentle and the leftover path is kept; otherwise the
// leftover path is cut so the slower profile takes effect within a few ticks.
// After a cut the commanded speed is reset to the speed of the kept points
// (see keptSpeed) and the goal becomes EmergencyFactor times that, not times
// the command carried from the previous cycle.
func (g *Generator) EmergencyBraking() BrakeMode {
	c := &g.ctx
	ego := perception.VehicleState{ID: perception.EgoID, Lane: c.CarLane, S: c.CarS, D: c.CarD, V: c.Speed}
	lead, ok := g.safety.VehicleAhead(g.predictions, c.CarLane, ego, false)
	if !ok {
		return BrakeNone
	}
	gap := g.safety.Gap(c.CarS, lead.S)
	safe := g.safety.SafeDistance(c.Speed)
	if gap >= safe {
		return BrakeNone
	}

	if c.CarS > g.cfg.GoalS-g.cfg.EndOfCourseMargin {
		c.Brake = BrakeEndOfCourse
		c.RefVel = c.Speed * g.cfg.EndOfCourseFactor
	} else {
		c.Brake = BrakeEmergency
		keep := min(max(g.cfg.EmergencyKeepPoints, 0), len(c.Leftover))
		c.Leftover = c.Leftover[:keep]
		c.EndPathS = c.CarS
		if keep > 2 {
			c.EndPathS = c.CarS + c.Leftover.ArcLength(Point{X: c.Ref.X, Y: c.Ref.Y})
		}
		c.Speed = g.keptSpeed()
		c.RefVel = c.Speed * g.cfg.EmergencyFactor
	}
	c.Ramp.SlowRamp = true
	c.Ramp.Accelerating = c.RefVel > c.Speed
	c.Ramp.Startup = false
	monitoring.Debugf("trajectory: %s braking, vehicle %d gap %.1fm < %.1fm, ref %.2f m/s",
		c.Brake, lead.ID, gap, safe, c.RefVel)
	return c.Brake
}

// keptSpeed is the speed the vehicle will be doing at the end of the kept
// leftover points. The carried command belongs to the discarded tail.
func (g *Generator) keptSpeed() float64 {
	c := &g.ctx
	var a, b Point
	switch n := len(c.Leftover); {
	case n >= 2:
		a, b = c.Leftover[n-2], c.Leftover[n-1]
	case n == 1:
		a, b = Point{X: c.Ref.X, Y: c.Ref.Y}, c.Leftover[0]
	default:
		return math.Max(c.CarSpeed, g.cfg.Ramp.MinSpeed)
	}
	v := math.Hypot(b.X-a.X, b.Y-a.Y) / g.cfg.TickDuration
	return math.Max(v, g.cfg.Ramp.MinSpeed)
}

// Fit places the anchors and fits the local-frame spline. With fewer than two
// leftover points the history is synthesized one metre behind the pose;
// otherwise the last two leftover points define the reference pose.
func (g *Generator) Fit() (*Spline, error) {
	c := &g.ctx
	var prev, cur Point
	if n := len(c.Leftover); n < 2 {
		cur = Point{X: c.Ref.X, Y: c.Ref.Y}
		prev = Point{X: c.Ref.X - math.Cos(c.Ref.Yaw), Y: c.Ref.Y - math.Sin(c.Ref.Yaw)}
	} else {
		prev, cur = c.Leftover[n-2], c.Leftover[n-1]
		c.Ref = Pose{X: cur.X, Y: cur.Y, Yaw: math.Atan2(cur.Y-prev.Y, cur.X-prev.X)}
	}

	d := highway.LaneCenter(c.TargetLane, g.cfg.LaneWidth)
	anchors := []Point{prev, cur}
	for i := 1; i <= 3; i++ {
		x, y := g.lookup.XY(c.EndPathS+float64(i)*g.cfg.AnchorSpacing, d)
		anchors = append(anchors, Point{X: x, Y: y})
	}
	c.Anchors = anchors

	tr := Transform{Ref: c.Ref}
	local := make([]Point, len(anchors))
	for i, a := range anchors {
		local[i] = tr.MapToLocal(a)
	}
	return FitSpline(local)
}

// discretize seeds the output with the leftover path and samples the spline
// until the horizon is full or the lookahead window is exhausted.
func (g *Generator) discretize(s *Spline) (Path, []float64, bool) {
	c := &g.ctx
	horizon := g.cfg.HorizonPoints
	seed := c.Leftover
	if len(seed) > horizon {
		seed = seed[:horizon]
	}
	out := make(Path, 0, horizon)
	out = append(out, seed...)
	var speeds []float64

	tr := Transform{Ref: c.Ref}
	targetX := g.cfg.LookaheadX
	targetDist := math.Hypot(targetX, s.At(targetX))

	speed := c.Speed
	x := 0.0
	early := false
	for len(out) < horizon {
		next := g.profiler.Next(speed, c.RefVel, c.Ramp)
		n := targetDist / (g.cfg.TickDuration * next)
		x += targetX / n
		if x > targetX {
			early = true
			break
		}
		speed = next
		speeds = append(speeds, speed)
		out = append(out, tr.LocalToMap(Point{X: x, Y: s.At(x)}))
	}
	g.speed = speed
	return out, speeds, early
}
