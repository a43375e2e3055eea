package scenario

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/highway.planner/internal/highway"
	"github.com/banshee-data/highway.planner/internal/planner"
	"github.com/banshee-data/highway.planner/internal/trajectory"
)

// collisionLength is the longitudinal overlap, in metres, counted as contact
// between two vehicles in the same lane.
const collisionLength = 4.0

// Summary aggregates a run.
type Summary struct {
	Ticks             int
	Distance          float64 // metres driven
	MeanSpeed         float64
	SpeedStdDev       float64
	MaxSpeed          float64
	MaxAccel          float64 // m/s², largest tick-to-tick increase
	MaxDecel          float64 // m/s², largest tick-to-tick decrease (positive)
	MinGap            float64 // metres to the nearest vehicle ahead in lane; +Inf if none seen
	LaneChanges       int
	EmergencyCycles   int
	EndOfCourseCycles int
	EarlyExits        int
	Collisions        int
	Overruns          int
}

func (s Summary) String() string {
	return fmt.Sprintf("ticks=%d distance=%.1fm speed mean=%.2f sd=%.2f max=%.2f accel max=%.2f decel max=%.2f "+
		"min gap=%.1fm lane changes=%d emergency=%d end-of-course=%d early exits=%d collisions=%d overruns=%d",
		s.Ticks, s.Distance, s.MeanSpeed, s.SpeedStdDev, s.MaxSpeed, s.MaxAccel, s.MaxDecel,
		s.MinGap, s.LaneChanges, s.EmergencyCycles, s.EndOfCourseCycles, s.EarlyExits, s.Collisions, s.Overruns)
}

type collector struct {
	tickDur   float64
	laneWidth float64
	maxS      float64

	speeds []float64
	dists  []float64
	gaps   []float64

	lane        int
	laneSet     bool
	laneChanges int
	emergency   int
	endOfCourse int
	earlyExits  int
	collisions  int
	inContact   map[int]bool
}

func newCollector(tick, laneWidth, maxS float64) *collector {
	return &collector{tickDur: tick, laneWidth: laneWidth, maxS: maxS, inContact: map[int]bool{}}
}

func (c *collector) cycle(out planner.Output) {
	if c.laneSet && out.Lane != c.lane {
		c.laneChanges++
	}
	c.lane, c.laneSet = out.Lane, true
	switch out.Brake {
	case trajectory.BrakeEmergency:
		c.emergency++
	case trajectory.BrakeEndOfCourse:
		c.endOfCourse++
	}
	if out.EarlyExit {
		c.earlyExits++
	}
}

func (c *collector) tick(speed, dist, s, d float64, traffic []Vehicle) {
	c.speeds = append(c.speeds, speed)
	c.dists = append(c.dists, dist)

	lane := highway.LaneOf(d, c.laneWidth)
	nearest := math.Inf(1)
	for _, v := range traffic {
		if highway.LaneOf(v.D, c.laneWidth) != lane {
			c.inContact[v.ID] = false
			continue
		}
		g := highway.Gap(s, v.S, c.maxS)
		contact := math.Abs(g) < collisionLength
		if contact && !c.inContact[v.ID] {
			c.collisions++
		}
		c.inContact[v.ID] = contact
		if g > 0 && g < nearest {
			nearest = g
		}
	}
	if !math.IsInf(nearest, 1) {
		c.gaps = append(c.gaps, nearest)
	}
}

func (c *collector) summary(overruns int) Summary {
	s := Summary{
		Ticks:             len(c.speeds),
		MinGap:            math.Inf(1),
		LaneChanges:       c.laneChanges,
		EmergencyCycles:   c.emergency,
		EndOfCourseCycles: c.endOfCourse,
		EarlyExits:        c.earlyExits,
		Collisions:        c.collisions,
		Overruns:          overruns,
	}
	if len(c.speeds) == 0 {
		return s
	}
	s.Distance = floats.Sum(c.dists)
	s.MeanSpeed = stat.Mean(c.speeds, nil)
	s.MaxSpeed = floats.Max(c.speeds)
	if len(c.gaps) > 0 {
		s.MinGap = floats.Min(c.gaps)
	}
	if len(c.speeds) > 1 {
		s.SpeedStdDev = stat.StdDev(c.speeds, nil)
		accel := make([]float64, len(c.speeds)-1)
		floats.SubTo(accel, c.speeds[1:], c.speeds[:len(c.speeds)-1])
		floats.Scale(1/c.tickDur, accel)
		s.MaxAccel = math.Max(0, floats.Max(accel))
		s.MaxDecel = math.Max(0, -floats.Min(accel))
	}
	return s
}
