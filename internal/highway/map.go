package highway

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrEmptyMap is returned when a map has fewer than two waypoints.
var ErrEmptyMap = errors.New("highway: map needs at least two waypoints")

// Waypoint is one sample of the road centre line (the left road edge, d=0).
type Waypoint struct {
	X  float64
	Y  float64
	S  float64
	DX float64 // unit normal, pointing right of travel
	DY float64
}

// Map converts between map (x, y) and Frenet (s, d) coordinates.
type Map struct {
	waypoints []Waypoint
	maxS      float64
	closed    bool
}

// NewMap builds a closed-loop map. maxS is the length of one lap; s values
// passed to XY wrap modulo maxS.
func NewMap(waypoints []Waypoint, maxS float64) (*Map, error) {
	if len(waypoints) < 2 {
		return nil, ErrEmptyMap
	}
	if maxS <= waypoints[len(waypoints)-1].S {
		return nil, fmt.Errorf("highway: lap length %.3f must exceed last waypoint s %.3f", maxS, waypoints[len(waypoints)-1].S)
	}
	for i := 1; i < len(waypoints); i++ {
		if waypoints[i].S <= waypoints[i-1].S {
			return nil, fmt.Errorf("highway: waypoint %d s=%.3f not after s=%.3f", i, waypoints[i].S, waypoints[i-1].S)
		}
	}
	return &Map{waypoints: waypoints, maxS: maxS, closed: true}, nil
}

// NewOpenMap builds a map whose last segment extends indefinitely instead of
// wrapping back to the first waypoint.
func NewOpenMap(waypoints []Waypoint) (*Map, error) {
	if len(waypoints) < 2 {
		return nil, ErrEmptyMap
	}
	for i := 1; i < len(waypoints); i++ {
		if waypoints[i].S <= waypoints[i-1].S {
			return nil, fmt.Errorf("highway: waypoint %d s=%.3f not after s=%.3f", i, waypoints[i].S, waypoints[i-1].S)
		}
	}
	return &Map{waypoints: waypoints, maxS: math.Inf(1)}, nil
}

// LoadMap reads a whitespace separated waypoint file with columns
// "x y s dx dy", one waypoint per line, as shipped with the simulator.
func LoadMap(path string, maxS float64) (*Map, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open map file: %w", err)
	}
	defer f.Close()

	wps, err := ParseWaypoints(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse map file %s: %w", path, err)
	}
	return NewMap(wps, maxS)
}

// ParseWaypoints parses "x y s dx dy" records. Blank lines and lines starting
// with '#' are skipped. Commas are accepted as separators too.
func ParseWaypoints(r io.Reader) ([]Waypoint, error) {
	var wps []Waypoint
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ' ' || r == '\t' || r == ','
		})
		if len(fields) != 5 {
			return nil, fmt.Errorf("line %d: expected 5 fields, got %d", line, len(fields))
		}
		var vals [5]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d field %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		wps = append(wps, Waypoint{X: vals[0], Y: vals[1], S: vals[2], DX: vals[3], DY: vals[4]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return wps, nil
}

// Len returns the number of waypoints.
func (m *Map) Len() int { return len(m.waypoints) }

// MaxS returns the lap length, or +Inf for an open map.
func (m *Map) MaxS() float64 { return m.maxS }

// Waypoint returns waypoint i.
func (m *Map) Waypoint(i int) Waypoint { return m.waypoints[i] }

// ClosestWaypoint returns the index of the waypoint nearest to (x, y).
func (m *Map) ClosestWaypoint(x, y float64) int {
	closest := 0
	closestLen := math.Inf(1)
	for i, wp := range m.waypoints {
		dist := math.Hypot(x-wp.X, y-wp.Y)
		if dist < closestLen {
			closestLen = dist
			closest = i
		}
	}
	return closest
}

// NextWaypoint returns the index of the first waypoint ahead of a vehicle at
// (x, y) with heading theta (radians).
func (m *Map) NextWaypoint(x, y, theta float64) int {
	closest := m.ClosestWaypoint(x, y)
	wp := m.waypoints[closest]

	heading := math.Atan2(wp.Y-y, wp.X-x)
	angle := math.Abs(theta - heading)
	angle = math.Min(2*math.Pi-angle, angle)

	if angle > math.Pi/2 {
		closest++
		if closest == len(m.waypoints) {
			if m.closed {
				closest = 0
			} else {
				closest = len(m.waypoints) - 1
			}
		}
	}
	return closest
}

// Frenet converts a map position and heading into (s, d).
func (m *Map) Frenet(x, y, theta float64) (s, d float64) {
	next := m.NextWaypoint(x, y, theta)
	prev := next - 1
	if prev < 0 {
		if m.closed {
			prev = len(m.waypoints) - 1
		} else {
			prev, next = 0, 1
		}
	}

	p, n := m.waypoints[prev], m.waypoints[next]
	nx, ny := n.X-p.X, n.Y-p.Y
	xx, xy := x-p.X, y-p.Y

	projNorm := (xx*nx + xy*ny) / (nx*nx + ny*ny)
	projX, projY := projNorm*nx, projNorm*ny

	d = math.Hypot(xx-projX, xy-projY)
	// Positive d lies to the right of the segment direction.
	if nx*xy-ny*xx > 0 {
		d = -d
	}

	s = p.S + math.Copysign(math.Hypot(projX, projY), projNorm)
	if m.closed && s >= m.maxS {
		s -= m.maxS
	}
	return s, d
}

// XY converts (s, d) into a map position. It satisfies the trajectory
// package's waypoint lookup contract.
func (m *Map) XY(s, d float64) (x, y float64) {
	if m.closed {
		s = math.Mod(s, m.maxS)
		if s < 0 {
			s += m.maxS
		}
	}

	prev := -1
	for prev < len(m.waypoints)-1 && s > m.waypoints[prev+1].S {
		prev++
	}
	if prev < 0 {
		// Before the first waypoint: only reachable on open maps or s == 0.
		prev = 0
	}

	var from, to Waypoint
	switch {
	case prev < len(m.waypoints)-1:
		from, to = m.waypoints[prev], m.waypoints[prev+1]
	case m.closed:
		from, to = m.waypoints[prev], m.waypoints[0]
	default:
		from = m.waypoints[prev]
		before := m.waypoints[prev-1]
		to = Waypoint{X: 2*from.X - before.X, Y: 2*from.Y - before.Y}
	}

	heading := math.Atan2(to.Y-from.Y, to.X-from.X)
	segS := s - m.waypoints[prev].S

	segX := from.X + segS*math.Cos(heading)
	segY := from.Y + segS*math.Sin(heading)

	perp := heading - math.Pi/2
	return segX + d*math.Cos(perp), segY + d*math.Sin(perp)
}
