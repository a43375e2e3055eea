package trajectory

import "math"

// Point is a map- or local-frame position in metres.
type Point struct {
	X float64
	Y float64
}

// Path is an ordered list of points, earliest first.
type Path []Point

// Xs returns the x coordinates.
func (p Path) Xs() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.X
	}
	return out
}

// Ys returns the y coordinates.
func (p Path) Ys() []float64 {
	out := make([]float64, len(p))
	for i, pt := range p {
		out[i] = pt.Y
	}
	return out
}

// PathFromXY zips parallel coordinate slices. Extra values in the longer
// slice are ignored.
func PathFromXY(xs, ys []float64) Path {
	n := min(len(xs), len(ys))
	out := make(Path, n)
	for i := 0; i < n; i++ {
		out[i] = Point{X: xs[i], Y: ys[i]}
	}
	return out
}

// ArcLength returns the polyline length starting from `from`.
func (p Path) ArcLength(from Point) float64 {
	total := 0.0
	prev := from
	for _, pt := range p {
		total += math.Hypot(pt.X-prev.X, pt.Y-prev.Y)
		prev = pt
	}
	return total
}

// Pose is a reference position and heading (radians, counter-clockwise from
// the map x axis).
type Pose struct {
	X   float64
	Y   float64
	Yaw float64
}

// Transform maps between the map frame and the local frame anchored at Ref,
// with local +x along the reference heading. A Transform must not be reused
// across cycles once the reference changes.
type Transform struct {
	Ref Pose
}

// MapToLocal translates by -Ref then rotates by -Ref.Yaw.
func (t Transform) MapToLocal(p Point) Point {
	dx := p.X - t.Ref.X
	dy := p.Y - t.Ref.Y
	sin, cos := math.Sincos(-t.Ref.Yaw)
	return Point{
		X: dx*cos - dy*sin,
		Y: dx*sin + dy*cos,
	}
}

// LocalToMap rotates by +Ref.Yaw then translates by +Ref.
func (t Transform) LocalToMap(p Point) Point {
	sin, cos := math.Sincos(t.Ref.Yaw)
	return Point{
		X: p.X*cos - p.Y*sin + t.Ref.X,
		Y: p.X*sin + p.Y*cos + t.Ref.Y,
	}
}
