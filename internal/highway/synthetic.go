package highway

import "math"

// StraightMap returns an open map running along +x from the origin, one
// waypoint every spacing metres. d grows towards -y.
func StraightMap(length, spacing float64) *Map {
	n := int(math.Ceil(length/spacing)) + 1
	wps := make([]Waypoint, 0, n)
	for i := 0; i < n; i++ {
		s := float64(i) * spacing
		wps = append(wps, Waypoint{X: s, Y: 0, S: s, DX: 0, DY: -1})
	}
	m, err := NewOpenMap(wps)
	if err != nil {
		panic(err)
	}
	return m
}

// CircleMap returns a closed counter-clockwise loop of the given radius
// sampled with n waypoints. d grows outward, away from the centre.
func CircleMap(radius float64, n int) *Map {
	wps := make([]Waypoint, 0, n)
	step := 2 * math.Pi / float64(n)
	chord := 2 * radius * math.Sin(step/2)
	for i := 0; i < n; i++ {
		phi := float64(i) * step
		wps = append(wps, Waypoint{
			X:  radius * math.Cos(phi),
			Y:  radius * math.Sin(phi),
			S:  float64(i) * chord,
			DX: math.Cos(phi),
			DY: math.Sin(phi),
		})
	}
	m, err := NewMap(wps, float64(n)*chord)
	if err != nil {
		panic(err)
	}
	return m
}
