package highway

import "math"

// LaneOf returns the lane index containing lateral offset d. The result may be
// out of range for vehicles off the carriageway; callers decide what to do.
func LaneOf(d, laneWidth float64) int {
	return int(math.Floor(d / laneWidth))
}

// LaneCenter returns the lateral offset of the middle of lane.
func LaneCenter(lane int, laneWidth float64) float64 {
	return laneWidth/2 + laneWidth*float64(lane)
}

// InRange reports whether lane is a valid index for lanesAvailable lanes.
func InRange(lane, lanesAvailable int) bool {
	return lane >= 0 && lane < lanesAvailable
}

// Gap returns the distance along the road from s to other, positive when
// other is ahead. On a closed track of length trackLength the result wraps to
// (-trackLength/2, trackLength/2]; zero or +Inf means an open road.
func Gap(s, other, trackLength float64) float64 {
	g := other - s
	if trackLength <= 0 || math.IsInf(trackLength, 1) {
		return g
	}
	g = math.Mod(g, trackLength)
	if g > trackLength/2 {
		g -= trackLength
	} else if g <= -trackLength/2 {
		g += trackLength
	}
	return g
}
