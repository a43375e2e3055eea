package scenario

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/highway.planner/internal/highway"
)

// Vehicle is scripted traffic: constant speed along s, fixed lateral offset.
type Vehicle struct {
	ID    int
	S     float64
	D     float64
	Speed float64 // m/s
}

// ParseTraffic reads a comma separated list of lane:s:speed triples, e.g.
// "1:160:8,0:300:15". Vehicles are placed on the lane centre and numbered
// in order.
func ParseTraffic(list string, laneWidth float64) ([]Vehicle, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var out []Vehicle
	for i, item := range strings.Split(list, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("traffic %q: expected lane:s:speed", item)
		}
		lane, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("traffic %q: lane: %w", item, err)
		}
		s, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("traffic %q: s: %w", item, err)
		}
		speed, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("traffic %q: speed: %w", item, err)
		}
		if speed < 0 {
			return nil, fmt.Errorf("traffic %q: negative speed", item)
		}
		out = append(out, Vehicle{
			ID:    i,
			S:     s,
			D:     highway.LaneCenter(lane, laneWidth),
			Speed: speed,
		})
	}
	return out, nil
}
