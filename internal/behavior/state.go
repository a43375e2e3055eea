package behavior

import "fmt"

// State is a discrete maneuver.
type State int

const (
	KeepLane State = iota
	PrepLaneChangeLeft
	LaneChangeLeft
	PrepLaneChangeRight
	LaneChangeRight
)

// String returns the short maneuver code used in logs and the run recorder.
func (s State) String() string {
	switch s {
	case KeepLane:
		return "KL"
	case PrepLaneChangeLeft:
		return "PLCL"
	case LaneChangeLeft:
		return "LCL"
	case PrepLaneChangeRight:
		return "PLCR"
	case LaneChangeRight:
		return "LCR"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState is the inverse of String.
func ParseState(code string) (State, error) {
	for s := KeepLane; s <= LaneChangeRight; s++ {
		if s.String() == code {
			return s, nil
		}
	}
	return KeepLane, fmt.Errorf("unknown maneuver %q", code)
}

// LaneDirection is -1 for left maneuvers, +1 for right and 0 for KeepLane.
func (s State) LaneDirection() int {
	switch s {
	case PrepLaneChangeLeft, LaneChangeLeft:
		return -1
	case PrepLaneChangeRight, LaneChangeRight:
		return 1
	default:
		return 0
	}
}

// IsPrep reports whether s prepares a lane change.
func (s State) IsPrep() bool {
	return s == PrepLaneChangeLeft || s == PrepLaneChangeRight
}

// IsLaneChange reports whether s executes a lane change.
func (s State) IsLaneChange() bool {
	return s == LaneChangeLeft || s == LaneChangeRight
}

// Transitions is the raw transition table, before lane-range pruning. The
// first entry is always the state itself or KeepLane so that KeepLane is
// evaluated first where it is reachable.
func Transitions(s State) []State {
	switch s {
	case KeepLane:
		return []State{KeepLane, PrepLaneChangeLeft, PrepLaneChangeRight}
	case PrepLaneChangeLeft:
		return []State{KeepLane, PrepLaneChangeLeft, LaneChangeLeft}
	case PrepLaneChangeRight:
		return []State{KeepLane, PrepLaneChangeRight, LaneChangeRight}
	case LaneChangeLeft:
		return []State{KeepLane, LaneChangeLeft}
	case LaneChangeRight:
		return []State{KeepLane, LaneChangeRight}
	default:
		panic(fmt.Sprintf("behavior: no transitions for %v", s))
	}
}
