// Package behavior implements the maneuver state machine: it enumerates the
// maneuvers reachable from the committed one, scores each against the
// predicted lane occupancy, and commits to the cheapest.
//
// The machine never terminates. A lane change, once started, runs until the
// ego is centred in the target lane.
package behavior
