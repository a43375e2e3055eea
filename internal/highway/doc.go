// Package highway holds the road model the planner drives on: a ring of map
// waypoints annotated with Frenet s and the unit normal pointing to the right
// of travel, plus the lane geometry shared by perception and trajectory code.
//
// Conventions: s grows along the direction of travel, d grows to the right,
// lane 0 is the leftmost lane and spans d in [0, laneWidth).
package highway
