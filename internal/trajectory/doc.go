// Package trajectory turns a (target lane, target speed) decision into the
// list of map-frame waypoints the controller tracks, one per control tick.
//
// Each cycle the generator reuses the controller's unconsumed points, fits a
// cubic spline through two history anchors and three anchors ahead in the
// target lane, and samples it in the vehicle-local frame at the spacing the
// velocity profile allows. An emergency braking check can shorten the reused
// path so a slower profile takes effect within a few ticks.
package trajectory
