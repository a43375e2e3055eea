// Package simbridge speaks the term-3 highway simulator protocol: socket.io
// style "42" event frames over a websocket, telemetry in and a path out.
package simbridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/banshee-data/highway.planner/internal/perception"
	"github.com/banshee-data/highway.planner/internal/planner"
	"github.com/banshee-data/highway.planner/internal/trajectory"
	"github.com/banshee-data/highway.planner/internal/units"
)

var (
	// ErrNotEvent marks frames that are not socket.io events; they get no reply.
	ErrNotEvent = errors.New("simbridge: not an event frame")
	// ErrNotTelemetry marks event frames without telemetry; they are answered
	// with ManualMessage.
	ErrNotTelemetry = errors.New("simbridge: no telemetry in event")
)

const eventPrefix = "42"

// ManualMessage hands control back to the simulator's manual mode.
var ManualMessage = []byte(`42["manual",{}]`)

// Telemetry is the simulator's per-tick report. Yaw is in degrees and speed
// in mph, as sent.
type Telemetry struct {
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	YawDeg        float64     `json:"yaw"`
	SpeedMPH      float64     `json:"speed"`
	S             float64     `json:"s"`
	D             float64     `json:"d"`
	PreviousPathX []float64   `json:"previous_path_x"`
	PreviousPathY []float64   `json:"previous_path_y"`
	EndPathS      float64     `json:"end_path_s"`
	EndPathD      float64     `json:"end_path_d"`
	SensorFusion  [][]float64 `json:"sensor_fusion"`
}

// ParseMessage decodes one websocket frame.
func ParseMessage(data []byte) (*Telemetry, error) {
	if len(data) <= len(eventPrefix) || !bytes.HasPrefix(data, []byte(eventPrefix)) {
		return nil, ErrNotEvent
	}
	var event []json.RawMessage
	if err := json.Unmarshal(data[len(eventPrefix):], &event); err != nil {
		return nil, fmt.Errorf("simbridge: decode event: %w", err)
	}
	if len(event) < 2 {
		return nil, ErrNotTelemetry
	}
	var name string
	if err := json.Unmarshal(event[0], &name); err != nil {
		return nil, fmt.Errorf("simbridge: decode event name: %w", err)
	}
	if name != "telemetry" || bytes.Equal(bytes.TrimSpace(event[1]), []byte("null")) {
		return nil, ErrNotTelemetry
	}
	var t Telemetry
	if err := json.Unmarshal(event[1], &t); err != nil {
		return nil, fmt.Errorf("simbridge: decode telemetry: %w", err)
	}
	return &t, nil
}

// Input converts telemetry to planner units.
func (t *Telemetry) Input() (planner.Input, error) {
	obs, err := perception.ParseSensorFusion(t.SensorFusion)
	if err != nil {
		return planner.Input{}, fmt.Errorf("simbridge: %w", err)
	}
	return planner.Input{
		Ego: perception.EgoState{
			X:        t.X,
			Y:        t.Y,
			S:        t.S,
			D:        t.D,
			YawRad:   units.DegToRad(t.YawDeg),
			SpeedMPS: units.MPHToMPS(t.SpeedMPH),
		},
		Leftover:     trajectory.PathFromXY(t.PreviousPathX, t.PreviousPathY),
		EndPathS:     t.EndPathS,
		Observations: obs,
	}, nil
}

type control struct {
	NextX []float64 `json:"next_x"`
	NextY []float64 `json:"next_y"`
}

// EncodeControl renders the path reply frame.
func EncodeControl(path trajectory.Path) ([]byte, error) {
	msg := control{NextX: path.Xs(), NextY: path.Ys()}
	body, err := json.Marshal([]any{"control", msg})
	if err != nil {
		return nil, fmt.Errorf("simbridge: encode control: %w", err)
	}
	return append([]byte(eventPrefix), body...), nil
}
