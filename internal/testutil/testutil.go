// Package testutil provides shared test fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteTempFile writes content to name inside a per-test temp dir and returns
// the full path.
func WriteTempFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// StraightMapCSV renders a straight road along +x in the simulator's
// highway_map.csv layout (x y s dx dy, space separated).
func StraightMapCSV(n int, spacing float64) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		s := float64(i) * spacing
		fmt.Fprintf(&b, "%g %g %g %g %g\n", s, 0.0, s, 0.0, -1.0)
	}
	return b.String()
}

// TelemetryFrame renders a simulator telemetry message for an ego car
// heading +x along a straight road. speedMPH is on the wire in mph.
func TelemetryFrame(s, d, speedMPH float64) string {
	return fmt.Sprintf(`42["telemetry",{"x":%g,"y":%g,"yaw":0,"speed":%g,"s":%g,"d":%g,`+
		`"previous_path_x":[],"previous_path_y":[],"end_path_s":0,"end_path_d":0,"sensor_fusion":[]}]`,
		s, -d, speedMPH, s, d)
}
