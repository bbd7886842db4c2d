package views

import "sensor-bridge/models"

// FrameColumns is the CSV header for recorded frames. Axis columns follow
// frame order, so a row lines up with the values the classifier saw.
// Audio recordings carry a single sample column.
func FrameColumns(groups []models.SensorGroup, audio bool) []string {
	if audio {
		return []string{"timestamp_ms", "sample"}
	}
	cols := make([]string, 0, 1+3*len(groups))
	cols = append(cols, "timestamp_ms")
	for _, g := range groups {
		name := g.String()
		cols = append(cols, name+"_x", name+"_y", name+"_z")
	}
	return cols
}
