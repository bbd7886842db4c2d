package models

import "fmt"

// SensorGroup identifies one three-axis motion sensor.
type SensorGroup int

const (
	GroupAccel SensorGroup = iota
	GroupGyro
	GroupMag
)

// AxesPerGroup is the number of raw values one group contributes per tick.
const AxesPerGroup = 3

// MaxFrameValues is the capacity of a motion frame (all three groups).
const MaxFrameValues = 3 * AxesPerGroup

var groupNames = [...]string{"accel", "gyro", "mag"}

func (g SensorGroup) String() string {
	if int(g) >= 0 && int(g) < len(groupNames) {
		return groupNames[g]
	}
	return "unknown"
}

// AllGroups lists the groups in frame order: accel, gyro, mag.
var AllGroups = [...]SensorGroup{GroupAccel, GroupGyro, GroupMag}

// GroupSet records which motion groups are enabled for this run.
type GroupSet struct {
	Accel bool
	Gyro  bool
	Mag   bool
}

// Enabled returns the enabled groups in frame order.
func (s GroupSet) Enabled() []SensorGroup {
	out := make([]SensorGroup, 0, len(AllGroups))
	if s.Accel {
		out = append(out, GroupAccel)
	}
	if s.Gyro {
		out = append(out, GroupGyro)
	}
	if s.Mag {
		out = append(out, GroupMag)
	}
	return out
}

// Any reports whether at least one motion group is enabled.
func (s GroupSet) Any() bool { return s.Accel || s.Gyro || s.Mag }

// FrameLength is 3 × the number of enabled groups.
func (s GroupSet) FrameLength() int {
	return AxesPerGroup * len(s.Enabled())
}

// ─── output data rate ──────────────────────────────────────────────────

// ODR is the sensor output data rate setting.
type ODR int

const (
	ODROff ODR = iota
	ODR10Hz
	ODR50Hz
	ODR119Hz
	ODR238Hz
	ODR476Hz
)

var odrHz = [...]int{0, 10, 50, 119, 238, 476}
var odrNames = [...]string{"off", "10hz", "50hz", "119hz", "238hz", "476hz"}

// Hz returns the rate in hertz; ODROff is 0.
func (o ODR) Hz() int {
	if int(o) >= 0 && int(o) < len(odrHz) {
		return odrHz[o]
	}
	return 0
}

func (o ODR) String() string {
	if int(o) >= 0 && int(o) < len(odrNames) {
		return odrNames[o]
	}
	return "unknown"
}

// IntervalMs is the tick period 1000/Hz in whole milliseconds.
// A disabled rate has no interval and reports 0.
func (o ODR) IntervalMs() uint64 {
	hz := o.Hz()
	if hz == 0 {
		return 0
	}
	return uint64(1000 / hz)
}

// ParseODR accepts "off", "10hz", ... "476hz".
func ParseODR(s string) (ODR, error) {
	for i, n := range odrNames {
		if n == s {
			return ODR(i), nil
		}
	}
	return ODROff, fmt.Errorf("unknown output data rate %q", s)
}

// ─── sample buffer ─────────────────────────────────────────────────────

// SampleBuffer holds one frame of raw sensor values. Its storage is fixed at
// MaxFrameValues and overwritten in place every tick; the cursor marks how
// many values the current frame holds.
type SampleBuffer struct {
	data   [MaxFrameValues]int16
	cursor int
}

// Reset moves the write cursor back to the start of the buffer.
func (b *SampleBuffer) Reset() { b.cursor = 0 }

// Zero clears the storage and the cursor.
func (b *SampleBuffer) Zero() {
	b.data = [MaxFrameValues]int16{}
	b.cursor = 0
}

// PutAxes writes one x,y,z triple at the cursor and advances it.
// It returns false when the buffer has no room left.
func (b *SampleBuffer) PutAxes(x, y, z int16) bool {
	if b.cursor+AxesPerGroup > len(b.data) {
		return false
	}
	b.data[b.cursor] = x
	b.data[b.cursor+1] = y
	b.data[b.cursor+2] = z
	b.cursor += AxesPerGroup
	return true
}

// Put writes a single value, used for one-sample audio frames.
func (b *SampleBuffer) Put(v int16) bool {
	if b.cursor >= len(b.data) {
		return false
	}
	b.data[b.cursor] = v
	b.cursor++
	return true
}

// Len is the number of values written since the last Reset.
func (b *SampleBuffer) Len() int { return b.cursor }

// Values returns the current frame. The slice aliases the buffer and is
// only valid until the next tick.
func (b *SampleBuffer) Values() []int16 { return b.data[:b.cursor] }
