package transport

import (
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Indicator is the visible status output driven by connection state.
type Indicator interface {
	Set(state models.ConnectionState)
}

// Pin levels written by LEDIndicator.
const (
	Low  = false
	High = true
)

// LEDIndicator drives the red/green pin pair of the board LED. The LEDs are
// wired active-low, so "connected" drives red high and green low.
type LEDIndicator struct {
	red, green bool
	state      models.ConnectionState
	set        bool
	changes    uint64
}

// NewLEDIndicator returns an indicator with no state applied yet.
func NewLEDIndicator() *LEDIndicator { return &LEDIndicator{} }

func (l *LEDIndicator) Set(state models.ConnectionState) {
	if state == models.Connected {
		l.red, l.green = High, Low
	} else {
		l.red, l.green = Low, High
	}
	if l.set && l.state == state {
		return
	}
	l.state, l.set = state, true
	atomic.AddUint64(&l.changes, 1)
	utils.L().Debug("led: %s (red=%s green=%s)", state, level(l.red), level(l.green))
}

// Pins returns the current red and green levels.
func (l *LEDIndicator) Pins() (red, green bool) { return l.red, l.green }

// State returns the last state applied.
func (l *LEDIndicator) State() models.ConnectionState { return l.state }

// Changes counts steady-state transitions.
func (l *LEDIndicator) Changes() uint64 { return atomic.LoadUint64(&l.changes) }

func level(b bool) string {
	if b {
		return "HIGH"
	}
	return "LOW"
}
