package controller

import (
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
)

// DiagnosticIntervalMs is the period of the "connect to" hint printed while
// no central is attached.
const DiagnosticIntervalMs = 5000

// ConnectionTracker follows the peripheral's connect/disconnect events.
// Only its event handlers change the state; everything else reads it.
type ConnectionTracker struct {
	periph    transport.Peripheral
	indicator transport.Indicator
	clock     utils.Clock

	state          atomic.Int32
	diagInterval   uint64
	lastDiagnostic uint64

	connects    uint64
	disconnects uint64
	diagnostics uint64
}

// NewConnectionTracker registers the tracker's handlers on p.
func NewConnectionTracker(p transport.Peripheral, indicator transport.Indicator, clock utils.Clock, diagIntervalMs uint64) *ConnectionTracker {
	if diagIntervalMs == 0 {
		diagIntervalMs = DiagnosticIntervalMs
	}
	t := &ConnectionTracker{
		periph:       p,
		indicator:    indicator,
		clock:        clock,
		diagInterval: diagIntervalMs,
	}
	p.SetEventHandler(transport.EventConnected, t.onConnected)
	p.SetEventHandler(transport.EventDisconnected, t.onDisconnected)
	return t
}

// Start enters the initial Disconnected state. Call after advertising.
func (t *ConnectionTracker) Start() {
	t.state.Store(int32(models.Disconnected))
	t.indicator.Set(models.Disconnected)
	t.lastDiagnostic = t.clock.Millis()
}

func (t *ConnectionTracker) onConnected(peer string) {
	t.state.Store(int32(models.Connected))
	atomic.AddUint64(&t.connects, 1)
	t.indicator.Set(models.Connected)
	utils.L().WithField("central", peer).Debug("connected event")
}

func (t *ConnectionTracker) onDisconnected(peer string) {
	t.state.Store(int32(models.Disconnected))
	atomic.AddUint64(&t.disconnects, 1)
	t.indicator.Set(models.Disconnected)
	t.periph.SetConnectable(true)
	utils.L().WithField("central", peer).Debug("disconnected event")
}

// Step delivers pending link events and runs the idle diagnostic. While a
// central is attached the indicator is re-asserted instead. It reports
// whether a diagnostic was emitted.
func (t *ConnectionTracker) Step() bool {
	t.periph.Poll()

	if t.State() == models.Connected {
		t.indicator.Set(models.Connected)
		return false
	}
	now := t.clock.Millis()
	if now-t.lastDiagnostic < t.diagInterval {
		return false
	}
	t.lastDiagnostic = now
	atomic.AddUint64(&t.diagnostics, 1)
	utils.L().Debug("for data capture, connect to BLE address: %s", t.periph.Address())
	utils.L().Debug("waiting...")
	return true
}

// State returns the current connection state.
func (t *ConnectionTracker) State() models.ConnectionState {
	return models.ConnectionState(t.state.Load())
}

// Stats returns connect, disconnect and diagnostic counts.
func (t *ConnectionTracker) Stats() (connects, disconnects, diagnostics uint64) {
	return atomic.LoadUint64(&t.connects), atomic.LoadUint64(&t.disconnects), atomic.LoadUint64(&t.diagnostics)
}
