package controller

import (
	"sync/atomic"

	"sensor-bridge/services/classifier"
	"sensor-bridge/utils"
)

// Dispatcher hands each completed frame to the classifier, once, on the
// caller's goroutine. Results come back through the callback the router
// registered at Init; the dispatcher never looks at them.
type Dispatcher struct {
	runtime classifier.Classifier

	calls  uint64
	errors uint64
}

// NewDispatcher wraps a classifier runtime.
func NewDispatcher(runtime classifier.Classifier) *Dispatcher {
	return &Dispatcher{runtime: runtime}
}

// Dispatch runs the classifier on frame. Errors are counted and logged;
// the frame is not retried.
func (d *Dispatcher) Dispatch(frame []int16) {
	atomic.AddUint64(&d.calls, 1)
	if err := d.runtime.Run(frame); err != nil {
		n := atomic.AddUint64(&d.errors, 1)
		// keep the log readable when a worker is down
		if n == 1 || n%100 == 0 {
			utils.L().Warn("dispatcher: classifier run failed (%d so far): %v", n, err)
		}
	}
}

// Stats returns classifier invocations and failed invocations.
func (d *Dispatcher) Stats() (calls, errors uint64) {
	return atomic.LoadUint64(&d.calls), atomic.LoadUint64(&d.errors)
}
