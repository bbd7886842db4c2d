package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond counter, the host equivalent of millis().
type Clock interface {
	Millis() uint64
}

// MonotonicClock counts milliseconds since it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

func (c *MonotonicClock) Millis() uint64 {
	return uint64(time.Since(c.start) / time.Millisecond)
}

// ManualClock only moves when told to. Used by simulations and tests.
type ManualClock struct {
	now atomic.Uint64
}

func (c *ManualClock) Millis() uint64 { return c.now.Load() }

// Advance moves the clock forward by ms milliseconds.
func (c *ManualClock) Advance(ms uint64) { c.now.Add(ms) }

// Set pins the clock to an absolute reading.
func (c *ManualClock) Set(ms uint64) { c.now.Store(ms) }

// SessionName returns a unique session directory name:
//
//	<prefix>_YYYYMMDD_HHMMSS
func SessionName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102_150405"))
}

// Halt parks the caller after a fatal start-up failure. There is no retry:
// the process stays down until it is signalled, then exits non-zero.
func Halt(ctx context.Context, err error) {
	L().Error("halted: %v", err)
	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		L().Info("halt: run deadline reached")
	}
	L().Close()
	os.Exit(1)
}
