package ingest

import (
	"sync/atomic"
)

// CaptureBuffer is the one piece of state shared between the audio capture
// callback and the main loop.
//
// The producer may only write samples while the count is zero; it then
// publishes the count with an atomic store. The consumer reads the count
// once, walks the samples, and stores zero to hand the buffer back. A chunk
// that arrives before the consumer has drained is dropped and counted as an
// overrun. No lock is taken on either side.
type CaptureBuffer struct {
	samples []int16
	count   atomic.Int32

	chunks   atomic.Uint64
	overruns atomic.Uint64
	drained  atomic.Uint64
}

// NewCaptureBuffer allocates a buffer for capacity samples. The storage is
// never resized.
func NewCaptureBuffer(capacity int) *CaptureBuffer {
	if capacity <= 0 {
		capacity = 2048
	}
	return &CaptureBuffer{samples: make([]int16, capacity)}
}

// Capacity is the fixed sample capacity.
func (b *CaptureBuffer) Capacity() int { return len(b.samples) }

// Write is called from the capture callback. Samples beyond capacity are
// discarded. It reports whether the chunk was accepted.
func (b *CaptureBuffer) Write(chunk []int16) bool {
	if len(chunk) == 0 {
		return true
	}
	if b.count.Load() != 0 {
		b.overruns.Add(1)
		return false
	}
	n := copy(b.samples, chunk)
	b.chunks.Add(1)
	b.count.Store(int32(n))
	return true
}

// Pending returns the published sample count without draining.
func (b *CaptureBuffer) Pending() int { return int(b.count.Load()) }

// Drain calls fn once per pending sample, in capture order, then releases
// the buffer to the producer. It returns the number of samples drained.
func (b *CaptureBuffer) Drain(fn func(sample int16)) int {
	n := int(b.count.Load())
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		fn(b.samples[i])
	}
	b.drained.Add(uint64(n))
	b.count.Store(0)
	return n
}

// CaptureStats is a snapshot of buffer counters.
type CaptureStats struct {
	Chunks   uint64
	Overruns uint64
	Drained  uint64
}

// Stats returns the current counters.
func (b *CaptureBuffer) Stats() CaptureStats {
	return CaptureStats{
		Chunks:   b.chunks.Load(),
		Overruns: b.overruns.Load(),
		Drained:  b.drained.Load(),
	}
}
