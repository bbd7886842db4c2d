package controller

import (
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Scheduler is the acquisition tick. Motion builds fire when at least one
// interval has passed since the previous fire; the fire timestamp is the
// clock reading that triggered it, so two fires are never closer than the
// interval. Audio builds drain the capture buffer on every step instead.
type Scheduler struct {
	clock    utils.Clock
	interval uint64
	last     uint64

	sensors  *SensorsController
	frame    *models.SampleBuffer
	dispatch *Dispatcher
	tap      func(tsMs uint64, frame []int16)

	fires   uint64
	samples uint64
}

// NewScheduler binds the tick to its input, frame buffer and dispatcher.
func NewScheduler(clock utils.Clock, sensors *SensorsController, frame *models.SampleBuffer, dispatch *Dispatcher) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: sensors.Interval(),
		sensors:  sensors,
		frame:    frame,
		dispatch: dispatch,
	}
}

// Arm sets the reference point for the first interval.
func (s *Scheduler) Arm() { s.last = s.clock.Millis() }

// SetTap registers fn to see every frame before it is dispatched. fn runs
// on the loop goroutine and must not block.
func (s *Scheduler) SetTap(fn func(tsMs uint64, frame []int16)) { s.tap = fn }

// Interval is the configured tick period in milliseconds.
func (s *Scheduler) Interval() uint64 { return s.interval }

// Step runs one loop iteration of the acquisition path. It reports whether
// a motion frame was acquired and dispatched.
func (s *Scheduler) Step() bool {
	if s.sensors.Audio() {
		s.drainAudio()
		return false
	}

	s.frame.Reset()
	now := s.clock.Millis()
	if s.interval == 0 || now-s.last < s.interval {
		return false
	}
	s.sensors.ReadFrame(s.frame)
	if s.tap != nil {
		s.tap(now, s.frame.Values())
	}
	s.dispatch.Dispatch(s.frame.Values())
	s.last = now
	atomic.AddUint64(&s.fires, 1)
	return true
}

// drainAudio feeds every pending capture sample to the classifier as its
// own one-value frame, then hands the buffer back to the producer.
func (s *Scheduler) drainAudio() {
	capture := s.sensors.Capture()
	if capture == nil {
		return
	}
	now := s.clock.Millis()
	n := capture.Drain(func(sample int16) {
		s.frame.Reset()
		s.frame.Put(sample)
		if s.tap != nil {
			s.tap(now, s.frame.Values())
		}
		s.dispatch.Dispatch(s.frame.Values())
	})
	if n > 0 {
		atomic.AddUint64(&s.samples, uint64(n))
	}
}

// Fires counts motion ticks.
func (s *Scheduler) Fires() uint64 { return atomic.LoadUint64(&s.fires) }

// AudioSamples counts drained microphone samples.
func (s *Scheduler) AudioSamples() uint64 { return atomic.LoadUint64(&s.samples) }
