package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"sensor-bridge/models"
	"sensor-bridge/services/classifier"
	"sensor-bridge/services/ingest"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
	"sensor-bridge/views"
)

// PollInterval is how often Run steps the loop.
const PollInterval = time.Millisecond

// BridgeDeps are the collaborators a bridge is assembled from. Peripheral
// and Indicator are used in wireless mode, Console in serial mode.
type BridgeDeps struct {
	Clock      utils.Clock
	Driver     ingest.IMUDriver
	Audio      ingest.AudioSource
	Classifier classifier.Classifier
	Peripheral transport.Peripheral
	Indicator  transport.Indicator
	Console    LineWriter
	Metadata   *models.ModelMetadata
	Recorder   *FrameRecorder
}

// BridgeController runs the acquisition, classification and output loop.
// Every stage runs on the goroutine calling Step or Run.
type BridgeController struct {
	cfg  *utils.BridgeConfig
	deps BridgeDeps

	frame      models.SampleBuffer
	sensors    *SensorsController
	scheduler  *Scheduler
	dispatcher *Dispatcher
	router     *OutputRouter
	tracker    *ConnectionTracker

	started bool
}

// BridgeStats is a point-in-time view of the loop counters.
type BridgeStats struct {
	Fires            uint64
	AudioSamples     uint64
	ClassifierCalls  uint64
	ClassifierErrors uint64
	Router           RouterStats
	State            models.ConnectionState
	Connects         uint64
	Disconnects      uint64
	Diagnostics      uint64
}

// NewBridgeController wires the stages together. Nothing is started.
func NewBridgeController(cfg *utils.BridgeConfig, deps BridgeDeps) (*BridgeController, error) {
	if deps.Clock == nil {
		deps.Clock = utils.NewMonotonicClock()
	}
	if deps.Classifier == nil {
		return nil, errors.New("bridge: no classifier")
	}
	b := &BridgeController{cfg: cfg, deps: deps}

	var capture *ingest.CaptureBuffer
	if cfg.Audio.Enabled {
		capture = ingest.NewCaptureBuffer(cfg.Audio.BufferSamples)
	}
	b.sensors = NewSensorsController(cfg, deps.Driver, deps.Audio, capture)
	b.dispatcher = NewDispatcher(deps.Classifier)
	b.scheduler = NewScheduler(deps.Clock, b.sensors, &b.frame, b.dispatcher)

	switch cfg.Transport.Mode {
	case utils.TransportBLE:
		if deps.Peripheral == nil {
			return nil, errors.New("bridge: wireless mode without a peripheral")
		}
		if deps.Indicator == nil {
			deps.Indicator = transport.NewLEDIndicator()
			b.deps.Indicator = deps.Indicator
		}
		b.tracker = NewConnectionTracker(deps.Peripheral, deps.Indicator, deps.Clock,
			uint64(cfg.Transport.BLE.AdvertiseIntervalMs))
		b.router = NewWirelessRouter(deps.Peripheral, b.tracker.State)
	case utils.TransportSerial:
		if deps.Console == nil {
			return nil, errors.New("bridge: serial mode without a console")
		}
		var profiler classifier.Profiler
		if cfg.Profiler {
			p, ok := deps.Classifier.(classifier.Profiler)
			if !ok {
				return nil, errors.New("bridge: profiler mode needs a runtime that reports cycles")
			}
			profiler = p
		}
		b.router = NewSerialRouter(deps.Console, views.NewLineFormatter(deps.Metadata), profiler)
	default:
		return nil, fmt.Errorf("bridge: unknown transport mode %q", cfg.Transport.Mode)
	}
	return b, nil
}

// Start brings every collaborator up in device order: sensors, wireless
// stack, advertising, indicator, classifier. Failures are FatalInitError.
// A configured recorder starts last and lives until Close.
func (b *BridgeController) Start(ctx context.Context) error {
	if err := b.sensors.Start(); err != nil {
		return err
	}

	if b.tracker != nil {
		p := b.deps.Peripheral
		if err := p.Begin(); err != nil {
			return &FatalInitError{Component: "ble", Err: err}
		}
		p.SetLocalName(b.cfg.Transport.BLE.DeviceName)
		utils.L().Debug("peripheral advertising info:")
		utils.L().Debug("  name: %s", b.cfg.Transport.BLE.DeviceName)
		utils.L().Debug("  mac: %s", p.Address())
		utils.L().Debug("  service uuid: %s", transport.ServiceUUID)
		utils.L().Debug("  class-only uuid: %s", transport.ClassOnlyUUID)
		utils.L().Debug("  class-features uuid: %s", transport.ClassFeaturesUUID)
		if err := p.Advertise(); err != nil {
			return &FatalInitError{Component: "ble", Err: err}
		}
		b.tracker.Start()
		utils.L().Info("peripheral advertising (name=%q, address=%s)", b.cfg.Transport.BLE.DeviceName, p.Address())
	}

	if err := b.deps.Classifier.Init(b.router.Route); err != nil {
		return &FatalInitError{Component: "classifier", Err: err}
	}

	if r := b.deps.Recorder; r != nil {
		r.Start(ctx)
		b.scheduler.SetTap(r.Offer)
	}

	b.frame.Zero()
	b.scheduler.Arm()
	b.started = true
	utils.L().Info("bridge started (transport=%s, interval=%dms, frame=%d values, audio=%v)",
		b.cfg.Transport.Mode, b.scheduler.Interval(), b.sensors.FrameLength(), b.sensors.Audio())
	return nil
}

// Step is one loop iteration: connection bookkeeping, then acquisition.
func (b *BridgeController) Step() {
	if b.tracker != nil {
		b.tracker.Step()
	}
	b.scheduler.Step()
}

// Run steps the loop every PollInterval until ctx ends.
func (b *BridgeController) Run(ctx context.Context) error {
	if !b.started {
		return errors.New("bridge: Run before Start")
	}
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		b.Step()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Peripheral returns the wireless stack, nil in serial mode.
func (b *BridgeController) Peripheral() transport.Peripheral {
	if b.tracker == nil {
		return nil
	}
	return b.deps.Peripheral
}

// Stats returns the loop counters.
func (b *BridgeController) Stats() BridgeStats {
	calls, errs := b.dispatcher.Stats()
	s := BridgeStats{
		Fires:            b.scheduler.Fires(),
		AudioSamples:     b.scheduler.AudioSamples(),
		ClassifierCalls:  calls,
		ClassifierErrors: errs,
		Router:           b.router.Stats(),
	}
	if b.tracker != nil {
		s.State = b.tracker.State()
		s.Connects, s.Disconnects, s.Diagnostics = b.tracker.Stats()
	}
	return s
}

// LogStats prints the counters in the stats block.
func (b *BridgeController) LogStats() {
	s := b.Stats()
	b.sensors.LogStats()
	utils.L().Info("  loop     fires=%d  audio_samples=%d", s.Fires, s.AudioSamples)
	if r := b.deps.Recorder; r != nil {
		offered, written, dropped := r.Stats()
		utils.L().Info("  record   offered=%d  written=%d  dropped=%d", offered, written, dropped)
	}
	utils.L().Info("  kb       calls=%d  errors=%d  results=%d", s.ClassifierCalls, s.ClassifierErrors, s.Router.Results)
	if b.tracker != nil {
		utils.L().Info("  ble      state=%s  connects=%d  disconnects=%d", s.State, s.Connects, s.Disconnects)
		for _, c := range transport.Channels {
			utils.L().Info("  notify   %-8s sent=%d  skipped=%d  failed=%d",
				c, s.Router.Sent[c], s.Router.Skipped[c], s.Router.Failed[c])
		}
		return
	}
	utils.L().Info("  serial   lines=%d  errors=%d", s.Router.Lines, s.Router.LineErrs)
}

// Close shuts every collaborator down and joins their errors.
func (b *BridgeController) Close() error {
	var errs []error
	errs = append(errs, b.sensors.Close(), b.deps.Classifier.Close())
	if b.tracker != nil {
		errs = append(errs, b.deps.Peripheral.Close())
	}
	if c, ok := b.deps.Console.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if b.deps.Recorder != nil {
		errs = append(errs, b.deps.Recorder.Stop())
	}
	return errors.Join(errs...)
}
