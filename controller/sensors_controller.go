package controller

import (
	"fmt"
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/services/ingest"
	"sensor-bridge/utils"
)

// AudioIntervalMs is the loop interval used when the microphone is the
// input. Samples are drained on every iteration regardless.
const AudioIntervalMs = 16

// SensorsController owns sensor bring-up and the per-tick reads. Exactly
// one input is active: the IMU driver for motion builds or the capture
// buffer for audio builds.
type SensorsController struct {
	groups   models.GroupSet
	enabled  []models.SensorGroup
	accelODR models.ODR
	magODR   models.ODR

	driver  ingest.IMUDriver
	audio   ingest.AudioSource
	capture *ingest.CaptureBuffer

	readErrors uint64
}

// NewSensorsController binds the configured groups to a driver, or to an
// audio source and capture buffer when audio is enabled.
func NewSensorsController(cfg *utils.BridgeConfig, driver ingest.IMUDriver, audio ingest.AudioSource, capture *ingest.CaptureBuffer) *SensorsController {
	sc := &SensorsController{
		accelODR: cfg.AccelGyroRate,
		magODR:   cfg.MagRate,
	}
	if cfg.Audio.Enabled {
		sc.audio, sc.capture = audio, capture
		return sc
	}
	sc.groups = cfg.Groups()
	sc.enabled = sc.groups.Enabled()
	sc.driver = driver
	return sc
}

// Start brings the input up. Any failure is fatal.
func (sc *SensorsController) Start() error {
	if sc.audio != nil {
		if sc.capture == nil {
			return &FatalInitError{Component: "audio", Err: fmt.Errorf("%w: no capture buffer", ingest.ErrSensorInit)}
		}
		if err := sc.audio.Start(func(chunk []int16) { sc.capture.Write(chunk) }); err != nil {
			return &FatalInitError{Component: "audio", Err: err}
		}
		utils.L().Info("sensors controller: audio capture running (buffer=%d samples)", sc.capture.Capacity())
		return nil
	}

	if sc.driver == nil || !sc.groups.Any() {
		return &FatalInitError{Component: "imu", Err: fmt.Errorf("%w: no motion group enabled", ingest.ErrSensorInit)}
	}
	if err := sc.driver.Init(); err != nil {
		return &FatalInitError{Component: "imu", Err: err}
	}

	// accel and gyro share one rate; a disabled partner is switched off
	switch {
	case sc.groups.Accel && sc.groups.Gyro:
		sc.driver.SetODR(models.GroupAccel, sc.accelODR)
		sc.driver.SetODR(models.GroupGyro, sc.accelODR)
	case sc.groups.Accel:
		sc.driver.SetODR(models.GroupAccel, sc.accelODR)
		sc.driver.SetODR(models.GroupGyro, models.ODROff)
	case sc.groups.Gyro:
		sc.driver.SetODR(models.GroupAccel, models.ODROff)
		sc.driver.SetODR(models.GroupGyro, sc.accelODR)
	}
	if sc.groups.Mag {
		sc.driver.SetODR(models.GroupMag, sc.magODR)
	} else {
		sc.driver.SetODR(models.GroupMag, models.ODROff)
	}
	sc.driver.SetContinuousMode()

	utils.L().Info("sensors controller: imu running (groups=%v, frame=%d values, interval=%dms)",
		sc.enabled, sc.groups.FrameLength(), sc.Interval())
	return nil
}

// Audio reports whether the microphone is the input.
func (sc *SensorsController) Audio() bool { return sc.audio != nil }

// Groups returns the enabled motion groups in frame order.
func (sc *SensorsController) Groups() []models.SensorGroup { return sc.enabled }

// FrameLength is the number of values one motion tick produces.
func (sc *SensorsController) FrameLength() int { return sc.groups.FrameLength() }

// Interval is the tick interval in milliseconds.
func (sc *SensorsController) Interval() uint64 {
	switch {
	case sc.audio != nil:
		return AudioIntervalMs
	case sc.groups.Accel || sc.groups.Gyro:
		return sc.accelODR.IntervalMs()
	default:
		return sc.magODR.IntervalMs()
	}
}

// ReadFrame appends one x,y,z reading per enabled group to buf. A failed
// read still occupies its slot with zeros so the frame keeps its layout.
func (sc *SensorsController) ReadFrame(buf *models.SampleBuffer) {
	for _, g := range sc.enabled {
		x, y, z, err := sc.driver.ReadRaw(g)
		if err != nil {
			atomic.AddUint64(&sc.readErrors, 1)
			utils.L().Debug("imu: read %s: %v", g, err)
			x, y, z = 0, 0, 0
		}
		buf.PutAxes(x, y, z)
	}
}

// Capture returns the audio capture buffer, nil for motion builds.
func (sc *SensorsController) Capture() *ingest.CaptureBuffer { return sc.capture }

// Close stops the active input.
func (sc *SensorsController) Close() error {
	if sc.audio != nil {
		return sc.audio.Close()
	}
	if sc.driver != nil {
		return sc.driver.Close()
	}
	return nil
}

// LogStats prints input counters.
func (sc *SensorsController) LogStats() {
	if sc.capture != nil {
		s := sc.capture.Stats()
		utils.L().Info("  audio    chunks=%d  drained=%d  overruns=%d", s.Chunks, s.Drained, s.Overruns)
		return
	}
	utils.L().Info("  imu      groups=%v  read_errors=%d", sc.enabled, atomic.LoadUint64(&sc.readErrors))
}
