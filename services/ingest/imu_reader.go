package ingest

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Raw count scales for the simulated LSM9DS1-class part.
const (
	accelCountsPerG   = 16384.0 / 2 // ±4 g range
	gyroCountsPerDps  = 32768.0 / 245
	magCountsPerGauss = 32768.0 / 4
)

// SimulatedIMU produces plausible raw accel/gyro/mag counts for a device
// being swung back and forth.
type SimulatedIMU struct {
	failInit   bool
	rng        *rand.Rand
	step       float64
	odr        [len(models.AllGroups)]models.ODR
	continuous bool
	reads      uint64
}

// NewSimulatedIMU creates a simulated driver. With failInit set, Init
// reports ErrSensorInit.
func NewSimulatedIMU(failInit bool, seed int64) *SimulatedIMU {
	return &SimulatedIMU{
		failInit: failInit,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (s *SimulatedIMU) Init() error {
	if s.failInit {
		return fmt.Errorf("simulated imu: %w", ErrSensorInit)
	}
	utils.L().Info("imu driver ready       (driver=sim)")
	return nil
}

func (s *SimulatedIMU) SetODR(g models.SensorGroup, odr models.ODR) {
	s.odr[g] = odr
	utils.L().Debug("imu: %s odr=%s", g, odr)
}

func (s *SimulatedIMU) SetContinuousMode() { s.continuous = true }

// ODR reports the rate last set for a group.
func (s *SimulatedIMU) ODR(g models.SensorGroup) models.ODR { return s.odr[g] }

func (s *SimulatedIMU) ReadRaw(g models.SensorGroup) (x, y, z int16, err error) {
	atomic.AddUint64(&s.reads, 1)
	// one step per tick, taken on the first enabled group, keeps every
	// group of a frame on the same phase
	if g == s.leader() {
		s.step += 0.05
	}
	switch g {
	case models.GroupAccel:
		return counts(0.6*math.Sin(s.step)+s.noise(0.01), accelCountsPerG),
			counts(0.3*math.Cos(s.step)+s.noise(0.01), accelCountsPerG),
			counts(1.0+s.noise(0.02), accelCountsPerG), nil
	case models.GroupGyro:
		return counts(90*math.Cos(s.step*2)+s.noise(0.5), gyroCountsPerDps),
			counts(45*math.Sin(s.step*2)+s.noise(0.5), gyroCountsPerDps),
			counts(5+s.noise(0.2), gyroCountsPerDps), nil
	case models.GroupMag:
		return counts(0.25*math.Cos(s.step)+s.noise(0.005), magCountsPerGauss),
			counts(0.25*math.Sin(s.step)-0.10+s.noise(0.005), magCountsPerGauss),
			counts(0.45+s.noise(0.005), magCountsPerGauss), nil
	}
	return 0, 0, 0, fmt.Errorf("simulated imu: unknown group %d", g)
}

// leader is the first group with a non-zero rate, accel when none is set.
func (s *SimulatedIMU) leader() models.SensorGroup {
	for _, g := range models.AllGroups {
		if s.odr[g] != models.ODROff {
			return g
		}
	}
	return models.GroupAccel
}

func (s *SimulatedIMU) Close() error { return nil }

// Reads returns the number of ReadRaw calls served.
func (s *SimulatedIMU) Reads() uint64 { return atomic.LoadUint64(&s.reads) }

func (s *SimulatedIMU) noise(amp float64) float64 {
	return (s.rng.Float64()*2 - 1) * amp
}

func counts(v, scale float64) int16 {
	c := math.Round(v * scale)
	switch {
	case c > math.MaxInt16:
		return math.MaxInt16
	case c < math.MinInt16:
		return math.MinInt16
	}
	return int16(c)
}
