package ingest

import (
	"errors"

	"sensor-bridge/models"
)

// ErrSensorInit is returned by drivers that fail to come up.
var ErrSensorInit = errors.New("sensor init failed")

// IMUDriver is the raw register-level sensor, consumed one group at a time.
type IMUDriver interface {
	Init() error
	SetODR(g models.SensorGroup, odr models.ODR)
	SetContinuousMode()
	// ReadRaw returns one x,y,z reading for a group in raw counts.
	ReadRaw(g models.SensorGroup) (x, y, z int16, err error)
	Close() error
}
