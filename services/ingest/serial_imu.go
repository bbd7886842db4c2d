package ingest

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"

	"sensor-bridge/models"
	"sensor-bridge/utils"
)

// Request bytes understood by the serial IMU bridge board, one per group.
var groupRequest = map[models.SensorGroup]byte{
	models.GroupAccel: 'A',
	models.GroupGyro:  'G',
	models.GroupMag:   'M',
}

// Configuration bytes: 'R' <group> <odr index>, 'C' for continuous mode.
const (
	cmdSetRate    = 'R'
	cmdContinuous = 'C'
)

// SerialIMU talks to an IMU behind a UART bridge. Each ReadRaw writes one
// request byte and reads back six bytes: x, y, z as little-endian int16.
type SerialIMU struct {
	name string
	baud int
	port io.ReadWriteCloser

	errors uint64
	reads  uint64
}

// NewSerialIMU prepares a driver for the named port. The port is opened by Init.
func NewSerialIMU(name string, baud int) *SerialIMU {
	return &SerialIMU{name: name, baud: baud}
}

// newSerialIMUFromPort wraps an already open stream.
func newSerialIMUFromPort(port io.ReadWriteCloser) *SerialIMU {
	return &SerialIMU{name: "stream", port: port}
}

func (s *SerialIMU) Init() error {
	if s.port != nil {
		return nil
	}
	c := &serial.Config{Name: s.name, Baud: s.baud, ReadTimeout: 100 * time.Millisecond}
	p, err := serial.OpenPort(c)
	if err != nil {
		return fmt.Errorf("serial imu %s: %w: %v", s.name, ErrSensorInit, err)
	}
	s.port = p
	utils.L().Info("imu driver ready       (driver=serial, port=%s, baud=%d)", s.name, s.baud)
	return nil
}

func (s *SerialIMU) SetODR(g models.SensorGroup, odr models.ODR) {
	if _, err := s.port.Write([]byte{cmdSetRate, groupRequest[g], byte(odr)}); err != nil {
		atomic.AddUint64(&s.errors, 1)
		utils.L().Warn("serial imu: set %s odr: %v", g, err)
	}
}

func (s *SerialIMU) SetContinuousMode() {
	if _, err := s.port.Write([]byte{cmdContinuous}); err != nil {
		atomic.AddUint64(&s.errors, 1)
		utils.L().Warn("serial imu: continuous mode: %v", err)
	}
}

func (s *SerialIMU) ReadRaw(g models.SensorGroup) (x, y, z int16, err error) {
	req, ok := groupRequest[g]
	if !ok {
		return 0, 0, 0, fmt.Errorf("serial imu: unknown group %d", g)
	}
	if _, err = s.port.Write([]byte{req}); err != nil {
		atomic.AddUint64(&s.errors, 1)
		return 0, 0, 0, fmt.Errorf("serial imu: request %s: %w", g, err)
	}
	var resp [6]byte
	if _, err = io.ReadFull(s.port, resp[:]); err != nil {
		atomic.AddUint64(&s.errors, 1)
		return 0, 0, 0, fmt.Errorf("serial imu: read %s: %w", g, err)
	}
	atomic.AddUint64(&s.reads, 1)
	return int16(binary.LittleEndian.Uint16(resp[0:2])),
		int16(binary.LittleEndian.Uint16(resp[2:4])),
		int16(binary.LittleEndian.Uint16(resp[4:6])), nil
}

func (s *SerialIMU) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// Stats returns successful reads and I/O errors.
func (s *SerialIMU) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&s.reads), atomic.LoadUint64(&s.errors)
}
