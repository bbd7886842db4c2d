package utils

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sensor-bridge/models"
)

// ─── Sensor configs ─────────────────────────────────────────────────────

type GroupConfig struct {
	Enabled bool `yaml:"enabled"`
}

type SensorsConfig struct {
	Accel        GroupConfig `yaml:"accel"`
	Gyro         GroupConfig `yaml:"gyro"`
	Mag          GroupConfig `yaml:"mag"`
	AccelGyroODR string      `yaml:"accel_gyro_odr"`
	MagODR       string      `yaml:"mag_odr"`
	Driver       string      `yaml:"driver"` // "sim" or "serial"
	SerialPort   string      `yaml:"serial_port"`
	BaudRate     int         `yaml:"baud_rate"`
	FailInit     bool        `yaml:"fail_init"` // sim driver only
}

type AudioConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Source        string `yaml:"source"` // "sim" or "gst"
	SampleRate    int    `yaml:"sample_rate"`
	BufferSamples int    `yaml:"buffer_samples"`
	Device        string `yaml:"device"`
}

// ─── Transport configs ──────────────────────────────────────────────────

type MQTTConfig struct {
	Broker         string `yaml:"broker"`
	TopicPrefix    string `yaml:"topic_prefix"`
	ClientID       string `yaml:"client_id"`
	QoS            byte   `yaml:"qos"`
	QueueSize      int    `yaml:"queue_size"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
}

type BLEConfig struct {
	Backend             string     `yaml:"backend"` // "sim" or "mqtt"
	DeviceName          string     `yaml:"device_name"`
	AdvertiseIntervalMs int        `yaml:"advertise_interval_ms"`
	MQTT                MQTTConfig `yaml:"mqtt"`
}

type SerialConfig struct {
	Port     string `yaml:"port"` // empty writes to stdout
	BaudRate int    `yaml:"baud_rate"`
}

type TransportConfig struct {
	Mode   string       `yaml:"mode"` // "ble" or "serial"
	BLE    BLEConfig    `yaml:"ble"`
	Serial SerialConfig `yaml:"serial"`
}

// ─── Classifier configs ─────────────────────────────────────────────────

type PrototypeConfig struct {
	Class    uint16 `yaml:"class"`
	Vector   []int  `yaml:"vector"`
	Influence int   `yaml:"influence"`
}

type BuiltinConfig struct {
	Window     int               `yaml:"window"`
	Slide      int               `yaml:"slide"`
	Prototypes []PrototypeConfig `yaml:"prototypes"`
}

type ClassifierConfig struct {
	Backend   string        `yaml:"backend"` // "builtin" or "process"
	Command   string        `yaml:"command"`
	Args      []string      `yaml:"args"`
	TimeoutMs int           `yaml:"timeout_ms"`
	ModelPath string        `yaml:"model_path"`
	Builtin   BuiltinConfig `yaml:"builtin"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// RecordConfig controls the raw frame recorder. Frames are written as CSV
// under <dir>/<session_prefix>_YYYYMMDD_HHMMSS/frames.csv.
type RecordConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	SessionPrefix string `yaml:"session_prefix"`
	QueueFrames   int    `yaml:"queue_frames"`
	BufferSizeKB  int    `yaml:"buffer_size_kb"`
	FlushMs       int    `yaml:"flush_interval_ms"`
	Overwrite     bool   `yaml:"overwrite"`
}

type SimulationConfig struct {
	DurationSeconds int `yaml:"duration_seconds"`
}

// BridgeConfig is the top-level structure for bridge.yaml. The fields that
// were build-time switches on the device are resolved once by Validate.
type BridgeConfig struct {
	Sensors    SensorsConfig    `yaml:"sensors"`
	Audio      AudioConfig      `yaml:"audio"`
	Transport  TransportConfig  `yaml:"transport"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Profiler   bool             `yaml:"profiler"`
	Log        LogConfig        `yaml:"log"`
	Record     RecordConfig     `yaml:"record"`
	Simulation SimulationConfig `yaml:"simulation"`

	// Resolved by Validate.
	AccelGyroRate models.ODR `yaml:"-"`
	MagRate       models.ODR `yaml:"-"`
}

// Transport modes.
const (
	TransportBLE    = "ble"
	TransportSerial = "serial"
)

// DefaultBridgeConfig mirrors the stock device build: accel+gyro at 119 Hz,
// wireless transport, built-in knowledge pack.
func DefaultBridgeConfig() *BridgeConfig {
	cfg := &BridgeConfig{}
	cfg.applyDefaults()
	cfg.Sensors.Accel.Enabled = true
	cfg.Sensors.Gyro.Enabled = true
	_ = cfg.Validate()
	return cfg
}

func (c *BridgeConfig) applyDefaults() {
	if c.Sensors.AccelGyroODR == "" {
		c.Sensors.AccelGyroODR = "119hz"
	}
	if c.Sensors.MagODR == "" {
		c.Sensors.MagODR = "off"
	}
	if c.Sensors.Driver == "" {
		c.Sensors.Driver = "sim"
	}
	if c.Sensors.BaudRate == 0 {
		c.Sensors.BaudRate = 115200
	}
	if c.Audio.Source == "" {
		c.Audio.Source = "sim"
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.BufferSamples == 0 {
		c.Audio.BufferSamples = 2048
	}
	if c.Transport.Mode == "" {
		c.Transport.Mode = TransportBLE
	}
	if c.Transport.BLE.Backend == "" {
		c.Transport.BLE.Backend = "sim"
	}
	if c.Transport.BLE.DeviceName == "" {
		c.Transport.BLE.DeviceName = "GM Device"
	}
	if c.Transport.BLE.AdvertiseIntervalMs == 0 {
		c.Transport.BLE.AdvertiseIntervalMs = 5000
	}
	if c.Transport.BLE.MQTT.TopicPrefix == "" {
		c.Transport.BLE.MQTT.TopicPrefix = "sensor-bridge"
	}
	if c.Transport.Serial.BaudRate == 0 {
		c.Transport.Serial.BaudRate = 115200
	}
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = "builtin"
	}
	if c.Classifier.TimeoutMs == 0 {
		c.Classifier.TimeoutMs = 50
	}
	if c.Classifier.Builtin.Window == 0 {
		c.Classifier.Builtin.Window = 64
	}
	if c.Classifier.Builtin.Slide == 0 {
		c.Classifier.Builtin.Slide = c.Classifier.Builtin.Window
	}
	if c.Record.Dir == "" {
		c.Record.Dir = "recordings"
	}
	if c.Record.SessionPrefix == "" {
		c.Record.SessionPrefix = "session"
	}
	if c.Record.QueueFrames == 0 {
		c.Record.QueueFrames = 1024
	}
	if c.Record.FlushMs == 0 {
		c.Record.FlushMs = 200
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Groups returns the enabled motion groups.
func (c *BridgeConfig) Groups() models.GroupSet {
	return models.GroupSet{
		Accel: c.Sensors.Accel.Enabled,
		Gyro:  c.Sensors.Gyro.Enabled,
		Mag:   c.Sensors.Mag.Enabled,
	}
}

// Validate checks mutually exclusive modes and resolves enum strings.
func (c *BridgeConfig) Validate() error {
	var errs []error

	ag, err := models.ParseODR(c.Sensors.AccelGyroODR)
	if err != nil {
		errs = append(errs, fmt.Errorf("sensors.accel_gyro_odr: %w", err))
	}
	mag, err := models.ParseODR(c.Sensors.MagODR)
	if err != nil {
		errs = append(errs, fmt.Errorf("sensors.mag_odr: %w", err))
	}
	c.AccelGyroRate, c.MagRate = ag, mag

	groups := c.Groups()
	switch {
	case c.Audio.Enabled && groups.Any():
		errs = append(errs, errors.New("audio and motion sensors are mutually exclusive"))
	case !c.Audio.Enabled && !groups.Any():
		errs = append(errs, errors.New("no sensor enabled: enable a motion group or audio"))
	}
	if (groups.Accel || groups.Gyro) && ag == models.ODROff {
		errs = append(errs, errors.New("accel/gyro enabled with accel_gyro_odr=off"))
	}
	if groups.Mag && !groups.Accel && !groups.Gyro && mag == models.ODROff {
		errs = append(errs, errors.New("magnetometer-only build needs a mag_odr"))
	}

	switch c.Sensors.Driver {
	case "sim", "serial":
	default:
		errs = append(errs, fmt.Errorf("sensors.driver: unknown driver %q", c.Sensors.Driver))
	}
	switch c.Audio.Source {
	case "sim", "gst":
	default:
		errs = append(errs, fmt.Errorf("audio.source: unknown source %q", c.Audio.Source))
	}
	switch c.Transport.Mode {
	case TransportBLE, TransportSerial:
	default:
		errs = append(errs, fmt.Errorf("transport.mode: unknown mode %q", c.Transport.Mode))
	}
	switch c.Transport.BLE.Backend {
	case "sim":
	case "mqtt":
		if c.Transport.Mode == TransportBLE && c.Transport.BLE.MQTT.Broker == "" {
			errs = append(errs, errors.New("transport.ble.mqtt.broker is required for the mqtt backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("transport.ble.backend: unknown backend %q", c.Transport.BLE.Backend))
	}
	switch c.Classifier.Backend {
	case "builtin":
	case "process":
		if c.Classifier.Command == "" {
			errs = append(errs, errors.New("classifier.command is required for the process backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("classifier.backend: unknown backend %q", c.Classifier.Backend))
	}
	if c.Audio.BufferSamples < 0 || c.Classifier.Builtin.Window < 0 || c.Classifier.Builtin.Slide < 0 ||
		c.Record.QueueFrames < 0 || c.Record.BufferSizeKB < 0 {
		errs = append(errs, errors.New("sizes must not be negative"))
	}

	return errors.Join(errs...)
}

// ─── Loaders ────────────────────────────────────────────────────────────

// ParseBridgeConfig decodes bridge.yaml contents, applies defaults and validates.
func ParseBridgeConfig(data []byte) (*BridgeConfig, error) {
	var cfg BridgeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse bridge config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bridge config: %w", err)
	}
	return &cfg, nil
}

// LoadBridgeConfig reads and parses bridge.yaml.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bridge config: %w", err)
	}
	return ParseBridgeConfig(data)
}
