package controller

import (
	"fmt"
	"os"
	"time"

	"sensor-bridge/models"
	"sensor-bridge/services/classifier"
	"sensor-bridge/services/ingest"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
	"sensor-bridge/views"
)

// SimAddress is the address the simulated peripheral reports.
const SimAddress = "C0:FF:EE:00:11:22"

// BuildDeps constructs the concrete collaborators named by cfg. Nothing is
// started; drivers and ports are opened by the bridge's Start.
func BuildDeps(cfg *utils.BridgeConfig, meta *models.ModelMetadata) (BridgeDeps, error) {
	deps := BridgeDeps{
		Clock:    utils.NewMonotonicClock(),
		Metadata: meta,
	}

	// ── input ────────────────────────────────────────────────────────
	if cfg.Audio.Enabled {
		switch cfg.Audio.Source {
		case "gst":
			if !ingest.GstAvailable() {
				utils.L().Warn("audio.source=gst but this binary has no GStreamer support")
			}
			deps.Audio = ingest.NewGstMicrophone(cfg.Audio.SampleRate, cfg.Audio.Device)
		default:
			deps.Audio = ingest.NewSimulatedPDM(cfg.Audio.SampleRate, 256)
		}
	} else {
		switch cfg.Sensors.Driver {
		case "serial":
			deps.Driver = ingest.NewSerialIMU(cfg.Sensors.SerialPort, cfg.Sensors.BaudRate)
		default:
			deps.Driver = ingest.NewSimulatedIMU(cfg.Sensors.FailInit, time.Now().UnixNano())
		}
	}

	// ── classifier ───────────────────────────────────────────────────
	switch cfg.Classifier.Backend {
	case "process":
		pc, err := classifier.NewProcessClassifier(classifier.ProcessConfig{
			Command: cfg.Classifier.Command,
			Args:    cfg.Classifier.Args,
			Timeout: time.Duration(cfg.Classifier.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			return deps, err
		}
		deps.Classifier = pc
	default:
		pm, err := classifier.FromConfig(cfg.Classifier.Builtin)
		if err != nil {
			return deps, err
		}
		deps.Classifier = pm
	}

	// ── output ───────────────────────────────────────────────────────
	switch cfg.Transport.Mode {
	case utils.TransportBLE:
		switch cfg.Transport.BLE.Backend {
		case "mqtt":
			m := cfg.Transport.BLE.MQTT
			deps.Peripheral = transport.NewMQTTPeripheral(transport.MQTTPeripheralConfig{
				Broker:       m.Broker,
				TopicPrefix:  m.TopicPrefix,
				ClientID:     m.ClientID,
				QoS:          m.QoS,
				QueueSize:    m.QueueSize,
				WriteTimeout: time.Duration(m.WriteTimeoutMs) * time.Millisecond,
			})
		default:
			deps.Peripheral = transport.NewSimPeripheral(SimAddress, false)
		}
		deps.Indicator = transport.NewLEDIndicator()
	case utils.TransportSerial:
		if cfg.Transport.Serial.Port == "" {
			deps.Console = transport.NewSerialConsole(os.Stdout)
			break
		}
		c, err := transport.OpenSerialConsole(cfg.Transport.Serial.Port, cfg.Transport.Serial.BaudRate)
		if err != nil {
			return deps, fmt.Errorf("serial transport: %w", err)
		}
		deps.Console = c
	}

	// ── recorder ─────────────────────────────────────────────────────
	if cfg.Record.Enabled {
		rec, err := NewFrameRecorder(cfg.Record, views.FrameColumns(cfg.Groups().Enabled(), cfg.Audio.Enabled))
		if err != nil {
			return deps, fmt.Errorf("frame recorder: %w", err)
		}
		deps.Recorder = rec
	}
	return deps, nil
}
