package controller

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sensor-bridge/models"
	"sensor-bridge/services/classifier"
	"sensor-bridge/services/ingest"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
	"sensor-bridge/views"
)

// scriptedKB reports the same result for every frame it is given.
type scriptedKB struct {
	onResult classifier.ResultFunc
	lens     []int
	res      models.ClassificationResult
	fv       models.FeatureVector
	silent   bool
	failInit bool
	cycles   []uint32
}

func (k *scriptedKB) Init(fn classifier.ResultFunc) error {
	if k.failInit {
		return errors.New("no model")
	}
	k.onResult = fn
	return nil
}

func (k *scriptedKB) Run(frame []int16) error {
	if k.onResult == nil {
		return classifier.ErrNotInitialised
	}
	k.lens = append(k.lens, len(frame))
	if !k.silent {
		k.onResult(k.res, k.fv)
	}
	return nil
}

func (k *scriptedKB) ModelCycles(uint16) []uint32 { return k.cycles }

func (k *scriptedKB) Close() error { return nil }

// manualAudio hands its callback to the test.
type manualAudio struct {
	push func([]int16)
}

func (a *manualAudio) Start(fn func([]int16)) error {
	a.push = fn
	return nil
}

func (a *manualAudio) Close() error { return nil }

func newTestBridge(t *testing.T, cfg *utils.BridgeConfig, deps BridgeDeps) *BridgeController {
	t.Helper()
	b, err := NewBridgeController(cfg, deps)
	if err != nil {
		t.Fatalf("NewBridgeController: %v", err)
	}
	return b
}

// ─── scheduler ──────────────────────────────────────────────────────────

func newTestScheduler(cfg *utils.BridgeConfig, clock utils.Clock, kb *scriptedKB) *Scheduler {
	sensors := NewSensorsController(cfg, ingest.NewSimulatedIMU(false, 1), nil, nil)
	if err := sensors.Start(); err != nil {
		panic(err)
	}
	kb.Init(func(models.ClassificationResult, models.FeatureVector) {})
	s := NewScheduler(clock, sensors, &models.SampleBuffer{}, NewDispatcher(kb))
	s.Arm()
	return s
}

// TestSchedulerFireCount pins the exact fire count and checks no two fires
// are closer than the interval, across rates and clock steps.
func TestSchedulerFireCount(t *testing.T) {
	for _, odr := range []string{"10hz", "50hz", "119hz", "238hz", "476hz"} {
		for _, step := range []uint64{1, 3} {
			cfg := utils.DefaultBridgeConfig()
			cfg.Sensors.AccelGyroODR = odr
			if err := cfg.Validate(); err != nil {
				t.Fatal(err)
			}
			var clock utils.ManualClock
			s := newTestScheduler(cfg, &clock, &scriptedKB{})

			const total = 1000
			var fires, lastFire uint64
			for clock.Millis() < total {
				clock.Advance(step)
				if s.Step() {
					if fires > 0 && clock.Millis()-lastFire < s.Interval() {
						t.Errorf("%s step %d: fires %dms apart", odr, step, clock.Millis()-lastFire)
					}
					fires++
					lastFire = clock.Millis()
				}
			}
			// fires land on the first clock reading at or past each
			// interval, so a step that does not divide it stretches the period
			period := (s.Interval() + step - 1) / step * step
			if want := clock.Millis() / period; fires != want {
				t.Errorf("%s step %d: %d fires in %dms, want %d (period %dms)",
					odr, step, fires, clock.Millis(), want, period)
			}
			if s.Fires() != fires {
				t.Errorf("Fires() = %d, counted %d", s.Fires(), fires)
			}
		}
	}
}

// TestScheduler119Hz is the 119 Hz accel+gyro scenario: 6-value frames,
// 12 or 13 fires in 100 ms.
func TestScheduler119Hz(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	var clock utils.ManualClock
	kb := &scriptedKB{}
	s := newTestScheduler(cfg, &clock, kb)

	for i := 0; i < 100; i++ {
		clock.Advance(1)
		s.Step()
	}
	if n := s.Fires(); n != 12 && n != 13 {
		t.Errorf("fires = %d, want 12 or 13", n)
	}
	for _, l := range kb.lens {
		if l != 6 {
			t.Fatalf("frame length %d, want 6", l)
		}
	}
	if uint64(len(kb.lens)) != s.Fires() {
		t.Errorf("classifier ran %d times for %d fires", len(kb.lens), s.Fires())
	}
}

func TestSchedulerFrameLengths(t *testing.T) {
	cases := []struct {
		accel, gyro, mag bool
		want             int
	}{
		{true, false, false, 3},
		{false, true, false, 3},
		{true, true, true, 9},
		{false, false, true, 3},
	}
	for _, c := range cases {
		cfg := utils.DefaultBridgeConfig()
		cfg.Sensors.Accel.Enabled, cfg.Sensors.Gyro.Enabled, cfg.Sensors.Mag.Enabled = c.accel, c.gyro, c.mag
		cfg.Sensors.MagODR = "50hz"
		if err := cfg.Validate(); err != nil {
			t.Fatal(err)
		}
		var clock utils.ManualClock
		kb := &scriptedKB{}
		s := newTestScheduler(cfg, &clock, kb)
		clock.Advance(200)
		s.Step()
		if len(kb.lens) != 1 || kb.lens[0] != c.want {
			t.Errorf("%+v: lens = %v, want [%d]", c, kb.lens, c.want)
		}
	}
}

// TestSensorsODRWiring verifies a disabled partner group is switched off.
func TestSensorsODRWiring(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	cfg.Sensors.Gyro.Enabled = false
	cfg.Sensors.AccelGyroODR = "238hz"
	cfg.Validate()

	imu := ingest.NewSimulatedIMU(false, 1)
	sc := NewSensorsController(cfg, imu, nil, nil)
	if err := sc.Start(); err != nil {
		t.Fatal(err)
	}
	if imu.ODR(models.GroupAccel) != models.ODR238Hz || imu.ODR(models.GroupGyro) != models.ODROff ||
		imu.ODR(models.GroupMag) != models.ODROff {
		t.Errorf("odr accel=%s gyro=%s mag=%s", imu.ODR(models.GroupAccel), imu.ODR(models.GroupGyro), imu.ODR(models.GroupMag))
	}
	if sc.Interval() != 4 {
		t.Errorf("interval = %d, want 4", sc.Interval())
	}
}

// ─── output router ──────────────────────────────────────────────────────

func alwaysConnected() models.ConnectionState { return models.Connected }

// stickyPeripheral keeps reporting subscriptions after the link drops.
type stickyPeripheral struct {
	*transport.SimPeripheral
}

func (stickyPeripheral) Subscribed(transport.Channel) bool { return true }

func connectedSim(t *testing.T, subs ...transport.Channel) *transport.SimPeripheral {
	t.Helper()
	p := transport.NewSimPeripheral("AA:AA:AA:AA:AA:AA", true)
	p.Begin()
	p.Advertise()
	p.Connect("CE:00")
	for _, c := range subs {
		p.Subscribe(c)
	}
	p.Poll()
	return p
}

// TestRouterFeaturesOnly covers a features-only subscriber: one 8-byte
// record, nothing on the class channel.
func TestRouterFeaturesOnly(t *testing.T) {
	p := connectedSim(t, transport.ChannelFeatures)
	r := NewWirelessRouter(p, alwaysConnected)
	r.Route(models.ClassificationResult{ModelIndex: 0, ClassID: 1}, models.FeatureVector{0x05, 0x0A})

	got := p.Sent(transport.ChannelFeatures)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x00, 0x00, 0x01, 0x00, 0x02, 0x00, 0x05, 0x0A}) {
		t.Errorf("features records = % x", got)
	}
	if n := len(p.Sent(transport.ChannelClass)); n != 0 {
		t.Errorf("class records = %d, want 0", n)
	}
}

func TestRouterNoSubscriber(t *testing.T) {
	p := connectedSim(t)
	r := NewWirelessRouter(p, alwaysConnected)
	for class := uint16(0); class < 10; class++ {
		r.Route(models.ClassificationResult{ClassID: class}, models.FeatureVector{1, 2, 3})
	}
	for _, c := range transport.Channels {
		if n := len(p.Sent(c)); n != 0 {
			t.Errorf("%s: %d records sent without subscriber", c, n)
		}
	}
	s := r.Stats()
	if s.Results != 10 || s.Skipped[transport.ChannelClass] != 10 || s.Skipped[transport.ChannelFeatures] != 10 {
		t.Errorf("stats = %+v", s)
	}
}

// TestRouterEmptyFeatures verifies no features record for an empty
// vector even with a subscriber, while the class record still goes out.
func TestRouterEmptyFeatures(t *testing.T) {
	p := connectedSim(t, transport.ChannelFeatures, transport.ChannelClass)
	r := NewWirelessRouter(p, alwaysConnected)
	r.Route(models.ClassificationResult{ModelIndex: 1, ClassID: 2}, nil)

	if n := len(p.Sent(transport.ChannelFeatures)); n != 0 {
		t.Errorf("features records = %d, want 0", n)
	}
	got := p.Sent(transport.ChannelClass)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{1, 0, 2, 0}) {
		t.Errorf("class records = % x", got)
	}
}

// TestRouterGatedOnConnectionState verifies nothing is notified once the
// tracker has seen the central leave, whatever the peripheral says about
// subscriptions.
func TestRouterGatedOnConnectionState(t *testing.T) {
	sim := transport.NewSimPeripheral("AA:AA:AA:AA:AA:AA", true)
	p := stickyPeripheral{sim}
	var clock utils.ManualClock
	tr := NewConnectionTracker(p, transport.NewLEDIndicator(), &clock, DiagnosticIntervalMs)
	sim.Begin()
	sim.Advertise()
	tr.Start()
	r := NewWirelessRouter(p, tr.State)

	r.Route(models.ClassificationResult{ClassID: 1}, models.FeatureVector{9})
	sim.Connect("CE:00")
	sim.Subscribe(transport.ChannelFeatures)
	sim.Subscribe(transport.ChannelClass)
	tr.Step()
	r.Route(models.ClassificationResult{ClassID: 2}, models.FeatureVector{9})
	sim.Disconnect()
	tr.Step()
	r.Route(models.ClassificationResult{ClassID: 3}, models.FeatureVector{9})

	for _, c := range transport.Channels {
		if n := len(sim.Sent(c)); n != 1 {
			t.Errorf("%s: %d records sent, want 1 (connected window only)", c, n)
		}
	}
	s := r.Stats()
	if s.Skipped[transport.ChannelClass] != 2 || s.Skipped[transport.ChannelFeatures] != 2 || s.Failed[transport.ChannelClass] != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestRouterBothChannels(t *testing.T) {
	p := connectedSim(t, transport.ChannelFeatures, transport.ChannelClass)
	r := NewWirelessRouter(p, alwaysConnected)
	r.Route(models.ClassificationResult{ClassID: 3}, models.FeatureVector{7})
	if len(p.Sent(transport.ChannelFeatures)) != 1 || len(p.Sent(transport.ChannelClass)) != 1 {
		t.Error("both subscribers should get a record")
	}
}

func TestSerialRouter(t *testing.T) {
	var out bytes.Buffer
	r := NewSerialRouter(transport.NewSerialConsole(&out), nil, nil)
	r.Route(models.ClassificationResult{ModelIndex: 0, ClassID: 2}, models.FeatureVector{5})
	want := `{"ModelNumber":0,"Classification":2,"FeatureLength":1,"FeatureVector":[5]}` + "\n"
	if out.String() != want {
		t.Errorf("line = %q, want %q", out.String(), want)
	}

	out.Reset()
	kb := &scriptedKB{cycles: []uint32{11, 22}}
	r = NewSerialRouter(transport.NewSerialConsole(&out), nil, kb)
	r.Route(models.ClassificationResult{ModelIndex: 0, ClassID: 2}, nil)
	if out.String() != `{"ModelNumber":0,"Cycles":[11,22]}`+"\n" {
		t.Errorf("profile line = %q", out.String())
	}
}

// ─── connection tracker ─────────────────────────────────────────────────

func TestConnectionTracker(t *testing.T) {
	var clock utils.ManualClock
	p := transport.NewSimPeripheral("AA:AA:AA:AA:AA:AA", false)
	p.Begin()
	p.Advertise()
	led := transport.NewLEDIndicator()
	tr := NewConnectionTracker(p, led, &clock, DiagnosticIntervalMs)
	tr.Start()

	if tr.State() != models.Disconnected || led.State() != models.Disconnected {
		t.Fatal("initial state must be disconnected")
	}

	diagnostics := 0
	run := func(ms int) {
		for i := 0; i < ms; i++ {
			clock.Advance(1)
			if tr.Step() {
				diagnostics++
			}
		}
	}

	run(12000)
	if diagnostics != 2 {
		t.Errorf("diagnostics while idle = %d, want 2", diagnostics)
	}

	for cycle := 0; cycle < 3; cycle++ {
		p.Connect("CE:01")
		diagnostics = 0
		run(11000)
		if diagnostics != 0 {
			t.Errorf("cycle %d: %d diagnostics while connected", cycle, diagnostics)
		}
		if tr.State() != models.Connected || led.State() != models.Connected {
			t.Errorf("cycle %d: state %s led %s", cycle, tr.State(), led.State())
		}
		if r, g := led.Pins(); r != transport.High || g != transport.Low {
			t.Errorf("connected pins red=%v green=%v", r, g)
		}

		p.Disconnect()
		run(1)
		if tr.State() != models.Disconnected || led.State() != models.Disconnected {
			t.Errorf("cycle %d: state after disconnect %s", cycle, tr.State())
		}
		if !p.Connectable() {
			t.Errorf("cycle %d: not connectable after disconnect", cycle)
		}
	}
	connects, disconnects, _ := tr.Stats()
	if connects != 3 || disconnects != 3 {
		t.Errorf("connects=%d disconnects=%d", connects, disconnects)
	}
}

// ─── bridge ─────────────────────────────────────────────────────────────

// TestBridgeEndToEnd runs 100 ms of the 119 Hz build with a central
// subscribed to features only.
func TestBridgeEndToEnd(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	var clock utils.ManualClock
	p := transport.NewSimPeripheral("AA:AA:AA:AA:AA:AA", true)
	kb := &scriptedKB{res: models.ClassificationResult{ModelIndex: 0, ClassID: 1}, fv: models.FeatureVector{0x05, 0x0A}}

	b := newTestBridge(t, cfg, BridgeDeps{
		Clock:      &clock,
		Driver:     ingest.NewSimulatedIMU(false, 1),
		Classifier: kb,
		Peripheral: p,
	})
	if err := b.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	p.Connect("CE:02")
	p.Subscribe(transport.ChannelFeatures)

	for i := 0; i < 100; i++ {
		clock.Advance(1)
		b.Step()
	}

	s := b.Stats()
	if s.Fires != 12 && s.Fires != 13 {
		t.Errorf("fires = %d", s.Fires)
	}
	if s.State != models.Connected {
		t.Errorf("state = %s", s.State)
	}
	sent := p.Sent(transport.ChannelFeatures)
	if uint64(len(sent)) != s.Fires {
		t.Errorf("features records = %d for %d fires", len(sent), s.Fires)
	}
	for _, rec := range sent {
		if !bytes.Equal(rec, []byte{0, 0, 1, 0, 2, 0, 5, 10}) {
			t.Fatalf("record = % x", rec)
		}
	}
	if n := len(p.Sent(transport.ChannelClass)); n != 0 {
		t.Errorf("class records = %d", n)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestBridgeAudio(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	cfg.Sensors.Accel.Enabled, cfg.Sensors.Gyro.Enabled = false, false
	cfg.Audio.Enabled = true
	cfg.Audio.BufferSamples = 8
	cfg.Transport.Mode = utils.TransportSerial
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	mic := &manualAudio{}
	kb := &scriptedKB{silent: true}
	b := newTestBridge(t, cfg, BridgeDeps{
		Clock:      &utils.ManualClock{},
		Audio:      mic,
		Classifier: kb,
		Console:    transport.NewSerialConsole(&out),
	})
	if err := b.Start(t.Context()); err != nil {
		t.Fatal(err)
	}

	mic.push([]int16{1, 2, 3})
	mic.push([]int16{4}) // overrun: previous chunk not drained yet
	b.Step()
	b.Step()
	mic.push([]int16{5, 6})
	b.Step()

	if len(kb.lens) != 5 {
		t.Fatalf("classifier calls = %d, want 5 (one per sample)", len(kb.lens))
	}
	for _, l := range kb.lens {
		if l != 1 {
			t.Fatalf("audio frame length %d", l)
		}
	}
	if s := b.Stats(); s.AudioSamples != 5 || s.Fires != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestBridgeSerialProfiler(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	cfg.Transport.Mode = utils.TransportSerial
	cfg.Profiler = true

	var out bytes.Buffer
	var clock utils.ManualClock
	kb := &scriptedKB{res: models.ClassificationResult{ClassID: 2}, cycles: []uint32{3, 4}}
	b := newTestBridge(t, cfg, BridgeDeps{
		Clock:      &clock,
		Driver:     ingest.NewSimulatedIMU(false, 1),
		Classifier: kb,
		Console:    transport.NewSerialConsole(&out),
	})
	if err := b.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	clock.Advance(8)
	b.Step()
	clock.Advance(8)
	b.Step()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != `{"ModelNumber":0,"Cycles":[3,4]}` {
		t.Errorf("lines = %q", lines)
	}
}

func TestBridgeFatalInit(t *testing.T) {
	cases := map[string]func() (BridgeDeps, string){
		"imu": func() (BridgeDeps, string) {
			return BridgeDeps{
				Driver:     ingest.NewSimulatedIMU(true, 1),
				Classifier: &scriptedKB{},
				Peripheral: transport.NewSimPeripheral("x", false),
			}, "imu"
		},
		"ble": func() (BridgeDeps, string) {
			p := transport.NewSimPeripheral("x", false)
			p.FailBegin()
			return BridgeDeps{
				Driver:     ingest.NewSimulatedIMU(false, 1),
				Classifier: &scriptedKB{},
				Peripheral: p,
			}, "ble"
		},
		"classifier": func() (BridgeDeps, string) {
			return BridgeDeps{
				Driver:     ingest.NewSimulatedIMU(false, 1),
				Classifier: &scriptedKB{failInit: true},
				Peripheral: transport.NewSimPeripheral("x", false),
			}, "classifier"
		},
	}
	for name, mk := range cases {
		t.Run(name, func(t *testing.T) {
			deps, component := mk()
			b := newTestBridge(t, utils.DefaultBridgeConfig(), deps)
			err := b.Start(t.Context())
			var fatal *FatalInitError
			if !errors.As(err, &fatal) || fatal.Component != component {
				t.Fatalf("Start = %v, want FatalInitError(%s)", err, component)
			}
			if name == "imu" && !errors.Is(err, ingest.ErrSensorInit) {
				t.Errorf("sensor failure should wrap ErrSensorInit: %v", err)
			}
			if name == "ble" && !errors.Is(err, transport.ErrStackInit) {
				t.Errorf("stack failure should wrap ErrStackInit: %v", err)
			}
			if err := b.Run(t.Context()); err == nil {
				t.Error("Run after failed Start should refuse")
			}
		})
	}
}

func TestNewBridgeControllerRejects(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	if _, err := NewBridgeController(cfg, BridgeDeps{Classifier: &scriptedKB{}}); err == nil {
		t.Error("wireless mode without peripheral accepted")
	}
	cfg.Transport.Mode = utils.TransportSerial
	if _, err := NewBridgeController(cfg, BridgeDeps{Classifier: &scriptedKB{}}); err == nil {
		t.Error("serial mode without console accepted")
	}
	if _, err := NewBridgeController(cfg, BridgeDeps{}); err == nil {
		t.Error("missing classifier accepted")
	}
}

func TestBuildDeps(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	deps, err := BuildDeps(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := deps.Peripheral.(*transport.SimPeripheral); !ok {
		t.Errorf("peripheral = %T", deps.Peripheral)
	}
	if _, ok := deps.Classifier.(*classifier.PatternMatcher); !ok {
		t.Errorf("classifier = %T", deps.Classifier)
	}
	if _, ok := deps.Driver.(*ingest.SimulatedIMU); !ok {
		t.Errorf("driver = %T", deps.Driver)
	}
}

// ─── frame recorder ─────────────────────────────────────────────────────

func testRecordConfig(t *testing.T) utils.RecordConfig {
	return utils.RecordConfig{
		Dir:           t.TempDir(),
		SessionPrefix: "test",
		QueueFrames:   64,
		FlushMs:       10,
	}
}

// TestBridgeRecordsFrames verifies every dispatched motion frame reaches
// frames.csv with its tick timestamp.
func TestBridgeRecordsFrames(t *testing.T) {
	cfg := utils.DefaultBridgeConfig()
	cfg.Transport.Mode = utils.TransportSerial
	rec, err := NewFrameRecorder(testRecordConfig(t), views.FrameColumns(cfg.Groups().Enabled(), false))
	if err != nil {
		t.Fatal(err)
	}

	var clock utils.ManualClock
	b := newTestBridge(t, cfg, BridgeDeps{
		Clock:      &clock,
		Driver:     ingest.NewSimulatedIMU(false, 1),
		Classifier: &scriptedKB{silent: true},
		Console:    transport.NewSerialConsole(&bytes.Buffer{}),
		Recorder:   rec,
	})
	if err := b.Start(t.Context()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		clock.Advance(1)
		b.Step()
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(rec.SessionDir(), "frames.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if lines[0] != "timestamp_ms,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 1+5 {
		t.Fatalf("rows = %d, want 5", len(lines)-1)
	}
	for i, l := range lines[1:] {
		fields := strings.Split(l, ",")
		if len(fields) != 7 {
			t.Errorf("row %d has %d fields", i, len(fields))
		}
		if want := []string{"8", "16", "24", "32", "40"}[i]; fields[0] != want {
			t.Errorf("row %d timestamp = %s, want %s", i, fields[0], want)
		}
	}
	offered, written, dropped := rec.Stats()
	if offered != 5 || written != 5 || dropped != 0 {
		t.Errorf("offered=%d written=%d dropped=%d", offered, written, dropped)
	}
}

func TestFrameRecorderDropsWhenFull(t *testing.T) {
	cfg := testRecordConfig(t)
	cfg.QueueFrames = 2
	rec, err := NewFrameRecorder(cfg, []string{"timestamp_ms", "sample"})
	if err != nil {
		t.Fatal(err)
	}
	// not started: nothing consumes the queue
	for i := 0; i < 5; i++ {
		rec.Offer(uint64(i), []int16{int16(i)})
	}
	if err := rec.Stop(); err != nil {
		t.Fatal(err)
	}
	offered, written, dropped := rec.Stats()
	if offered != 5 || written != 2 || dropped != 3 {
		t.Errorf("offered=%d written=%d dropped=%d", offered, written, dropped)
	}
}

func TestFrameRecorderSessionExists(t *testing.T) {
	cfg := testRecordConfig(t)
	first, err := NewFrameRecorder(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Stop()
	if _, err := NewFrameRecorder(cfg, nil); err == nil && filepath.Base(first.SessionDir()) == utils.SessionName(cfg.SessionPrefix) {
		t.Error("existing session directory reused without overwrite")
	}
}
