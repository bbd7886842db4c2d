package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sensor-bridge/controller"
	"sensor-bridge/models"
	"sensor-bridge/services/transport"
	"sensor-bridge/utils"
)

var version = "dev"

func main() {
	v := viper.New()
	v.SetEnvPrefix("SENSOR_BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "sensor-bridge",
		Short: "Bridge a fixed-rate sensor stream to a knowledge pack and stream its classifications",
		Long: `sensor-bridge samples an IMU (or a microphone) at its output data rate,
feeds every frame to a knowledge-pack classifier and forwards each
classification either as binary notifications to a subscribed central
or as one text line per result on a serial console.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
		SilenceUsage: true,
	}

	// ── CLI flags ────────────────────────────────────────────────────
	f := cmd.Flags()
	f.String("config", "config/bridge.yaml", "path to bridge.yaml")
	f.String("model", "", "model metadata JSON (overrides classifier.model_path)")
	f.String("log-level", "", "debug, info, warn or error (overrides log.level)")
	f.String("log-file", "", "optional log file path (stdout is always included)")
	f.Int("duration", 0, "stop after this many seconds (overrides simulation.duration_seconds)")
	f.Bool("record", false, "record raw frames to CSV (overrides record.enabled)")
	f.Bool("sim-central", true, "drive the simulated peripheral with a scripted central")
	_ = v.BindPFlags(f)

	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(1)
	}
}

func run(parent context.Context, v *viper.Viper) error {
	// ── Logger ───────────────────────────────────────────────────────
	logger := utils.InitLogger(utils.INFO, v.GetString("log-file"))
	defer logger.Close()

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  Sensor-Bridge  ·  Knowledge-pack recognition")
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d", runtime.GOMAXPROCS(0), os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")

	// ── Load configs ─────────────────────────────────────────────────
	cfg, err := utils.LoadBridgeConfig(v.GetString("config"))
	if err != nil {
		return err
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.Log.Level = s
	}
	if lvl, ok := utils.ParseLevel(cfg.Log.Level); ok {
		logger.SetLevel(lvl)
	} else {
		utils.L().Warn("unknown log level %q, using INFO", cfg.Log.Level)
	}
	if v.GetBool("record") {
		cfg.Record.Enabled = true
	}
	if d := v.GetInt("duration"); d > 0 {
		cfg.Simulation.DurationSeconds = d
	}

	meta := models.DefaultModelMetadata()
	modelPath := v.GetString("model")
	if modelPath == "" {
		modelPath = cfg.Classifier.ModelPath
	}
	if modelPath != "" {
		if meta, err = models.LoadModelMetadata(modelPath); err != nil {
			return err
		}
	}
	utils.L().Info("model: %s (%d model(s), features=%v)", meta.ModelName(0), meta.NumModels,
		meta.FeatureFunctions(0))

	// ── Context with OS signal cancellation ──────────────────────────
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if d := cfg.Simulation.DurationSeconds; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(d)*time.Second)
		defer cancel()
		utils.L().Info("bridge will auto-stop after %ds", d)
	}

	// ── Assembly ─────────────────────────────────────────────────────
	//
	//  IMU / PDM  ──►  Scheduler  ──►  Dispatcher  ──►  knowledge pack
	//                                                         │ result callback
	//                                                   OutputRouter
	//                                                   │          │
	//                                        notify channels    serial lines
	deps, err := controller.BuildDeps(cfg, meta)
	if err != nil {
		return err
	}
	bridge, err := controller.NewBridgeController(cfg, deps)
	if err != nil {
		return err
	}
	if err := bridge.Start(ctx); err != nil {
		var fatal *controller.FatalInitError
		if errors.As(err, &fatal) {
			utils.Halt(ctx, err)
		}
		return err
	}

	if sim, ok := bridge.Peripheral().(*transport.SimPeripheral); ok && v.GetBool("sim-central") {
		go transport.RunScriptedCentral(ctx, sim, transport.CentralScript{
			Peer:     "5A:11:CE:00:00:01",
			Channels: []transport.Channel{transport.ChannelClass, transport.ChannelFeatures},
		})
		utils.L().Info("scripted central attached to simulated peripheral")
	}

	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()
	utils.L().Info("bridge running, press Ctrl+C to stop")

	// ── Stats ticker ─────────────────────────────────────────────────
	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.L().Info("shutting down…")
			runErr := <-done
			closeErr := bridge.Close()
			utils.L().Info("── final stats ───────────────────")
			bridge.LogStats()
			utils.L().Info("──────────────────────────────────")
			fmt.Println("\n✓ Sensor-Bridge finished.")
			return errors.Join(runErr, closeErr)

		case <-statsTicker.C:
			utils.L().Info("── stats ─────────────────────────")
			bridge.LogStats()
			utils.L().Info("──────────────────────────────────")
		}
	}
}
