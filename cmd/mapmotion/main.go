// Command mapmotion replays a scenario file through the animation engine
// and records the emission stream with the configured storage backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mapmotion/mapmotion/internal/config"
	"github.com/mapmotion/mapmotion/internal/engine"
	"github.com/mapmotion/mapmotion/internal/influx"
	"github.com/mapmotion/mapmotion/internal/logging"
	"github.com/mapmotion/mapmotion/internal/otel"
	"github.com/mapmotion/mapmotion/internal/recorder"
	"github.com/mapmotion/mapmotion/internal/scenario"
	"github.com/mapmotion/mapmotion/internal/storage"
	"github.com/mapmotion/mapmotion/pkg/core"
	"github.com/mapmotion/mapmotion/pkg/curve"
)

func main() {
	configDir := flag.String("config", ".", "directory containing config.json")
	scenarioPath := flag.String("scenario", "", "scenario JSON file to replay")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mapmotion -scenario <file.json> [-config <dir>]")
		os.Exit(2)
	}

	if err := run(*configDir, *scenarioPath); err != nil {
		fmt.Fprintln(os.Stderr, "mapmotion:", err)
		os.Exit(1)
	}
}

func run(configDir, scenarioPath string) error {
	sessionStart := time.Now()

	logManager := logging.NewManager()
	if err := config.Load(configDir); err != nil {
		// Defaults still apply; continue with console logging only.
		_ = logManager.Setup(nil, "info", "", nil)
		logManager.Logger().Warn("failed to load config, using defaults", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logPath := logging.SessionLogPath(logsDir, sessionStart)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("opening session log: %w", err)
	}
	defer logFile.Close()

	otelProvider, err := otel.New(otel.Config{
		Enabled:      config.GetBool("otel.enabled"),
		ServiceName:  config.GetString("otel.serviceName"),
		BatchTimeout: time.Duration(config.GetInt("otel.batchTimeoutMs")) * time.Millisecond,
		LogWriter:    logFile,
		Endpoint:     config.GetString("otel.endpoint"),
		Insecure:     config.GetBool("otel.insecure"),
	})
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer otelProvider.Shutdown(context.Background())

	gelfAddr := ""
	if config.GetBool("graylog.enabled") {
		gelfAddr = config.GetString("graylog.address")
	}
	if err := logManager.Setup(logFile, config.GetString("logLevel"), gelfAddr, otelProvider.LoggerProvider()); err != nil {
		return fmt.Errorf("logging setup: %w", err)
	}
	log := logManager.Logger()
	log.Info("session log", "path", logPath)

	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		return err
	}
	log.Info("scenario loaded", "name", sc.Name, "steps", len(sc.Steps))

	engCfg, err := engineConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(engCfg, engine.WithLogger(log))
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Close()

	storageCfg, err := config.Storage()
	if err != nil {
		return err
	}
	backend, err := storage.NewBackend(storageCfg, log)
	if err != nil {
		return fmt.Errorf("building storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer backend.Close()
	log.Info("storage backend ready", "type", storageCfg.Type)

	var recOpts []recorder.Option
	recOpts = append(recOpts, recorder.WithLogger(log))
	if config.GetBool("influx.enabled") {
		backupPath := fmt.Sprintf("mapmotion_telemetry_%s.gz", sessionStart.Format("20060102_150405"))
		influxManager := influx.NewManager(zerolog.New(os.Stderr).With().Timestamp().Logger(), backupPath)
		if err := influxManager.Connect(); err != nil {
			log.Warn("influx disabled", "error", err)
		} else {
			defer influxManager.Close()
			recOpts = append(recOpts, recorder.WithInflux(influxManager))
		}
	}

	rec, err := recorder.New(backend, recOpts...)
	if err != nil {
		return fmt.Errorf("building recorder: %w", err)
	}
	defer rec.Close()

	eng.OnRender(rec.Observe)

	info := core.SessionInfo{
		Name:      sc.Name,
		StartedAt: sessionStart,
		Backend:   string(engCfg.Backend),
		Duration:  engCfg.Duration,
		FrameRate: engCfg.FrameRate,
	}
	if err := rec.StartSession(info); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := replay(ctx, log, eng, sc); err != nil {
		_ = rec.EndSession()
		return err
	}

	if err := rec.EndSession(); err != nil {
		return err
	}
	if ex, ok := backend.(storage.Exportable); ok && ex.ExportedFilePath() != "" {
		log.Info("session exported", "path", ex.ExportedFilePath())
	}
	return logManager.Flush(context.Background())
}

// engineConfig translates the file config into a validated engine Config.
func engineConfig() (engine.Config, error) {
	fileCfg, err := config.Engine()
	if err != nil {
		return engine.Config{}, err
	}
	c, err := curve.ByName(fileCfg.Curve)
	if err != nil {
		return engine.Config{}, err
	}

	cfg := engine.Config{
		Backend:  engine.BackendKind(fileCfg.Backend),
		Duration: fileCfg.Duration(),
		Curve:    c,
	}
	// The frame backend takes the host cadence; only the timer backend
	// carries an explicit rate.
	if cfg.Backend == engine.BackendTimer {
		cfg.FrameRate = fileCfg.FrameRate
	}
	return cfg, cfg.Validate()
}
