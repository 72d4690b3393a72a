// harborwatch runs the live map engine: it ingests the telemetry feed into
// vessel and sensor overlays, and optionally records accepted samples to
// InfluxDB. With -replay or -sensor it instead fetches a history window and
// either replays it or exports it to CSV/XLSX.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/harborwatch/harborwatch/internal/cache"
	"github.com/harborwatch/harborwatch/internal/config"
	"github.com/harborwatch/harborwatch/internal/export"
	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/influx"
	"github.com/harborwatch/harborwatch/internal/ingest"
	"github.com/harborwatch/harborwatch/internal/logging"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/overlay"
	"github.com/harborwatch/harborwatch/internal/panel"
	"github.com/harborwatch/harborwatch/internal/parser"
	"github.com/harborwatch/harborwatch/internal/playback"
	"github.com/harborwatch/harborwatch/internal/registry"
	"github.com/harborwatch/harborwatch/internal/render"
	"github.com/harborwatch/harborwatch/pkg/feed"
)

const appName = "harborwatch"

type options struct {
	configDir    string
	replayVessel string
	replaySensor string
	start        string
	end          string
	interval     int
	speed        float64
	exportFormat string
	outPath      string
}

func main() {
	var opts options
	flag.StringVar(&opts.configDir, "config", ".", "directory containing harborwatch.cfg.json")
	flag.StringVar(&opts.replayVessel, "replay", "", "call sign to replay instead of running live")
	flag.StringVar(&opts.replaySensor, "sensor", "", "sensor id to replay instead of running live")
	flag.StringVar(&opts.start, "start", "", "history window start (RFC3339, default 24h ago)")
	flag.StringVar(&opts.end, "end", "", "history window end (RFC3339, default now)")
	flag.IntVar(&opts.interval, "interval", 1, "vessel history sampling interval in seconds")
	flag.Float64Var(&opts.speed, "speed", 1, "replay speed multiplier, 1 to 10")
	flag.StringVar(&opts.exportFormat, "export", "", "export the window instead of replaying: csv or xlsx")
	flag.StringVar(&opts.outPath, "out", "", "export output path (default derived from identity)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "harborwatch:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := config.Load(opts.configDir); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	center := geo.LonLat{
		Lon: config.GetFloat("map.centerLon"),
		Lat: config.GetFloat("map.centerLat"),
	}
	if !center.Valid() {
		return fmt.Errorf("map center %v,%v: %w", center.Lon, center.Lat, geo.ErrInvalidCoordinates)
	}
	canvas := render.NewHeadless(geo.Project(center), config.GetFloat("map.zoom"))

	p := parser.NewParser(logger)

	if opts.replayVessel != "" || opts.replaySensor != "" {
		return runReplay(ctx, opts, canvas, p, logger)
	}
	return runLive(ctx, canvas, p, logger)
}

// setupLogging opens the session log file and, when enabled, the Graylog
// writer, and returns the configured logger.
func setupLogging() (*slog.Logger, func(), error) {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, appName, time.Now().UTC())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	var gelf io.Writer
	if config.GetBool("graylog.enabled") {
		gelf, err = logging.NewGelfWriter(config.GetString("graylog.address"))
		if err != nil {
			// Graylog being down should not keep the map off the screen.
			fmt.Fprintln(os.Stderr, "harborwatch: graylog unavailable:", err)
			gelf = nil
		}
	}

	mgr := logging.NewSlogManager()
	mgr.Setup(file, config.GetString("logLevel"), gelf)
	return mgr.Logger(), func() { _ = file.Close() }, nil
}

// runLive connects the ingestor to the configured transport and blocks until
// the process is signalled.
func runLive(ctx context.Context, canvas render.Canvas, p *parser.Parser, logger *slog.Logger) error {
	vessels := registry.New()
	sensors := registry.New()
	defer vessels.Teardown()
	defer sensors.Teardown()

	var recorder ingest.TelemetryRecorder
	if config.GetBool("influx.enabled") {
		zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
		rec, err := influx.Connect(ctx, zl)
		if err != nil {
			logger.Warn("Running without telemetry recording", "error", err)
		} else {
			recorder = rec
			defer rec.Close()
		}
	}

	icons := cache.NewIconCache(nil)
	ing, err := ingest.New(
		ingest.Config{
			URL:            config.GetString("feed.url"),
			ReconnectDelay: time.Duration(config.GetInt("feed.reconnectDelaySeconds")) * time.Second,
		},
		ingest.Deps{
			Canvas:   canvas,
			Vessels:  vessels,
			Sensors:  sensors,
			Parser:   p,
			Resolver: icons.Resolve,
			Recorder: recorder,
			Logger:   logger,
		},
	)
	if err != nil {
		return fmt.Errorf("creating ingestor: %w", err)
	}

	switch transport := config.GetString("feed.transport"); transport {
	case "websocket":
		err = ing.Run(ctx)
	case "mqtt":
		err = ing.RunMQTT(ctx, ingest.MQTTConfig{
			Broker:   config.GetString("mqtt.broker"),
			Port:     config.GetInt("mqtt.port"),
			Topic:    config.GetString("mqtt.topic"),
			Username: config.GetString("mqtt.username"),
			Password: config.GetString("mqtt.password"),
			UseTLS:   config.GetBool("mqtt.useTLS"),
		})
	default:
		return fmt.Errorf("unknown feed.transport %q", transport)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutting down")
	return nil
}

// runReplay fetches the requested history window and either exports it or
// replays it through a session until the buffer is exhausted.
func runReplay(ctx context.Context, opts options, canvas render.Canvas, p *parser.Parser, logger *slog.Logger) error {
	start, end, err := parseWindow(opts.start, opts.end)
	if err != nil {
		return err
	}
	ctrl := playback.NewController(config.GetString("history.baseUrl"), p, logger)

	identity := opts.replayVessel
	isVessel := identity != ""
	if !isVessel {
		identity = opts.replaySensor
	}

	if opts.exportFormat != "" {
		return exportWindow(ctx, ctrl, identity, isVessel, start, end, opts)
	}

	pnl := logPanel{logger: logger}
	cfg := playback.SessionConfig{
		Identity:    identity,
		Sink:        panel.SinkAdapter{Panel: pnl},
		IntervalSec: opts.interval,
	}
	var session *playback.Session
	if isVessel {
		cfg.Registry = registry.New()
		cfg.Track = overlay.NewTrack(canvas)
		session, err = ctrl.OpenVesselSession(ctx, cfg, start, end)
	} else {
		session, err = ctrl.OpenSensorSession(ctx, cfg, start, end)
	}
	if err != nil {
		pnl.ShowError(identity, err.Error())
		return fmt.Errorf("opening replay session: %w", err)
	}
	defer session.Close()

	session.SetSpeed(opts.speed)
	session.Play()
	logger.Info("Replay started",
		"identity", identity, "records", len(session.Samples()), "speed", session.Speed())

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for session.Playing() {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	logger.Info("Replay finished", "identity", identity)
	return nil
}

func exportWindow(ctx context.Context, ctrl *playback.Controller, identity string, isVessel bool, start, end time.Time, opts options) error {
	var samples []core.HistorySample
	var err error
	if isVessel {
		samples, err = ctrl.FetchVesselHistory(ctx, identity, start, end, opts.interval, nil)
	} else {
		samples, err = ctrl.FetchSensorHistory(ctx, identity, start, end, nil)
	}
	if err != nil {
		return fmt.Errorf("fetching history: %w", err)
	}
	if len(samples) == 0 {
		return playback.ErrNoRecords
	}

	format := strings.ToLower(opts.exportFormat)
	path := opts.outPath
	if path == "" {
		dir := config.GetString("export.outputDir")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating export dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s.%s", identity, start.UTC().Format("20060102_150405"), format)
		path = filepath.Join(dir, name)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	switch {
	case format == "csv" && isVessel:
		err = export.WriteVesselCSV(f, samples)
	case format == "csv":
		err = export.WriteSensorCSV(f, samples)
	case format == "xlsx" && isVessel:
		err = export.WriteVesselXLSX(f, samples)
	case format == "xlsx":
		err = export.WriteSensorXLSX(f, samples)
	default:
		return fmt.Errorf("unknown export format %q", opts.exportFormat)
	}
	if err != nil {
		return err
	}
	fmt.Printf("exported %d records to %s\n", len(samples), path)
	return nil
}

func parseWindow(startArg, endArg string) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if endArg != "" {
		t, err := time.Parse(time.RFC3339, endArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing -end: %w", err)
		}
		end = t
	}
	start := end.Add(-24 * time.Hour)
	if startArg != "" {
		t, err := time.Parse(time.RFC3339, startArg)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing -start: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("window start %s is not before end %s", start, end)
	}
	return start, end, nil
}

// logPanel mirrors detail panel events into the log, standing in for the UI
// frontend a deployment would attach.
type logPanel struct {
	logger *slog.Logger
}

func (p logPanel) ShowVessel(info feed.VesselInfo, st core.EntityState) {
	p.logger.Info("Vessel selected",
		"identity", st.Identity, "flag", info.Flag, "status", string(st.Status))
}

func (p logPanel) ShowSensor(id string, types []string, raw string) {
	p.logger.Info("Sensor selected", "sensor", id, "types", types, "raw", raw)
}

func (p logPanel) ShowHistorySample(identity string, sample core.HistorySample, index, total int) {
	p.logger.Info("Replay sample",
		"identity", identity,
		"index", index,
		"total", total,
		"time", sample.Time.Format(time.RFC3339),
	)
}

func (p logPanel) ShowError(identity string, message string) {
	p.logger.Error("History fetch failed", "identity", identity, "message", message)
}

func (p logPanel) Hide() {}
