// Package ingest consumes the live telemetry feed and routes each batch to
// the vessel and sensor registries. The feed is receive-only; the engine
// never writes application messages back.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/overlay"
	"github.com/harborwatch/harborwatch/internal/parser"
	"github.com/harborwatch/harborwatch/internal/registry"
	"github.com/harborwatch/harborwatch/internal/render"
	"github.com/harborwatch/harborwatch/pkg/feed"
)

// defaultReconnectDelay is the fixed pause between connection attempts. The
// feed is the application's lifeline, so the ingestor retries forever at a
// steady cadence rather than backing off.
const defaultReconnectDelay = time.Second

// TelemetryRecorder receives every accepted sample for time-series storage.
// A nil recorder disables recording.
type TelemetryRecorder interface {
	RecordVesselTelemetry(identity string, st core.EntityState)
	RecordTideReading(sensorID string, r core.TideReading)
}

// Config holds the feed endpoint settings.
type Config struct {
	URL            string
	ReconnectDelay time.Duration
}

// Deps are the collaborators an Ingestor routes into.
type Deps struct {
	Canvas   render.Canvas
	Vessels  *registry.Registry
	Sensors  *registry.Registry
	Parser   *parser.Parser
	Resolver overlay.IconResolver
	Recorder TelemetryRecorder
	Logger   *slog.Logger
}

// Ingestor owns the feed connection and the batch fan-out.
type Ingestor struct {
	cfg  Config
	deps Deps

	processed  metric.Int64Counter
	dropped    metric.Int64Counter
	reconnects metric.Int64Counter
}

// New creates an ingestor and registers its metrics.
func New(cfg Config, deps Deps) (*Ingestor, error) {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	ing := &Ingestor{cfg: cfg, deps: deps}

	m := meter()
	var err error
	ing.processed, err = m.Int64Counter(
		"feed.batches.processed",
		metric.WithDescription("Total feed batches processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	ing.dropped, err = m.Int64Counter(
		"feed.records.dropped",
		metric.WithDescription("Total feed records dropped as malformed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	ing.reconnects, err = m.Int64Counter(
		"feed.reconnects",
		metric.WithDescription("Total feed reconnect attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating reconnects counter: %w", err)
	}
	return ing, nil
}

// Run connects to the feed and processes batches until ctx is cancelled.
// Every connection failure, initial or mid-stream, is followed by the fixed
// reconnect delay and a fresh dial; Run itself never gives up.
func (ing *Ingestor) Run(ctx context.Context) error {
	for {
		conn, _, err := ws.DefaultDialer.DialContext(ctx, ing.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ing.deps.Logger.Warn("Feed dial failed", "url", ing.cfg.URL, "error", err)
			ing.reconnects.Add(ctx, 1)
			if err := ing.pause(ctx); err != nil {
				return err
			}
			continue
		}

		ing.deps.Logger.Info("Feed connected", "url", ing.cfg.URL)
		ing.readLoop(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		ing.reconnects.Add(ctx, 1)
		if err := ing.pause(ctx); err != nil {
			return err
		}
	}
}

func (ing *Ingestor) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(ing.cfg.ReconnectDelay):
		return nil
	}
}

// readLoop consumes messages until the connection drops or ctx is cancelled.
func (ing *Ingestor) readLoop(ctx context.Context, conn *ws.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks ReadMessage
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				ing.deps.Logger.Warn("Feed read error", "error", err)
			}
			return
		}
		ing.HandleMessage(ctx, message)
	}
}

// HandleMessage decodes one feed batch and applies it. Malformed individual
// records are dropped with a warning; one bad vessel never poisons the batch.
func (ing *Ingestor) HandleMessage(ctx context.Context, data []byte) {
	var env feed.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ing.deps.Logger.Warn("Undecodable feed message", "error", err)
		ing.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "envelope")))
		return
	}

	for callSign, snap := range env.Navigation {
		if err := ing.applyVessel(callSign, snap); err != nil {
			ing.deps.Logger.Warn("Dropping vessel record",
				"callSign", callSign, "error", err)
			ing.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "vessel")))
		}
	}
	for id, snap := range env.Sensors {
		if err := ing.applySensor(id, snap); err != nil {
			ing.deps.Logger.Warn("Dropping sensor record", "sensor", id, "error", err)
			ing.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "sensor")))
		}
	}

	ing.processed.Add(ctx, 1)
}

func (ing *Ingestor) applyVessel(callSign string, snap feed.VesselSnapshot) error {
	t := snap.Telemetry
	pos := geo.LonLat{Lon: t.LongitudeDecimal, Lat: t.LatitudeDecimal}
	if !pos.Valid() {
		return fmt.Errorf("position %v,%v: %w", t.LongitudeDecimal, t.LatitudeDecimal, geo.ErrInvalidCoordinates)
	}

	status := core.ParseStatus(t.TelnetStatus)
	lastUpdate, err := parser.ParseTimestamp(t.LastUpdate)
	if err != nil {
		lastUpdate = time.Now().UTC()
	}

	patch := core.StatePatch{
		Position:   &pos,
		Heading:    core.Float(t.HeadingDegree),
		Speed:      core.Float(t.SpeedInKnots),
		WaterDepth: core.Float(t.WaterDepth),
		Status:     core.StatusOf(status),
		LastUpdate: &lastUpdate,
	}
	if t.GPSQuality != "" {
		patch.GPSQuality = core.Str(t.GPSQuality)
	}

	create := func() (registry.Entity, error) {
		v, err := overlay.NewAnimated(ing.deps.Canvas, overlay.VesselConfig{
			Identity:   callSign,
			Position:   pos,
			WidthM:     snap.Vessel.WidthM,
			LengthM:    snap.Vessel.LengthM,
			Heading:    t.HeadingDegree,
			Speed:      t.SpeedInKnots,
			WaterDepth: t.WaterDepth,
			GPSQuality: t.GPSQuality,
			Status:     status,
			LastUpdate: lastUpdate,
			IconURL:    snap.Vessel.MapImage,
			Resolver:   ing.deps.Resolver,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	}

	if err := ing.deps.Vessels.Upsert(callSign, create, patch); err != nil {
		return err
	}

	if ing.deps.Recorder != nil && !ing.deps.Vessels.Suspended(callSign) {
		ing.deps.Recorder.RecordVesselTelemetry(callSign, core.EntityState{
			Identity:   callSign,
			Position:   pos,
			Heading:    t.HeadingDegree,
			Speed:      t.SpeedInKnots,
			WaterDepth: t.WaterDepth,
			GPSQuality: t.GPSQuality,
			Status:     status,
			LastUpdate: lastUpdate,
		})
	}
	return nil
}

func (ing *Ingestor) applySensor(id string, snap feed.SensorSnapshot) error {
	pos, err := geo.ParseLonLat(snap.Longitude, snap.Latitude)
	if err != nil {
		return fmt.Errorf("position %q,%q: %w", snap.Longitude, snap.Latitude, err)
	}

	status := core.ParseStatus(snap.ConnectionStatus)
	lastUpdate, err := parser.ParseTimestamp(snap.LastUpdate)
	if err != nil {
		lastUpdate = time.Now().UTC()
	}

	raw := snap.RawData
	patch := core.StatePatch{
		Position:   &pos,
		Status:     core.StatusOf(status),
		LastUpdate: &lastUpdate,
		RawData:    &raw,
	}

	create := func() (registry.Entity, error) {
		s, err := overlay.NewSensor(ing.deps.Canvas, overlay.SensorConfig{
			ID:         id,
			Position:   pos,
			Types:      snap.Types,
			Status:     status,
			RawData:    raw,
			LastUpdate: lastUpdate,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	if err := ing.deps.Sensors.Upsert(id, create, patch); err != nil {
		return err
	}

	if ing.deps.Recorder != nil && ing.deps.Parser != nil {
		if reading, err := ing.deps.Parser.ParseTideReading(raw); err == nil {
			ing.deps.Recorder.RecordTideReading(id, reading)
		}
	}
	return nil
}
