package overlay

import (
	"fmt"
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/render"
)

// Sensor markers are only drawn inside this zoom window; outside it they
// clutter the basemap without being readable.
const (
	sensorMinZoom = 10
	sensorMaxZoom = 20
)

var (
	sensorConnected    = render.Color{R: 16, G: 185, B: 129, A: 1}
	sensorDisconnected = render.Color{R: 239, G: 68, B: 68, A: 1}
	sensorUnknown      = render.Color{R: 148, G: 163, B: 184, A: 1}
)

// SensorConfig is the initial state for a fixed sensor marker.
type SensorConfig struct {
	ID         string
	Position   geo.LonLat
	Types      []string
	Status     core.Status
	RawData    string
	LastUpdate time.Time
}

// Sensor renders one fixed-position sensor (tide gauge, weather station) as
// a circle marker. Unlike vessels it never animates; position updates, when
// they happen at all, snap.
type Sensor struct {
	mu      sync.Mutex
	canvas  render.Canvas
	feature render.Feature
	st      core.EntityState
	types   []string
	rawData string
	unsub   func()
	removed bool
}

// NewSensor validates the position and places the marker.
func NewSensor(canvas render.Canvas, cfg SensorConfig) (*Sensor, error) {
	if !cfg.Position.Valid() {
		return nil, fmt.Errorf("sensor %s: %w", cfg.ID, geo.ErrInvalidCoordinates)
	}
	if cfg.Status == "" {
		cfg.Status = core.StatusUnknown
	}
	s := &Sensor{
		canvas: canvas,
		st: core.EntityState{
			Identity:   cfg.ID,
			Position:   cfg.Position,
			Status:     cfg.Status,
			LastUpdate: cfg.LastUpdate,
		},
		types:   append([]string(nil), cfg.Types...),
		rawData: cfg.RawData,
	}
	s.feature = canvas.AddFeature(geo.PointFrom(cfg.Position).AsGeometry(), s.styleLocked())
	s.unsub = canvas.View().OnChange(s.restyle)
	return s, nil
}

// Update applies a partial update. The raw payload is retained verbatim so
// the detail panel and the tide parser always see exactly what the sensor
// sent.
func (s *Sensor) Update(p core.StatePatch) error {
	if p.Empty() {
		return nil
	}
	if p.Position != nil && !p.Position.Valid() {
		return fmt.Errorf("sensor %s: %w", s.st.Identity, geo.ErrInvalidCoordinates)
	}

	s.mu.Lock()
	if p.Position != nil {
		s.st.Position = *p.Position
	}
	if p.Status != nil {
		s.st.Status = *p.Status
	}
	if p.LastUpdate != nil {
		s.st.LastUpdate = *p.LastUpdate
	}
	if p.RawData != nil {
		s.rawData = *p.RawData
	}
	pos := s.st.Position
	style := s.styleLocked()
	s.mu.Unlock()

	s.feature.SetGeometry(geo.PointFrom(pos).AsGeometry())
	s.feature.SetStyle(style)
	return nil
}

func (s *Sensor) restyle() {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	style := s.styleLocked()
	s.mu.Unlock()
	s.feature.SetStyle(style)
}

func (s *Sensor) styleLocked() render.Style {
	zoom := s.canvas.View().Zoom()

	var tint render.Color
	switch s.st.Status {
	case core.StatusConnected:
		tint = sensorConnected
	case core.StatusDisconnected:
		tint = sensorDisconnected
	default:
		tint = sensorUnknown
	}

	return render.Style{
		Shape:   render.ShapeCircle,
		Scale:   1,
		Tint:    tint,
		Visible: zoom >= sensorMinZoom && zoom <= sensorMaxZoom,
	}
}

// RawData returns the last unparsed payload.
func (s *Sensor) RawData() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawData
}

// Types returns the sensor's capability tags (tide, weather, ...).
func (s *Sensor) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.types...)
}

// Summary is the search-index view of the sensor.
func (s *Sensor) Summary() core.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.Summary{
		Identity:   s.st.Identity,
		Position:   s.st.Position,
		Status:     s.st.Status,
		LastUpdate: s.st.LastUpdate,
	}
}

// Remove detaches the marker from the canvas.
func (s *Sensor) Remove() {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.removed = true
	unsub := s.unsub
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.canvas.RemoveFeature(s.feature)
}
