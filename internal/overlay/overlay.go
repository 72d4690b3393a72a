// Package overlay implements the visual entities bound to map features:
// scaled/rotated vessel icons, fixed-size sensor markers and history tracks.
// Each overlay owns exactly one feature, is created on first sighting of an
// identity and mutated in place on every subsequent sighting.
package overlay

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/render"
)

const (
	// baseIconSizePx is the native pixel size the icon scale factor is
	// relative to.
	baseIconSizePx = 20

	// labelZoomThreshold: identity labels are drawn only when the view is
	// zoomed in past this level.
	labelZoomThreshold = 13

	// Fallback physical dimensions (meters) when the feed does not carry
	// vessel dimensions.
	defaultWidthM  = 10
	defaultLengthM = 20
)

var (
	tintConnected    = render.Color{R: 0, G: 255, B: 0, A: 0.3}
	tintDisconnected = render.Color{R: 255, G: 0, B: 0, A: 0.3}
	tintUnknown      = render.Color{R: 128, G: 128, B: 128, A: 0.3}
)

// IconResolver checks that an icon image can be loaded. A nil resolver
// assumes success; a resolver error switches the overlay to the fallback
// triangle marker so the entity is never invisible.
type IconResolver func(url string) error

// VesselConfig is the full initial state for a vessel overlay.
type VesselConfig struct {
	Identity   string
	Position   geo.LonLat
	WidthM     float64
	LengthM    float64
	Heading    float64
	Speed      float64
	WaterDepth float64
	GPSQuality string
	Status     core.Status
	LastUpdate time.Time
	IconURL    string
	Resolver   IconResolver
}

// Vessel renders one vessel as a real-world-scaled, heading-rotated icon.
type Vessel struct {
	mu      sync.Mutex
	canvas  render.Canvas
	feature render.Feature
	st      core.EntityState
	widthM  float64
	lengthM float64
	iconURL string
	iconOK  bool
	unsub   func()
	removed bool
}

// NewVessel validates the initial position, resolves the icon and places the
// feature on the canvas. The overlay re-styles itself on every view change
// because the icon scale depends on latitude and zoom.
func NewVessel(canvas render.Canvas, cfg VesselConfig) (*Vessel, error) {
	if !cfg.Position.Valid() {
		return nil, fmt.Errorf("vessel %s: %w", cfg.Identity, geo.ErrInvalidCoordinates)
	}
	if cfg.WidthM <= 0 {
		cfg.WidthM = defaultWidthM
	}
	if cfg.LengthM <= 0 {
		cfg.LengthM = defaultLengthM
	}
	if cfg.Status == "" {
		cfg.Status = core.StatusUnknown
	}

	iconOK := true
	if cfg.Resolver != nil {
		if err := cfg.Resolver(cfg.IconURL); err != nil {
			iconOK = false
		}
	}

	v := &Vessel{
		canvas: canvas,
		st: core.EntityState{
			Identity:   cfg.Identity,
			Position:   cfg.Position,
			Heading:    cfg.Heading,
			Speed:      cfg.Speed,
			WaterDepth: cfg.WaterDepth,
			GPSQuality: cfg.GPSQuality,
			Status:     cfg.Status,
			LastUpdate: cfg.LastUpdate,
		},
		widthM:  cfg.WidthM,
		lengthM: cfg.LengthM,
		iconURL: cfg.IconURL,
		iconOK:  iconOK,
	}

	v.feature = canvas.AddFeature(geo.PointFrom(cfg.Position).AsGeometry(), v.styleLocked())
	v.unsub = canvas.View().OnChange(v.restyle)
	return v, nil
}

// Update applies a partial state update and redraws. Position changes snap
// directly; Animated wraps this with interpolation.
func (v *Vessel) Update(p core.StatePatch) error {
	if p.Empty() {
		return nil
	}
	if p.Position != nil && !p.Position.Valid() {
		return fmt.Errorf("vessel %s: %w", v.Identity(), geo.ErrInvalidCoordinates)
	}

	v.mu.Lock()
	v.applyStaticLocked(p)
	if p.Position != nil {
		v.st.Position = *p.Position
	}
	if p.Heading != nil {
		v.st.Heading = *p.Heading
	}
	pos := v.st.Position
	style := v.styleLocked()
	v.mu.Unlock()

	v.feature.SetGeometry(geo.PointFrom(pos).AsGeometry())
	v.feature.SetStyle(style)
	return nil
}

// applyStaticLocked copies the non-kinematic fields of a patch into the
// current state. Caller holds v.mu.
func (v *Vessel) applyStaticLocked(p core.StatePatch) {
	if p.Speed != nil {
		v.st.Speed = *p.Speed
	}
	if p.WaterDepth != nil {
		v.st.WaterDepth = *p.WaterDepth
	}
	if p.GPSQuality != nil {
		v.st.GPSQuality = *p.GPSQuality
	}
	if p.Status != nil {
		v.st.Status = *p.Status
	}
	if p.LastUpdate != nil {
		v.st.LastUpdate = *p.LastUpdate
	}
}

// setPose is the animation-frame write path: position and heading only.
func (v *Vessel) setPose(pos geo.LonLat, heading float64) {
	v.mu.Lock()
	v.st.Position = pos
	v.st.Heading = heading
	style := v.styleLocked()
	v.mu.Unlock()

	v.feature.SetGeometry(geo.PointFrom(pos).AsGeometry())
	v.feature.SetStyle(style)
}

func (v *Vessel) restyle() {
	v.mu.Lock()
	if v.removed {
		v.mu.Unlock()
		return
	}
	style := v.styleLocked()
	v.mu.Unlock()
	v.feature.SetStyle(style)
}

// styleLocked computes the current style. Caller holds v.mu.
func (v *Vessel) styleLocked() render.Style {
	zoom := v.canvas.View().Zoom()
	scale := geo.IconScale(v.widthM, v.st.Position.Lat, zoom, baseIconSizePx)

	var tint render.Color
	switch v.st.Status {
	case core.StatusConnected:
		tint = tintConnected
	case core.StatusDisconnected:
		tint = tintDisconnected
	default:
		tint = tintUnknown
	}

	s := render.Style{
		Shape:    render.ShapeIcon,
		IconURL:  v.iconURL,
		Scale:    scale,
		Rotation: v.st.Heading * math.Pi / 180,
		Tint:     tint,
		Visible:  true,
	}
	if !v.iconOK {
		s.Shape = render.ShapeTriangle
	}
	if zoom > labelZoomThreshold {
		s.Label = &render.Label{
			Text:       v.st.Identity,
			FontSizePx: math.Max(14*(scale*0.8), 12),
			OffsetY:    -(v.lengthM*scale)/2 - 10,
		}
	}
	return s
}

// Identity returns the overlay's registry key.
func (v *Vessel) Identity() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.st.Identity
}

// Rendered returns a copy of the currently rendered state, which may be a
// mid-animation pose.
func (v *Vessel) Rendered() core.EntityState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.st
}

// Summary is the denormalized view republished to the search index.
func (v *Vessel) Summary() core.Summary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return core.Summary{
		Identity:   v.st.Identity,
		Position:   v.st.Position,
		Heading:    v.st.Heading,
		Speed:      v.st.Speed,
		Status:     v.st.Status,
		LastUpdate: v.st.LastUpdate,
	}
}

// IconResolved reports whether the icon loaded or the overlay is on the
// fallback marker.
func (v *Vessel) IconResolved() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.iconOK
}

// Remove detaches the overlay from the canvas. Called only on registry
// teardown; entities are not removed mid-session.
func (v *Vessel) Remove() {
	v.mu.Lock()
	if v.removed {
		v.mu.Unlock()
		return
	}
	v.removed = true
	unsub := v.unsub
	v.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	v.canvas.RemoveFeature(v.feature)
}
