// Package render is the boundary to the map-drawing library. The engine only
// needs a small capability surface: place features with a style at projected
// coordinates, anchor text markers, and observe/animate the view. The real
// rendering pipeline lives outside this module; Headless is the in-process
// implementation the engine and its tests run against.
package render

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Shape selects the marker geometry drawn for a point feature.
type Shape int

const (
	// ShapeIcon renders the entity's icon image, scaled and rotated.
	ShapeIcon Shape = iota
	// ShapeTriangle is the fallback marker when the icon cannot be
	// resolved; the overlay must never be invisible.
	ShapeTriangle
	// ShapeCircle is the fixed-size sensor marker.
	ShapeCircle
	// ShapeLine draws the feature's LineString geometry.
	ShapeLine
)

// Color is an RGBA tuple; A is opacity in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

// Label is optional feature text (the identity label above an icon).
type Label struct {
	Text       string
	FontSizePx float64
	OffsetY    float64
}

// Style describes how a feature is drawn. Recomputed by the owning overlay
// on every state or view change.
type Style struct {
	Shape     Shape
	IconURL   string
	Scale     float64
	Rotation  float64 // radians, clockwise
	Tint      Color
	LineWidth float64
	LineDash  []float64
	Visible   bool
	Label     *Label
}

// Feature is one drawable handle, bound 1:1 to an entity or path. Geometry
// is in projected (EPSG:3857) coordinates.
type Feature interface {
	SetGeometry(geom.Geometry)
	Geometry() geom.Geometry
	SetStyle(Style)
	Style() Style
}

// Text is a free-standing text marker (measurement segment labels).
type Text interface {
	SetPosition(geom.XY)
	Position() geom.XY
	SetText(string)
	Text() string
}

// View is the camera: zoom and center, change notification, and animated
// moves (zoom-to-entity).
type View interface {
	Zoom() float64
	Center() geom.XY
	SetZoom(zoom float64)
	SetCenter(center geom.XY)
	AnimateTo(center geom.XY, zoom float64, duration time.Duration)
	// OnChange registers a callback invoked after every zoom/center
	// change. The returned function unsubscribes it.
	OnChange(fn func()) (cancel func())
}

// Canvas is the drawing surface shared by all overlays.
type Canvas interface {
	AddFeature(g geom.Geometry, s Style) Feature
	RemoveFeature(f Feature)
	AddText(pos geom.XY, text string) Text
	RemoveText(t Text)
	View() View
}
