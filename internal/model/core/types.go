// Package core holds the domain types shared by the registry, overlays,
// ingest and playback: entity state snapshots, partial-update patches and
// historical samples.
package core

import (
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
)

// Status is the connectivity state reported with each telemetry sample.
type Status string

const (
	StatusConnected    Status = "Connected"
	StatusDisconnected Status = "Disconnected"
	StatusUnknown      Status = "Unknown"
)

// ParseStatus maps a wire status string to a Status, defaulting to Unknown
// when the field is absent or carries an unexpected value.
func ParseStatus(s string) Status {
	switch s {
	case string(StatusConnected):
		return StatusConnected
	case string(StatusDisconnected):
		return StatusDisconnected
	default:
		return StatusUnknown
	}
}

// EntityState is the last-known state of one vessel or sensor, keyed by its
// identity (call sign or sensor id) within a registry.
type EntityState struct {
	Identity   string
	Position   geo.LonLat
	Heading    float64 // degrees clockwise from north, [0, 360)
	Speed      float64 // knots
	WaterDepth float64 // meters
	GPSQuality string
	Status     Status
	LastUpdate time.Time
}

// StatePatch is a partial update: nil fields are absent and leave the
// current value untouched. This replaces the duck-typed option objects of
// ad-hoc JSON updates with explicit present-vs-absent semantics.
type StatePatch struct {
	Position   *geo.LonLat
	Heading    *float64
	Speed      *float64
	WaterDepth *float64
	GPSQuality *string
	Status     *Status
	LastUpdate *time.Time

	// RawData is the unparsed sensor payload, retained verbatim for the
	// detail panel and tide extraction.
	RawData *string

	// PlaybackSpeed divides the base animation duration so historical
	// fast-forward animates proportionally faster. Zero means 1x.
	PlaybackSpeed float64

	// Snap applies the position/heading immediately with no animation.
	// Used by playback seeks.
	Snap bool
}

// Empty reports whether the patch carries no fields at all. Empty patches
// must not restart animations.
func (p StatePatch) Empty() bool {
	return p.Position == nil && p.Heading == nil && p.Speed == nil &&
		p.WaterDepth == nil && p.GPSQuality == nil && p.Status == nil &&
		p.LastUpdate == nil && p.RawData == nil
}

// Summary is the denormalized last-known view of an entity republished to
// the search index on every batch.
type Summary struct {
	Identity   string     `json:"identity"`
	Position   geo.LonLat `json:"position"`
	Heading    float64    `json:"heading"`
	Speed      float64    `json:"speed"`
	Status     Status     `json:"status"`
	LastUpdate time.Time  `json:"lastUpdate"`
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to v, for building patches.
func Str(v string) *string { return &v }

// StatusOf returns a pointer to s, for building patches.
func StatusOf(s Status) *Status { return &s }
