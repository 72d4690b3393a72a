package core

import (
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
)

// HistorySample is one record of a historical track fetch, ordered ascending
// by Time in the playback buffer.
type HistorySample struct {
	Time       time.Time
	Position   geo.LonLat
	HasFix     bool // false for sensor samples, which carry no position
	Heading    float64
	Speed      float64
	WaterDepth float64
	GPSQuality string
	Status     Status

	// TideHeight is set for sensor (tide gauge) history, meters relative
	// to datum.
	TideHeight float64
}

// TideReading is one parsed tide-gauge measurement extracted from a raw
// sensor payload.
type TideReading struct {
	Time   time.Time
	Height float64
}

// Patch converts a sample into the partial update pushed through the shared
// overlay update path during playback.
func (s HistorySample) Patch(playbackSpeed float64, snap bool) StatePatch {
	p := StatePatch{
		Speed:         Float(s.Speed),
		WaterDepth:    Float(s.WaterDepth),
		Status:        StatusOf(s.Status),
		LastUpdate:    &s.Time,
		PlaybackSpeed: playbackSpeed,
		Snap:          snap,
	}
	if s.HasFix {
		pos := s.Position
		p.Position = &pos
		p.Heading = Float(s.Heading)
	}
	if s.GPSQuality != "" {
		p.GPSQuality = Str(s.GPSQuality)
	}
	return p
}
