package overlay

import (
	"math"
	"sync"
	"time"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/internal/render"
)

var (
	trackConnected    = render.Color{R: 16, G: 185, B: 129, A: 0.8}
	trackDisconnected = render.Color{R: 239, G: 68, B: 68, A: 0.8}
)

// Track draws a historical route as polyline segments split wherever the
// connectivity status flips, so outage stretches read red against the green
// track. Playback redraws it progressively as records stream in.
type Track struct {
	mu       sync.Mutex
	canvas   render.Canvas
	features []render.Feature
	removed  bool
}

// NewTrack creates an empty track layer.
func NewTrack(canvas render.Canvas) *Track {
	return &Track{canvas: canvas}
}

// SetSamples replaces the drawn track with the given samples. Samples
// without a position fix are skipped; consecutive same-status runs share one
// segment and each status flip starts a new one anchored at the flip point.
func (t *Track) SetSamples(samples []core.HistorySample) {
	type segment struct {
		points []geo.LonLat
		status core.Status
	}
	var segs []segment
	for _, s := range samples {
		if !s.HasFix {
			continue
		}
		if len(segs) == 0 || segs[len(segs)-1].status != s.Status {
			var carry []geo.LonLat
			if len(segs) > 0 {
				prev := segs[len(segs)-1].points
				carry = []geo.LonLat{prev[len(prev)-1]}
			}
			segs = append(segs, segment{points: carry, status: s.Status})
		}
		last := &segs[len(segs)-1]
		last.points = append(last.points, s.Position)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.removed {
		return
	}
	t.clearLocked()
	for _, seg := range segs {
		line, err := geo.LineFrom(seg.points)
		if err != nil {
			continue // single-point run, nothing to draw
		}
		color := trackConnected
		if seg.status == core.StatusDisconnected {
			color = trackDisconnected
		}
		f := t.canvas.AddFeature(line.AsGeometry(), render.Style{
			Shape:     render.ShapeLine,
			Tint:      color,
			LineWidth: 4,
			Visible:   true,
		})
		t.features = append(t.features, f)
	}
}

// SegmentCount reports how many polyline segments are drawn.
func (t *Track) SegmentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.features)
}

// Fit pans the view to the track's midpoint. Zoom is left alone; route
// extents vary too much for a fixed level to make sense.
func (t *Track) Fit(samples []core.HistorySample) {
	var pts []geo.LonLat
	for _, s := range samples {
		if s.HasFix {
			pts = append(pts, s.Position)
		}
	}
	if len(pts) == 0 {
		return
	}
	min, max := pts[0], pts[0]
	for _, p := range pts[1:] {
		min.Lon = math.Min(min.Lon, p.Lon)
		min.Lat = math.Min(min.Lat, p.Lat)
		max.Lon = math.Max(max.Lon, p.Lon)
		max.Lat = math.Max(max.Lat, p.Lat)
	}
	view := t.canvas.View()
	view.AnimateTo(geo.Midpoint(min, max), view.Zoom(), time.Second)
}

// Clear removes all drawn segments but keeps the layer usable.
func (t *Track) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

func (t *Track) clearLocked() {
	for _, f := range t.features {
		t.canvas.RemoveFeature(f)
	}
	t.features = nil
}

// Remove tears the layer down.
func (t *Track) Remove() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removed = true
	t.clearLocked()
}
