// Package measure implements the click-to-measure tool: an ordered chain of
// vertices with a great-circle length label per segment and a running total.
package measure

import (
	"fmt"
	"math"
	"sync"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/render"
)

var measureLine = render.Style{
	Shape:     render.ShapeLine,
	Tint:      render.Color{R: 255, G: 204, B: 51, A: 0.9},
	LineWidth: 2,
	LineDash:  []float64{6, 4},
	Visible:   true,
}

// Tool is the measurement state machine. Inactive it ignores input; active
// it accumulates vertices and keeps the line, segment labels and total label
// on the canvas in sync. Deactivation clears everything synchronously, so no
// stale artifacts outlive the session.
type Tool struct {
	mu     sync.Mutex
	canvas render.Canvas

	active bool
	points []geo.LonLat
	line   render.Feature
	labels []render.Text
	total  render.Text
}

// NewTool creates an inactive tool bound to the canvas.
func NewTool(canvas render.Canvas) *Tool {
	return &Tool{canvas: canvas}
}

// Toggle flips the tool between active and inactive and reports the new
// state. Deactivating discards all measurement state.
func (t *Tool) Toggle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active {
		t.deactivateLocked()
	} else {
		t.active = true
	}
	return t.active
}

// Activate turns the tool on. Re-activating an active tool is a no-op; the
// vertex chain is kept.
func (t *Tool) Activate() {
	t.mu.Lock()
	t.active = true
	t.mu.Unlock()
}

// Deactivate turns the tool off and clears all vertices and labels.
func (t *Tool) Deactivate() {
	t.mu.Lock()
	t.deactivateLocked()
	t.mu.Unlock()
}

// Active reports whether the tool is measuring.
func (t *Tool) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// AddPoint appends a vertex. Ignored while inactive; clicks then belong to
// the map, not the tool. Invalid coordinates are rejected.
func (t *Tool) AddPoint(p geo.LonLat) error {
	if !p.Valid() {
		return geo.ErrInvalidCoordinates
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return nil
	}
	t.points = append(t.points, p)
	t.redrawLocked()
	return nil
}

// RemoveLastPoint undoes the most recent vertex. With a single vertex it
// removes that vertex; with none it is a no-op.
func (t *Tool) RemoveLastPoint() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active || len(t.points) == 0 {
		return
	}
	t.points = t.points[:len(t.points)-1]
	t.redrawLocked()
}

// UndoEnabled reports whether the undo affordance should be offered: only
// when a segment exists to roll back.
func (t *Tool) UndoEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active && len(t.points) >= 2
}

// Clear removes all vertices but leaves the tool active.
func (t *Tool) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.points = nil
	t.redrawLocked()
}

// Points returns a copy of the current vertex chain.
func (t *Tool) Points() []geo.LonLat {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]geo.LonLat(nil), t.points...)
}

// Segments returns the great-circle length of each segment in meters.
func (t *Tool) Segments() []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.segmentsLocked()
}

func (t *Tool) segmentsLocked() []float64 {
	if len(t.points) < 2 {
		return nil
	}
	segs := make([]float64, 0, len(t.points)-1)
	for i := 0; i+1 < len(t.points); i++ {
		segs = append(segs, geo.Distance(t.points[i], t.points[i+1]))
	}
	return segs
}

// Total returns the full path length in meters.
func (t *Tool) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return geo.PathLength(t.points)
}

// redrawLocked rebuilds the line feature and every label from the current
// vertex chain. Caller holds t.mu.
func (t *Tool) redrawLocked() {
	t.clearArtifactsLocked()

	if len(t.points) >= 2 {
		line, err := geo.LineFrom(t.points)
		if err == nil {
			t.line = t.canvas.AddFeature(line.AsGeometry(), measureLine)
		}
		for i := 0; i+1 < len(t.points); i++ {
			d := geo.Distance(t.points[i], t.points[i+1])
			label := t.canvas.AddText(geo.Midpoint(t.points[i], t.points[i+1]), FormatLength(d))
			t.labels = append(t.labels, label)
		}
	}

	// The running total only earns its own label once there is more than
	// one segment to sum.
	if len(t.points) >= 3 {
		total := geo.PathLength(t.points)
		last := t.points[len(t.points)-1]
		t.total = t.canvas.AddText(geo.Project(last), "Total: "+FormatLength(total))
	}
}

func (t *Tool) clearArtifactsLocked() {
	if t.line != nil {
		t.canvas.RemoveFeature(t.line)
		t.line = nil
	}
	for _, l := range t.labels {
		t.canvas.RemoveText(l)
	}
	t.labels = nil
	if t.total != nil {
		t.canvas.RemoveText(t.total)
		t.total = nil
	}
}

func (t *Tool) deactivateLocked() {
	t.active = false
	t.points = nil
	t.clearArtifactsLocked()
}

// FormatLength renders a distance for display: kilometers with two decimals
// at or above 1000 m, otherwise whole meters.
func FormatLength(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%d m", int(math.Round(meters)))
}
