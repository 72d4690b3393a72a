package measure

import (
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/render"
)

func newTool() (*Tool, *render.Headless) {
	canvas := render.NewHeadless(geom.XY{}, 12)
	return NewTool(canvas), canvas
}

func TestFormatLength(t *testing.T) {
	tests := []struct {
		meters float64
		want   string
	}{
		{0, "0 m"},
		{1, "1 m"},
		{123.4, "123 m"},
		{999.4, "999 m"},
		{999.6, "1000 m"},
		{1000, "1.00 km"},
		{1234, "1.23 km"},
		{12345.6, "12.35 km"},
	}
	for _, tc := range tests {
		if got := FormatLength(tc.meters); got != tc.want {
			t.Errorf("FormatLength(%v) = %q, want %q", tc.meters, got, tc.want)
		}
	}
}

func TestInactiveToolIgnoresClicks(t *testing.T) {
	tool, canvas := newTool()

	if err := tool.AddPoint(geo.LonLat{Lon: 1, Lat: 1}); err != nil {
		t.Fatalf("AddPoint: %v", err)
	}
	if len(tool.Points()) != 0 {
		t.Fatal("inactive tool accumulated a vertex")
	}
	if canvas.FeatureCount() != 0 || canvas.TextCount() != 0 {
		t.Fatal("inactive tool drew artifacts")
	}
}

func TestAddPointRejectsInvalid(t *testing.T) {
	tool, _ := newTool()
	tool.Activate()
	if err := tool.AddPoint(geo.LonLat{Lon: 0, Lat: 91}); err != geo.ErrInvalidCoordinates {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
}

func TestSegmentsAndTotal(t *testing.T) {
	tool, canvas := newTool()
	tool.Activate()

	pts := []geo.LonLat{
		{Lon: 0, Lat: 0},
		{Lon: 1, Lat: 0},
		{Lon: 1, Lat: 1},
	}
	for _, p := range pts {
		if err := tool.AddPoint(p); err != nil {
			t.Fatalf("AddPoint: %v", err)
		}
	}

	segs := tool.Segments()
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	var sum float64
	for _, s := range segs {
		if s <= 0 {
			t.Fatalf("non-positive segment length %v", s)
		}
		sum += s
	}
	if total := tool.Total(); math.Abs(total-sum) > 1e-6 {
		t.Fatalf("total %v != sum of segments %v", total, sum)
	}

	// One line, two segment labels, one total label (3 vertices).
	if canvas.FeatureCount() != 1 {
		t.Fatalf("feature count = %d, want 1", canvas.FeatureCount())
	}
	if canvas.TextCount() != 3 {
		t.Fatalf("text count = %d, want 3", canvas.TextCount())
	}
}

func TestTotalLabelRequiresThreeVertices(t *testing.T) {
	tool, canvas := newTool()
	tool.Activate()
	tool.AddPoint(geo.LonLat{Lon: 0, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 1, Lat: 0})

	// One segment label, no total yet.
	if canvas.TextCount() != 1 {
		t.Fatalf("text count = %d, want 1", canvas.TextCount())
	}
}

func TestUndo(t *testing.T) {
	tool, canvas := newTool()
	tool.Activate()

	if tool.UndoEnabled() {
		t.Fatal("undo enabled with no vertices")
	}

	tool.AddPoint(geo.LonLat{Lon: 0, Lat: 0})
	if tool.UndoEnabled() {
		t.Fatal("undo enabled with a single vertex")
	}

	// A single vertex can still be rolled back.
	tool.RemoveLastPoint()
	if len(tool.Points()) != 0 {
		t.Fatal("single vertex not removed")
	}

	tool.AddPoint(geo.LonLat{Lon: 0, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 1, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 1, Lat: 1})
	if !tool.UndoEnabled() {
		t.Fatal("undo disabled with three vertices")
	}

	tool.RemoveLastPoint()
	if got := len(tool.Points()); got != 2 {
		t.Fatalf("points after undo = %d, want 2", got)
	}
	if canvas.TextCount() != 1 {
		t.Fatalf("text count after undo = %d, want 1", canvas.TextCount())
	}

	tool.RemoveLastPoint()
	tool.RemoveLastPoint()
	tool.RemoveLastPoint() // extra undo on empty chain is a no-op
	if len(tool.Points()) != 0 {
		t.Fatal("points remain after exhaustive undo")
	}
	if canvas.FeatureCount() != 0 || canvas.TextCount() != 0 {
		t.Fatal("artifacts remain after exhaustive undo")
	}
}

func TestToggleClearsEverything(t *testing.T) {
	tool, canvas := newTool()

	if !tool.Toggle() {
		t.Fatal("first toggle should activate")
	}
	tool.AddPoint(geo.LonLat{Lon: 0, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 1, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 2, Lat: 0})

	if tool.Toggle() {
		t.Fatal("second toggle should deactivate")
	}
	if len(tool.Points()) != 0 {
		t.Fatal("vertices survived deactivation")
	}
	if canvas.FeatureCount() != 0 || canvas.TextCount() != 0 {
		t.Fatal("artifacts survived deactivation")
	}

	// Reactivating starts a fresh session.
	if !tool.Toggle() {
		t.Fatal("third toggle should activate")
	}
	if len(tool.Points()) != 0 {
		t.Fatal("stale vertices in fresh session")
	}
}

func TestClearKeepsToolActive(t *testing.T) {
	tool, canvas := newTool()
	tool.Activate()
	tool.AddPoint(geo.LonLat{Lon: 0, Lat: 0})
	tool.AddPoint(geo.LonLat{Lon: 1, Lat: 0})

	tool.Clear()
	if !tool.Active() {
		t.Fatal("Clear deactivated the tool")
	}
	if canvas.FeatureCount() != 0 || canvas.TextCount() != 0 {
		t.Fatal("artifacts survived Clear")
	}
}
