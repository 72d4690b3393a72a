package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// LineFrom builds a projected LineString from geographic points. Tracks and
// measurement paths are drawn in EPSG:3857.
func LineFrom(points []LonLat) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("polyline must have at least 2 points, got %d", len(points))
	}

	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		xy := Project(p)
		flat = append(flat, xy.X, xy.Y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}
