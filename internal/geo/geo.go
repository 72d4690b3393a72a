package geo

import (
	"errors"
	"math"
	"strconv"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Entity positions arrive as EPSG:4326 decimal degrees and are rendered in
// EPSG:3857 (Web Mercator), the projection the map canvas draws in. All
// conversions go through wgs84 so there is a single source of truth for the
// transform parameters.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// groundResolution is the Web Mercator ground resolution at the equator at
// zoom 0, in meters per pixel.
const groundResolution = 156543.03392

// LonLat is a geographic coordinate in decimal degrees.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate is within decimal-degree bounds.
func (p LonLat) Valid() bool {
	return ValidLongitude(p.Lon) && ValidLatitude(p.Lat)
}

// ValidLatitude reports whether lat is a finite value in [-90, 90].
func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lon is a finite value in [-180, 180].
func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= -180 && lon <= 180
}

// ParseLonLat parses longitude and latitude strings into a validated LonLat.
func ParseLonLat(lon, lat string) (LonLat, error) {
	lonF, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return LonLat{}, ErrInvalidCoordinates
	}
	p := LonLat{Lon: lonF, Lat: latF}
	if !p.Valid() {
		return LonLat{}, ErrInvalidCoordinates
	}
	return p, nil
}

// Project converts a geographic coordinate to EPSG:3857 map coordinates.
func Project(p LonLat) geom.XY {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(p.Lon, p.Lat, 0)
	return geom.XY{X: x, Y: y}
}

// Unproject converts EPSG:3857 map coordinates back to geographic degrees.
func Unproject(xy geom.XY) LonLat {
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(xy.X, xy.Y, 0)
	return LonLat{Lon: lon, Lat: lat}
}

// PointFrom builds a simplefeatures point in projected coordinates.
func PointFrom(p LonLat) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   Project(p),
		Type: geom.DimXY,
	})
}

// MetersToPixels converts a real-world linear size to on-screen pixels for
// the given latitude and zoom, using the Web Mercator resolution formula.
func MetersToPixels(meters, latitude, zoom float64) float64 {
	resolution := groundResolution * math.Cos(latitude*math.Pi/180) / math.Pow(2, zoom)
	return meters / resolution
}

// IconScale converts a real-world width to a style scale factor relative to
// a base icon size in pixels. Latitude- and zoom-dependent, so it must be
// recomputed on every view change.
func IconScale(widthMeters, latitude, zoom, baseIconPx float64) float64 {
	return MetersToPixels(widthMeters, latitude, zoom) / baseIconPx
}

// earthRadius is the mean earth radius in meters, matching the sphere the
// map library measures great-circle lengths on.
const earthRadius = 6371008.8

// Distance returns the great-circle distance between two geographic points
// in meters (haversine).
func Distance(a, b LonLat) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

// PathLength returns the great-circle length of a multi-point path in meters.
func PathLength(points []LonLat) float64 {
	var total float64
	for i := 0; i+1 < len(points); i++ {
		total += Distance(points[i], points[i+1])
	}
	return total
}

// Midpoint returns the projected midpoint of a segment, where segment labels
// are anchored.
func Midpoint(a, b LonLat) geom.XY {
	pa := Project(a)
	pb := Project(b)
	return geom.XY{X: (pa.X + pb.X) / 2, Y: (pa.Y + pb.Y) / 2}
}
