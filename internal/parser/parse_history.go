package parser

import (
	"fmt"

	"github.com/harborwatch/harborwatch/internal/geo"
	"github.com/harborwatch/harborwatch/internal/model/core"
	"github.com/harborwatch/harborwatch/pkg/feed"
)

// ParseVesselSample converts one vessel history record into a playback
// sample. Coordinates arrive as DMS strings and are converted to decimal
// degrees; records with malformed coordinates are rejected rather than
// plotted at a bogus position.
func (p *Parser) ParseVesselSample(rec feed.VesselHistoryRecord) (core.HistorySample, error) {
	var sample core.HistorySample

	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return sample, fmt.Errorf("error parsing vessel history timestamp: %w", err)
	}

	lat, err := geo.ParseDMS(rec.Latitude)
	if err != nil {
		return sample, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err := geo.ParseDMS(rec.Longitude)
	if err != nil {
		return sample, fmt.Errorf("error parsing longitude: %w", err)
	}
	pos := geo.LonLat{Lon: lon, Lat: lat}
	if !pos.Valid() {
		return sample, geo.ErrInvalidCoordinates
	}

	sample.Time = ts
	sample.Position = pos
	sample.HasFix = true
	sample.Heading = rec.HeadingDegree
	sample.Speed = rec.SpeedInKnots
	sample.WaterDepth = rec.WaterDepth
	sample.GPSQuality = rec.GPSQuality
	sample.Status = core.ParseStatus(rec.TelnetStatus)
	return sample, nil
}

// ParseSensorSample converts one sensor history record into a playback
// sample. The position-less sample carries the tide reading extracted from
// the embedded raw payload.
func (p *Parser) ParseSensorSample(rec feed.SensorHistoryRecord) (core.HistorySample, error) {
	var sample core.HistorySample

	reading, err := p.ParseTideReading(rec.RawData)
	if err != nil {
		return sample, fmt.Errorf("error extracting tide reading: %w", err)
	}

	sample.Time = reading.Time
	sample.TideHeight = reading.Height
	sample.Status = core.StatusConnected
	return sample, nil
}
