package parser

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwatch/harborwatch/pkg/feed"
)

func newTestParser() *Parser {
	return NewParser(slog.Default())
}

func TestParseTideReading(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name       string
		raw        string
		wantTime   time.Time
		wantHeight float64
		wantErr    bool
	}{
		{
			name:       "positive height",
			raw:        "STATION:TG01 TIME:05/03/2024 14:30:00 UTC TIDE HEIGHT: +1.234 BATTERY:12.4V",
			wantTime:   time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
			wantHeight: 1.234,
		},
		{
			name:       "negative height",
			raw:        "TIME:31/12/2023 23:59:59 UTC TIDE HEIGHT: -0.480",
			wantTime:   time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC),
			wantHeight: -0.48,
		},
		{
			name:    "missing time field",
			raw:     "TIDE HEIGHT: +1.000",
			wantErr: true,
		},
		{
			name:    "missing height field",
			raw:     "TIME:05/03/2024 14:30:00 UTC",
			wantErr: true,
		},
		{
			name:    "unsigned height not a reading",
			raw:     "TIME:05/03/2024 14:30:00 UTC TIDE HEIGHT: 1.234",
			wantErr: true,
		},
		{
			name:    "empty payload",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := p.ParseTideReading(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, reading.Time.Equal(tt.wantTime), "time = %v, want %v", reading.Time, tt.wantTime)
			assert.InDelta(t, tt.wantHeight, reading.Height, 1e-9)
		})
	}
}

func TestParseVesselSample(t *testing.T) {
	p := newTestParser()

	rec := feed.VesselHistoryRecord{
		Timestamp:     "2024-03-05T14:30:00Z",
		Latitude:      "1°13.1709°S",
		Longitude:     "104°7.2000°E",
		HeadingDegree: 182.4,
		SpeedInKnots:  11.2,
		WaterDepth:    24.6,
		GPSQuality:    "RTK",
		TelnetStatus:  "Connected",
	}
	s, err := p.ParseVesselSample(rec)
	require.NoError(t, err)

	assert.True(t, s.HasFix)
	assert.InDelta(t, -(1 + 13.1709/60), s.Position.Lat, 1e-9)
	assert.InDelta(t, 104+7.2/60, s.Position.Lon, 1e-9)
	assert.Equal(t, 182.4, s.Heading)
	assert.Equal(t, 11.2, s.Speed)
	assert.Equal(t, 24.6, s.WaterDepth)
	assert.Equal(t, "RTK", s.GPSQuality)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), s.Time.UTC())
}

func TestParseVesselSampleErrors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		rec  feed.VesselHistoryRecord
	}{
		{
			name: "bad timestamp",
			rec: feed.VesselHistoryRecord{
				Timestamp: "yesterday",
				Latitude:  "1°13.1709°S",
				Longitude: "104°7.2000°E",
			},
		},
		{
			name: "bad latitude",
			rec: feed.VesselHistoryRecord{
				Timestamp: "2024-03-05T14:30:00Z",
				Latitude:  "not-a-coordinate",
				Longitude: "104°7.2000°E",
			},
		},
		{
			name: "bad longitude",
			rec: feed.VesselHistoryRecord{
				Timestamp: "2024-03-05T14:30:00Z",
				Latitude:  "1°13.1709°S",
				Longitude: "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseVesselSample(tt.rec)
			assert.Error(t, err)
		})
	}
}

func TestParseSensorSample(t *testing.T) {
	p := newTestParser()

	s, err := p.ParseSensorSample(feed.SensorHistoryRecord{
		SensorID:   "TG01",
		RawData:    "TIME:05/03/2024 14:30:00 UTC TIDE HEIGHT: +1.234",
		ReceivedAt: "2024-03-05T14:30:02Z",
	})
	require.NoError(t, err)

	assert.False(t, s.HasFix)
	assert.InDelta(t, 1.234, s.TideHeight, 1e-9)
	assert.Equal(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC), s.Time)
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-05T14:30:00Z",
		"2024-03-05 14:30:00",
		"2024-03-05T14:30:00",
	} {
		ts, err := ParseTimestamp(in)
		require.NoError(t, err, "input %q", in)
		assert.True(t, ts.Equal(want), "input %q parsed to %v", in, ts)
	}

	_, err := ParseTimestamp("05/03/2024")
	assert.Error(t, err)
}
