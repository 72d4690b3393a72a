package parser

import (
	"fmt"
	"regexp"
	"time"

	"github.com/harborwatch/harborwatch/internal/model/core"
)

// Tide gauges push their readings as free-form NMEA-ish text. The reading
// time and the height are extracted by pattern, everything else in the
// payload is ignored but retained verbatim upstream.
var (
	tideTimePattern   = regexp.MustCompile(`TIME:(\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2})`)
	tideHeightPattern = regexp.MustCompile(`TIDE HEIGHT: ([+-]\d+\.\d+)`)
)

// tideTimeLayout is DD/MM/YYYY wall-clock time, always UTC.
const tideTimeLayout = "02/01/2006 15:04:05"

// ParseTideReading extracts the reading time and tide height from a raw
// sensor payload. Both fields must be present; gauges emit other message
// types on the same channel and those are not readings.
func (p *Parser) ParseTideReading(raw string) (core.TideReading, error) {
	var reading core.TideReading

	tm := tideTimePattern.FindStringSubmatch(raw)
	if tm == nil {
		return reading, fmt.Errorf("no TIME field in payload %q", raw)
	}
	ts, err := time.ParseInLocation(tideTimeLayout, tm[1], time.UTC)
	if err != nil {
		return reading, fmt.Errorf("error parsing tide reading time: %w", err)
	}

	hm := tideHeightPattern.FindStringSubmatch(raw)
	if hm == nil {
		return reading, fmt.Errorf("no TIDE HEIGHT field in payload %q", raw)
	}
	var height float64
	if _, err := fmt.Sscanf(hm[1], "%f", &height); err != nil {
		return reading, fmt.Errorf("error parsing tide height: %w", err)
	}

	reading.Time = ts
	reading.Height = height
	return reading, nil
}
