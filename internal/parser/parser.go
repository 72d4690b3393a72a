// Package parser provides pure wire-record -> domain struct conversion for
// the historical streams and the embedded sensor payloads. It has zero
// external dependencies beyond a logger.
package parser

import (
	"fmt"
	"log/slog"
	"time"
)

// Parser converts history records and raw sensor payloads into domain types.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// timestampLayouts are the formats history endpoints have been seen emitting.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp tries the known layouts in order. Layouts without an
// explicit offset are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
