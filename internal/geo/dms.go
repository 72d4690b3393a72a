package geo

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Vessel history coordinates arrive as degrees-decimal-minutes strings of the
// form "1°13.1709°S". The hemisphere suffix carries the sign.

var dmsPattern = regexp.MustCompile(`(\d+)°(\d+\.\d+)°?'?([NSEW])`)

// ParseDMS converts a degrees-minutes-hemisphere string to decimal degrees.
func ParseDMS(s string) (float64, error) {
	m := dmsPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("parse DMS %q: %w", s, ErrInvalidCoordinates)
	}

	degrees, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse DMS %q: %w", s, ErrInvalidCoordinates)
	}
	minutes, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parse DMS %q: %w", s, ErrInvalidCoordinates)
	}

	decimal := degrees + minutes/60
	if m[3] == "S" || m[3] == "W" {
		decimal = -decimal
	}
	return decimal, nil
}

// FormatDMS renders decimal degrees as a degrees-minutes-hemisphere display
// string with 4-decimal minutes.
func FormatDMS(decimal float64, isLatitude bool) string {
	absolute := math.Abs(decimal)
	degrees := math.Floor(absolute)
	minutes := (absolute - degrees) * 60

	var hemisphere string
	if isLatitude {
		hemisphere = "N"
		if decimal < 0 {
			hemisphere = "S"
		}
	} else {
		hemisphere = "E"
		if decimal < 0 {
			hemisphere = "W"
		}
	}

	return fmt.Sprintf("%d°%.4f'%s", int(degrees), minutes, hemisphere)
}
