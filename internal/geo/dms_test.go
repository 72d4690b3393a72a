package geo

import (
	"math"
	"testing"
)

func TestParseDMS_SouthIsNegative(t *testing.T) {
	got, err := ParseDMS("1°13.1709°S")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := -(1 + 13.1709/60)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestParseDMS_EastIsPositive(t *testing.T) {
	got, err := ParseDMS("116°51.3419°E")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 116 + 51.3419/60
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestParseDMS_Malformed(t *testing.T) {
	for _, s := range []string{"", "garbage", "12.5", "1°S"} {
		if _, err := ParseDMS(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestFormatDMS_RoundTrip(t *testing.T) {
	cases := []struct {
		decimal    float64
		isLatitude bool
	}{
		{-1.219515, true},
		{116.855698, false},
		{0.5, true},
		{-120.25, false},
	}
	for _, tc := range cases {
		s := FormatDMS(tc.decimal, tc.isLatitude)
		back, err := ParseDMS(s)
		if err != nil {
			t.Fatalf("ParseDMS(%q): %v", s, err)
		}
		// Minutes are rendered to 4 decimals, so round-trip precision is
		// bounded by ~1e-4 minutes.
		if math.Abs(back-tc.decimal) > 1e-5 {
			t.Errorf("round trip %f -> %q -> %f", tc.decimal, s, back)
		}
	}
}

func TestFormatDMS_Hemispheres(t *testing.T) {
	if s := FormatDMS(-1.2, true); s[len(s)-1] != 'S' {
		t.Errorf("expected S suffix, got %q", s)
	}
	if s := FormatDMS(1.2, true); s[len(s)-1] != 'N' {
		t.Errorf("expected N suffix, got %q", s)
	}
	if s := FormatDMS(-100.0, false); s[len(s)-1] != 'W' {
		t.Errorf("expected W suffix, got %q", s)
	}
	if s := FormatDMS(100.0, false); s[len(s)-1] != 'E' {
		t.Errorf("expected E suffix, got %q", s)
	}
}
