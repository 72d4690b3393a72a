// Package export writes fetched history buffers to CSV and XLSX files with
// the column layouts downstream analysis tooling expects.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/harborwatch/harborwatch/internal/model/core"
)

// defaultGPSQuality fills the quality column when a record carried none.
const defaultGPSQuality = "RTK"

var vesselHeader = []string{
	"time",
	"latitude",
	"longitude",
	"heading_degree",
	"speed_in_knots",
	"gps_quality_indicator",
	"water_depth",
}

var sensorHeader = []string{"Timestamp (UTC)", "Tide Height (m)"}

func vesselRow(s core.HistorySample) []string {
	quality := s.GPSQuality
	if quality == "" {
		quality = defaultGPSQuality
	}
	return []string{
		s.Time.UTC().Format(time.RFC3339),
		strconv.FormatFloat(s.Position.Lat, 'f', 6, 64),
		strconv.FormatFloat(s.Position.Lon, 'f', 6, 64),
		fmt.Sprintf("%.3f", s.Heading),
		fmt.Sprintf("%.2f", s.Speed),
		quality,
		fmt.Sprintf("%.3f", s.WaterDepth),
	}
}

func sensorRow(s core.HistorySample) []string {
	return []string{
		s.Time.UTC().Format(time.RFC3339),
		fmt.Sprintf("%.3f", s.TideHeight),
	}
}

// WriteVesselCSV writes a vessel track to w.
func WriteVesselCSV(w io.Writer, samples []core.HistorySample) error {
	return writeCSV(w, vesselHeader, samples, vesselRow)
}

// WriteSensorCSV writes tide readings to w.
func WriteSensorCSV(w io.Writer, samples []core.HistorySample) error {
	return writeCSV(w, sensorHeader, samples, sensorRow)
}

func writeCSV(w io.Writer, header []string, samples []core.HistorySample, row func(core.HistorySample) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, s := range samples {
		if err := cw.Write(row(s)); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVesselXLSX writes a vessel track as a single-sheet workbook.
func WriteVesselXLSX(w io.Writer, samples []core.HistorySample) error {
	return writeXLSX(w, "Track", vesselHeader, samples, vesselRow)
}

// WriteSensorXLSX writes tide readings as a single-sheet workbook.
func WriteSensorXLSX(w io.Writer, samples []core.HistorySample) error {
	return writeXLSX(w, "Readings", sensorHeader, samples, sensorRow)
}

func writeXLSX(w io.Writer, sheet string, header []string, samples []core.HistorySample, row func(core.HistorySample) []string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("removing default sheet: %w", err)
	}

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := writeRow(1, header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}
	for i, s := range samples {
		if err := writeRow(i+2, row(s)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
