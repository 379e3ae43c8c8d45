package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// Column names of the open crime data export.
const (
	colOffense      = "standardized_offense"
	colOffenseGroup = "offense_group"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colReportDate   = "report_date"

	unknownType = "UNKNOWN"

	// excelEpochDays is the spreadsheet serial day number of 1970-01-01.
	excelEpochDays = 25569
)

// csvDateLayouts are the date forms seen in the export, tried before the
// general timestamp parser.
var csvDateLayouts = []string{
	"2006/01/02 15:04:05-07",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04",
	"1/2/2006",
}

// ParseCSV imports reports from a header-led CSV export. The type comes from
// standardized_offense, then offense_group, then UNKNOWN. Rows with a missing
// or unparsable report_date are dated now. Rows whose latitude or longitude
// is zero (or unparsable) are dropped.
func ParseCSV(r io.Reader, now time.Time) ([]hotspot.Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []hotspot.Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	reports := []hotspot.Report{}
	rows, dropped := 0, 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rows+1, err)
		}
		rows++

		lat := parseFloatOrZero(field(row, colLatitude))
		lng := parseFloatOrZero(field(row, colLongitude))
		if lat == 0 || lng == 0 {
			dropped++
			continue
		}

		typ := field(row, colOffense)
		if typ == "" {
			typ = field(row, colOffenseGroup)
		}
		if typ == "" {
			typ = unknownType
		}

		reports = append(reports, hotspot.Report{
			Lat:        lat,
			Lng:        lng,
			Type:       typ,
			HasType:    true,
			ReportedAt: hotspot.At(parseReportDate(field(row, colReportDate), now)),
		})
	}

	diagf("imported %d of %d CSV rows (%d without coordinates)", len(reports), rows, dropped)
	return reports, nil
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parseReportDate reads a spreadsheet serial day number or a date string.
func parseReportDate(s string, now time.Time) time.Time {
	if s == "" {
		return now
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		secs := (serial - excelEpochDays) * 86400
		return time.Unix(0, int64(secs*float64(time.Second))).UTC()
	}
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if ts := hotspot.ParseTimestamp(s); ts.Valid {
		return ts.Time
	}
	return now
}
