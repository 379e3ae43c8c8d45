// Package ingest turns invocation input into incident reports: it finds the
// report data among the command arguments, decodes JSON report records and
// imports the open-data CSV export.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// Field names read from each report record.
const (
	fieldType       = "crimeType"
	fieldTypeAlt    = "incidentType"
	fieldLocation   = "location"
	fieldLat        = "lat"
	fieldLng        = "lng"
	fieldReportedAt = "reportedAt"
)

// DecodeReports decodes a JSON array of report records. It returns an error
// wrapping ErrNotArray when the top level is anything but an array, and a
// *DataShapeError when a record is not an object or carries a non-numeric
// coordinate.
func DecodeReports(raw []byte) ([]hotspot.Report, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var top interface{}
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	items, ok := top.([]interface{})
	if !ok {
		return nil, fmt.Errorf("got %s: %w", jsonKind(top), ErrNotArray)
	}

	reports := make([]hotspot.Report, 0, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]interface{})
		if !ok {
			return nil, &DataShapeError{Index: i, Reason: fmt.Sprintf("expected object, got %s", jsonKind(item))}
		}
		r, err := decodeRecord(rec)
		if err != nil {
			return nil, &DataShapeError{Index: i, Reason: err.Error()}
		}
		reports = append(reports, r)
	}
	return reports, nil
}

func decodeRecord(rec map[string]interface{}) (hotspot.Report, error) {
	var r hotspot.Report

	typ, ok, err := recordType(rec)
	if err != nil {
		return r, err
	}
	r.Type, r.HasType = typ, ok

	coords := rec
	if loc, present := rec[fieldLocation]; present && loc != nil {
		m, ok := loc.(map[string]interface{})
		if !ok {
			return r, fmt.Errorf("%s: expected object, got %s", fieldLocation, jsonKind(loc))
		}
		coords = m
	}
	if r.Lat, err = coordinate(coords, fieldLat); err != nil {
		return r, err
	}
	if r.Lng, err = coordinate(coords, fieldLng); err != nil {
		return r, err
	}

	r.ReportedAt = hotspot.ParseTimestamp(rec[fieldReportedAt])
	return r, nil
}

// recordType returns the incident type, preferring crimeType over
// incidentType. Scalar non-string values are used in their JSON text form.
func recordType(rec map[string]interface{}) (string, bool, error) {
	for _, key := range []string{fieldType, fieldTypeAlt} {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return val, true, nil
		case json.Number:
			return val.String(), true, nil
		case bool:
			return strconv.FormatBool(val), true, nil
		default:
			return "", false, fmt.Errorf("%s: expected string, got %s", key, jsonKind(v))
		}
	}
	return "", false, nil
}

// coordinate reads a numeric field. Absent and null values are 0; numeric
// strings are accepted. NaN and infinities are rejected.
func coordinate(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not a number", key, val)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%s: %q is not a finite number", key, val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s: expected number, got %s", key, jsonKind(v))
	}
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
