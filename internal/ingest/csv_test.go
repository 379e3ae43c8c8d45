package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csvNow = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestParseCSV(t *testing.T) {
	data := "\ufeffREPORT_DATE,standardized_offense,offense_group,latitude,longitude,ward\n" +
		"45292,THEFT/OTHER,property,38.9,-77.03,2\n" +
		"2024/01/02 10:00:00+00,,violent,38.91,-77.02,6\n" +
		",,,38.92,-77.01,1\n" +
		"garbage,ROBBERY,violent,0,-77.0,1\n" +
		"2024-01-03T00:00:00Z,HOMICIDE,violent,38.93,n/a,1\n" +
		"1/4/2024,ARSON,property,38.94,-77.0\n"

	reports, err := ParseCSV(strings.NewReader(data), csvNow)
	require.NoError(t, err)
	require.Len(t, reports, 4)

	assert.Equal(t, "THEFT/OTHER", reports[0].Type)
	assert.Equal(t, 38.9, reports[0].Lat)
	assert.Equal(t, -77.03, reports[0].Lng)
	assert.True(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Equal(reports[0].ReportedAt.Time))

	assert.Equal(t, "violent", reports[1].Type)
	assert.True(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC).Equal(reports[1].ReportedAt.Time))

	assert.Equal(t, "UNKNOWN", reports[2].Type)
	assert.True(t, csvNow.Equal(reports[2].ReportedAt.Time))

	assert.Equal(t, "ARSON", reports[3].Type)
	assert.True(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC).Equal(reports[3].ReportedAt.Time))

	for _, r := range reports {
		assert.True(t, r.HasType)
		assert.True(t, r.ReportedAt.Valid)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	reports, err := ParseCSV(strings.NewReader(""), csvNow)
	require.NoError(t, err)
	assert.Empty(t, reports)

	reports, err = ParseCSV(strings.NewReader("latitude,longitude\n"), csvNow)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestParseCSV_Malformed(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("latitude,longitude\n38.\"9,-77\n"), csvNow)
	assert.Error(t, err)
}

func TestParseReportDate(t *testing.T) {
	assert.True(t, csvNow.Equal(parseReportDate("", csvNow)))
	assert.True(t, csvNow.Equal(parseReportDate("last tuesday", csvNow)))

	// Half a day past the 2024-01-01 serial.
	got := parseReportDate("45292.5", csvNow)
	assert.True(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Equal(got), "got %v", got)
}
