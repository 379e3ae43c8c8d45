package render

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/geo"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

var testClusters = []hotspot.Cluster{
	{Center: geo.Point{Lat: 38.90, Lng: -77.03}, Radius: 0.4, Density: 3.2, PrimaryType: "theft", Count: 4, Method: hotspot.MethodDBSCAN},
	{Center: geo.Point{Lat: 38.95, Lng: -77.00}, Radius: 1, Density: 0.8, PrimaryType: "theft", Count: 1, Method: hotspot.MethodFallback},
	{Center: geo.Point{Lat: 38.88, Lng: -76.99}, Radius: 1, Density: 1, PrimaryType: "arson", Count: 1},
}

var testReports = []hotspot.Report{
	{Lat: 38.901, Lng: -77.031, Type: "theft", HasType: true},
	{Lat: 38.88, Lng: -76.99, Type: "arson", HasType: true},
}

func TestChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, testClusters, testReports, ChartOptions{Title: "DC hotspots"}))

	html := buf.String()
	assert.Contains(t, html, "DC hotspots")
	assert.Contains(t, html, "theft")
	assert.Contains(t, html, "arson")
	assert.Contains(t, html, "arson single r")
	assert.Contains(t, html, "1.00km n")
}

func TestChart_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Chart(&buf, nil, nil, ChartOptions{}))
	assert.Contains(t, buf.String(), "Incident Hotspots")
}

func TestSymbolSize(t *testing.T) {
	assert.Equal(t, minSymbolSize, symbolSize(1, 0))
	assert.Equal(t, maxSymbolSize, symbolSize(4, 4))
	assert.Equal(t, minSymbolSize+20, symbolSize(2, 4))
}

func TestByType(t *testing.T) {
	groups := byType(testClusters)
	require.Len(t, groups, 2)
	assert.Equal(t, "theft", groups[0].typ)
	assert.Len(t, groups[0].clusters, 2)
	assert.Equal(t, "arson", groups[1].typ)
}

func TestWritePlot(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, testClusters, testReports, ""))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")), "expected PNG signature")
}

func TestSavePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotspots.png")
	require.NoError(t, SavePlot(path, testClusters, nil, "overlay"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
