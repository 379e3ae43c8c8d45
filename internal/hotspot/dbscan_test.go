package hotspot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

func typeInput(typ string, points ...geo.Point) TypeInput {
	weights := make([]float64, len(points))
	for i := range weights {
		weights[i] = 1
	}
	return TypeInput{Type: typ, Points: points, Weights: weights}
}

func TestDBSCAN_ChainAndNoise(t *testing.T) {
	points := []geo.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 0.005},
		{Lat: 0, Lng: 0.01},
		{Lat: 1, Lng: 1},
	}

	labels, n := DBSCAN(points, 0.009, 2)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1, 1, 1, -1}, labels)
}

func TestDBSCAN_InclusiveEps(t *testing.T) {
	points := []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.009}}

	_, n := DBSCAN(points, 0.009, 2)
	assert.Equal(t, 1, n, "points exactly eps apart are neighbours")
}

func TestDBSCAN_MinSamplesCountsSelf(t *testing.T) {
	points := []geo.Point{{Lat: 0, Lng: 0}, {Lat: 5, Lng: 5}}

	labels, n := DBSCAN(points, 0.009, 1)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{1, 2}, labels)

	labels, n = DBSCAN(points, 0.009, 2)
	assert.Equal(t, 0, n)
	assert.Equal(t, []int{-1, -1}, labels)
}

func TestDBSCANStrategy_Attempt(t *testing.T) {
	s := NewDBSCANStrategy(DefaultConfig())
	in := typeInput("theft",
		geo.Point{Lat: 1, Lng: 1},
		geo.Point{Lat: 1.001, Lng: 1.001},
		geo.Point{Lat: 5, Lng: 5},
	)

	clusters, err := s.Attempt(in)
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, MethodDBSCAN, c.Method)
	assert.Equal(t, 2, c.Count)
	assert.Equal(t, 2.0, c.Density)
	assert.InDelta(t, 1.0005, c.Center.Lat, 1e-9)
	assert.InDelta(t, 1.0005, c.Center.Lng, 1e-9)
	assert.Greater(t, c.Radius, 0.0)
	assert.LessOrEqual(t, c.Radius, DefaultMaxRadiusKm)
}

func TestDBSCANStrategy_WeightedCentroid(t *testing.T) {
	s := NewDBSCANStrategy(DefaultConfig())
	in := TypeInput{
		Type:    "assault",
		Points:  []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.004}},
		Weights: []float64{3, 1},
	}

	clusters, err := s.Attempt(in)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.InDelta(t, 0.001, clusters[0].Center.Lng, 1e-12)
	assert.Equal(t, 4.0, clusters[0].Density)
}

func TestDBSCANStrategy_RejectsWideGroups(t *testing.T) {
	s := NewDBSCANStrategy(DefaultConfig())

	// A chain of points 0.008 degrees apart links into one group spanning
	// several kilometres.
	var points []geo.Point
	for i := 0; i < 5; i++ {
		points = append(points, geo.Point{Lat: float64(i) * 0.008, Lng: 0})
	}

	clusters, err := s.Attempt(typeInput("theft", points...))
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestDBSCANStrategy_CoincidentPointsGetMinRadius(t *testing.T) {
	s := NewDBSCANStrategy(DefaultConfig())
	p := geo.Point{Lat: 38.9, Lng: -77.03}

	clusters, err := s.Attempt(typeInput("theft", p, p, p))
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, MinRadiusKm, clusters[0].Radius)
	assert.Equal(t, 3, clusters[0].Count)
}
