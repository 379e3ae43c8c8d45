package hotspot

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

func TestSweepRange(t *testing.T) {
	tests := []struct {
		n      int
		lo, hi int
	}{
		{0, 2, 1},
		{3, 2, 2},
		{4, 2, 3},
		{6, 2, 4},
		{30, 10, 16},
		{45, 15, 20},
		{60, 20, 20},
		{200, 66, 20},
	}
	for _, tt := range tests {
		lo, hi := SweepRange(tt.n)
		assert.Equal(t, tt.lo, lo, "lo for n=%d", tt.n)
		assert.Equal(t, tt.hi, hi, "hi for n=%d", tt.n)
	}
}

func blobs() []geo.Point {
	return []geo.Point{
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 10.0005},
		{Lat: 10.0005, Lng: 10},
		{Lat: 20, Lng: 20},
		{Lat: 20, Lng: 20.0005},
		{Lat: 20.0005, Lng: 20},
	}
}

func TestKMeans_SeparatesBlobs(t *testing.T) {
	assign := KMeans(blobs(), 2, rand.New(rand.NewSource(kmeansSeed)), kmeansMaxIter)

	require.Len(t, assign, 6)
	assert.Equal(t, assign[0], assign[1])
	assert.Equal(t, assign[0], assign[2])
	assert.Equal(t, assign[3], assign[4])
	assert.Equal(t, assign[3], assign[5])
	assert.NotEqual(t, assign[0], assign[3])
}

func TestKMeans_Deterministic(t *testing.T) {
	a := KMeans(blobs(), 3, rand.New(rand.NewSource(kmeansSeed)), kmeansMaxIter)
	b := KMeans(blobs(), 3, rand.New(rand.NewSource(kmeansSeed)), kmeansMaxIter)
	assert.Equal(t, a, b)
}

func TestKMeans_DegenerateInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Empty(t, KMeans(nil, 3, rng, 10))

	p := geo.Point{Lat: 1, Lng: 1}
	assign := KMeans([]geo.Point{p, p, p}, 5, rng, 10)
	assert.Len(t, assign, 3)
}

func TestKMeansStrategy_Attempt(t *testing.T) {
	s := NewKMeansStrategy(DefaultConfig())

	clusters, err := s.Attempt(typeInput("burglary", blobs()...))
	require.NoError(t, err)
	require.NotEmpty(t, clusters)
	assert.LessOrEqual(t, len(clusters), kmeansKeep)

	foundK2 := false
	for i, c := range clusters {
		assert.True(t, strings.HasPrefix(c.Method, "kmeans_"), c.Method)
		assert.GreaterOrEqual(t, c.Count, kmeansMinGroup)
		assert.LessOrEqual(t, c.Radius, DefaultMaxRadiusKm)
		if i > 0 {
			assert.GreaterOrEqual(t, clusters[i-1].Density, c.Density)
		}
		if c.Method == MethodKMeans(2) && c.Count == 3 {
			foundK2 = true
		}
	}
	assert.True(t, foundK2, "expected a k=2 group holding one whole blob")
}

func TestKMeansStrategy_TooFewReports(t *testing.T) {
	s := NewKMeansStrategy(DefaultConfig())
	clusters, err := s.Attempt(typeInput("theft",
		geo.Point{Lat: 0, Lng: 0},
		geo.Point{Lat: 1, Lng: 1},
		geo.Point{Lat: 2, Lng: 2},
	))
	require.NoError(t, err)
	assert.Empty(t, clusters)
}
