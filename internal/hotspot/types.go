package hotspot

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

// Constants for the default engine configuration.
const (
	// DefaultEps is the DBSCAN neighbourhood radius in coordinate degrees
	// (roughly 1 km at mid latitudes; 1/111 of a degree of latitude). It is
	// not corrected for the shrinking longitude degree at high latitudes.
	DefaultEps = 0.009
	// DefaultMinSamples is the minimum neighbourhood size, the point itself
	// included, for a DBSCAN core point.
	DefaultMinSamples = 2
	// DefaultDecayFactor scales the recency weight of every dated report.
	DefaultDecayFactor = 0.8
	// DefaultMaxRadiusKm is the hard ceiling on an emitted cluster radius.
	DefaultMaxRadiusKm = 1.0
	// DefaultMaxClustersPerType caps the emitted clusters per incident type.
	DefaultMaxClustersPerType = 2

	// MinRadiusKm is the radius given to a geometric cluster whose members
	// all share one coordinate. Emitted radii are always strictly positive.
	MinRadiusKm = 0.01
)

// Method labels recorded on emitted clusters.
const (
	MethodDBSCAN   = "dbscan"
	MethodGrid     = "grid"
	MethodFallback = "fallback"
)

// MethodKMeans returns the method label for a partition found with k groups.
func MethodKMeans(k int) string {
	return fmt.Sprintf("kmeans_%d", k)
}

// Config holds the five tunable scalars of the engine. It is immutable for
// the duration of a run.
type Config struct {
	Eps                float64 // DBSCAN radius and grid spacing, in degrees
	MinSamples         int     // DBSCAN core-point threshold
	DecayFactor        float64 // Time-weight multiplier
	MaxRadius          float64 // Cluster radius ceiling in km
	MaxClustersPerType int     // Output cap per incident type
}

// DefaultConfig returns the production-default engine configuration.
func DefaultConfig() Config {
	return Config{
		Eps:                DefaultEps,
		MinSamples:         DefaultMinSamples,
		DecayFactor:        DefaultDecayFactor,
		MaxRadius:          DefaultMaxRadiusKm,
		MaxClustersPerType: DefaultMaxClustersPerType,
	}
}

// Timestamp is an optional report time. The zero value is "absent".
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// At returns a valid Timestamp for t.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// Report is one incident report as read from the input batch.
type Report struct {
	Lat, Lng   float64
	Type       string
	HasType    bool // false when the record carried no type field
	ReportedAt Timestamp
}

// Point returns the report location.
func (r Report) Point() geo.Point {
	return geo.Point{Lat: r.Lat, Lng: r.Lng}
}

// WeightedReport is a Report with its recency weight attached.
type WeightedReport struct {
	Report
	TimeWeight float64
}

// Cluster is one emitted hotspot.
type Cluster struct {
	Center      geo.Point
	Radius      float64 // km
	Density     float64 // sum of member time weights
	PrimaryType string
	Count       int
	Method      string // empty for the single-report trivial cluster
}

type clusterJSON struct {
	Center      [2]float64 `json:"center"`
	Radius      float64    `json:"radius"`
	Density     float64    `json:"density"`
	PrimaryType string     `json:"primary_type"`
	Count       int        `json:"count"`
	Method      string     `json:"method,omitempty"`
}

// MarshalJSON encodes the cluster with center as a [lat, lng] pair.
func (c Cluster) MarshalJSON() ([]byte, error) {
	return json.Marshal(clusterJSON{
		Center:      [2]float64{c.Center.Lat, c.Center.Lng},
		Radius:      c.Radius,
		Density:     c.Density,
		PrimaryType: c.PrimaryType,
		Count:       c.Count,
		Method:      c.Method,
	})
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (c *Cluster) UnmarshalJSON(data []byte) error {
	var raw clusterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Cluster{
		Center:      geo.Point{Lat: raw.Center[0], Lng: raw.Center[1]},
		Radius:      raw.Radius,
		Density:     raw.Density,
		PrimaryType: raw.PrimaryType,
		Count:       raw.Count,
		Method:      raw.Method,
	}
	return nil
}

// valid reports whether c satisfies the emitted-cluster invariants for cfg.
// Every float must be finite for the cluster to be encodable.
func (c Cluster) valid(cfg Config) bool {
	for _, f := range []float64{c.Center.Lat, c.Center.Lng, c.Radius, c.Density} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return c.Radius > 0 && c.Radius <= cfg.MaxRadius && c.Count >= 1 && c.Density > 0
}
