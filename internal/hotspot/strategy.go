package hotspot

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

// Strategy is one stage of the clustering cascade. Attempt returns the
// candidate clusters it found for a single incident type. Returning no
// clusters and returning an error are treated identically by the cascade:
// both advance to the next stage.
type Strategy interface {
	// Name identifies the strategy in logs and run statistics.
	Name() string

	// Attempt clusters the reports of one incident type.
	Attempt(in TypeInput) ([]Cluster, error)
}

// Exhaustive is implemented by strategies whose output already accounts for
// every report they were given. Reports left uncovered by other strategies
// are emitted as single-report fallback candidates.
type Exhaustive interface {
	Exhaustive() bool
}

// StrategyError records a strategy that failed on one incident type.
type StrategyError struct {
	Strategy string
	Type     string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("%s clustering failed for type %q: %v", e.Strategy, e.Type, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// DefaultStrategies returns the cascade in its fixed order: single report,
// density-based, partition sweep, grid density, best point.
func DefaultStrategies(cfg Config) []Strategy {
	return []Strategy{
		NewSinglePointStrategy(cfg),
		NewDBSCANStrategy(cfg),
		NewKMeansStrategy(cfg),
		NewGridStrategy(cfg),
		NewBestPointStrategy(cfg),
	}
}

// attempt runs s with panics converted into a StrategyError so that a
// numerical failure on degenerate input cannot take down the run.
func attempt(s Strategy, in TypeInput) (clusters []Cluster, err error) {
	defer func() {
		if r := recover(); r != nil {
			clusters = nil
			err = &StrategyError{Strategy: s.Name(), Type: in.Type, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	clusters, err = s.Attempt(in)
	if err != nil {
		var serr *StrategyError
		if !errors.As(err, &serr) {
			err = &StrategyError{Strategy: s.Name(), Type: in.Type, Err: err}
		}
	}
	return clusters, err
}

// TypeResult is the outcome of the cascade for one incident type.
type TypeResult struct {
	Type       string
	Reports    int
	Strategy   string // winning strategy, empty when none produced clusters
	Failures   []error
	Candidates []Cluster
}

// runCascade tries strategies in order and returns the first non-empty,
// invariant-compliant candidate set. When the winner is not exhaustive, every
// report it left uncovered is added as a single-report fallback candidate, so
// the short circuit never drops an isolated report before selection.
func runCascade(strategies []Strategy, cfg Config, in TypeInput) TypeResult {
	res := TypeResult{Type: in.Type, Reports: in.Len()}
	if in.Len() == 0 {
		return res
	}

	for _, s := range strategies {
		clusters, err := attempt(s, in)
		if err != nil {
			opsf("%v", err)
			res.Failures = append(res.Failures, err)
			continue
		}

		clusters = compliant(clusters, cfg, s.Name())
		if len(clusters) == 0 {
			tracef("type=%q strategy=%s produced no compliant clusters", in.Type, s.Name())
			continue
		}

		if ex, ok := s.(Exhaustive); !ok || !ex.Exhaustive() {
			clusters = compliant(coverIsolated(clusters, in, cfg), cfg, MethodFallback)
		}

		res.Strategy = s.Name()
		res.Candidates = clusters
		diagf("type=%q reports=%d strategy=%s candidates=%d", in.Type, in.Len(), s.Name(), len(clusters))
		return res
	}

	diagf("type=%q reports=%d produced no clusters", in.Type, in.Len())
	return res
}

// compliant drops any candidate that violates the emitted-cluster invariants.
func compliant(clusters []Cluster, cfg Config, strategy string) []Cluster {
	out := clusters[:0:0]
	for _, c := range clusters {
		if !c.valid(cfg) {
			tracef("strategy=%s dropped non-compliant cluster type=%q radius=%.4f count=%d density=%.4f",
				strategy, c.PrimaryType, c.Radius, c.Count, c.Density)
			continue
		}
		out = append(out, c)
	}
	return out
}

// coverIsolated appends a single-report fallback candidate for every report
// that lies outside all of the given clusters.
func coverIsolated(clusters []Cluster, in TypeInput, cfg Config) []Cluster {
	out := clusters
	for i, p := range in.Points {
		covered := false
		for _, c := range clusters {
			if geo.Haversine(c.Center, p) <= c.Radius {
				covered = true
				break
			}
		}
		if covered || in.Weights[i] <= 0 {
			continue
		}
		tracef("type=%q isolated report at (%.6f, %.6f) kept as fallback", in.Type, p.Lat, p.Lng)
		out = append(out, Cluster{
			Center:      p,
			Radius:      cfg.MaxRadius,
			Density:     in.Weights[i],
			PrimaryType: in.Type,
			Count:       1,
			Method:      MethodFallback,
		})
	}
	return out
}

// summarise computes the weighted centroid, radius and density of a group of
// points. The centroid falls back to the unweighted mean when the weights sum
// to zero. ok is false when the radius exceeds maxRadius: oversized groups
// are discarded rather than clipped, since clipping would misstate density.
func summarise(points []geo.Point, weights []float64, maxRadius float64) (center geo.Point, radius, density float64, ok bool) {
	lats := make([]float64, len(points))
	lngs := make([]float64, len(points))
	for i, p := range points {
		lats[i] = p.Lat
		lngs[i] = p.Lng
	}

	density = floats.Sum(weights)
	w := weights
	if density <= 0 {
		w = nil
	}
	center = geo.Point{Lat: stat.Mean(lats, w), Lng: stat.Mean(lngs, w)}

	dists := make([]float64, len(points))
	for i, p := range points {
		dists[i] = geo.Haversine(center, p)
	}
	radius = floats.Max(dists)
	if radius > maxRadius {
		return center, radius, density, false
	}
	if radius < MinRadiusKm {
		radius = MinRadiusKm
		if radius > maxRadius {
			radius = maxRadius
		}
	}
	return center, radius, density, true
}

// subset gathers the points and weights selected by idx.
func subset(in TypeInput, idx []int) ([]geo.Point, []float64) {
	points := make([]geo.Point, len(idx))
	weights := make([]float64, len(idx))
	for i, j := range idx {
		points[i] = in.Points[j]
		weights[i] = in.Weights[j]
	}
	return points, weights
}

// sortByDensity orders clusters by density, highest first. Ties keep their
// original order.
func sortByDensity(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Density > clusters[j].Density
	})
}
