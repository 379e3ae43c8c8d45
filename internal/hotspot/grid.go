package hotspot

import (
	"fmt"
	"math"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

const (
	// gridMinReports is the number of reports a grid node needs within the
	// radius ceiling to become a candidate.
	gridMinReports = 2
	// gridKeep is how many of the densest grid nodes are kept.
	gridKeep = 5
	// MaxGridNodes bounds the grid laid over one incident type.
	MaxGridNodes = 250000
)

// GridStrategy scores the nodes of a regular grid laid over the bounding box
// of the reports. Candidates are centred on grid nodes, not re-centred on the
// data, and always carry the full radius ceiling.
type GridStrategy struct {
	spacing   float64
	maxRadius float64
}

// NewGridStrategy creates a grid-density stage. The grid spacing is eps, so
// it inherits eps's degree-based approximation of distance.
func NewGridStrategy(cfg Config) *GridStrategy {
	return &GridStrategy{spacing: cfg.Eps, maxRadius: cfg.MaxRadius}
}

// Name implements Strategy.
func (s *GridStrategy) Name() string { return MethodGrid }

// Attempt implements Strategy.
func (s *GridStrategy) Attempt(in TypeInput) ([]Cluster, error) {
	bounds, ok := geo.BoundsOf(in.Points)
	if !ok {
		return nil, nil
	}

	lats, err := gridAxis(bounds.MinLat, bounds.MaxLat, s.spacing)
	if err != nil {
		return nil, err
	}
	lngs, err := gridAxis(bounds.MinLng, bounds.MaxLng, s.spacing)
	if err != nil {
		return nil, err
	}
	if len(lats)*len(lngs) > MaxGridNodes {
		return nil, fmt.Errorf("grid of %dx%d nodes exceeds limit %d", len(lats), len(lngs), MaxGridNodes)
	}

	var clusters []Cluster
	for _, lat := range lats {
		for _, lng := range lngs {
			node := geo.Point{Lat: lat, Lng: lng}

			count := 0
			density := 0.0
			for i, p := range in.Points {
				if geo.Haversine(node, p) <= s.maxRadius {
					count++
					density += in.Weights[i]
				}
			}
			if count < gridMinReports {
				continue
			}

			clusters = append(clusters, Cluster{
				Center:      node,
				Radius:      s.maxRadius,
				Density:     density,
				PrimaryType: in.Type,
				Count:       count,
				Method:      MethodGrid,
			})
		}
	}

	sortByDensity(clusters)
	if len(clusters) > gridKeep {
		clusters = clusters[:gridKeep]
	}
	return clusters, nil
}

// gridAxis returns min, min+step, ... for every value below max+step.
func gridAxis(lo, hi, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("invalid grid spacing %v", step)
	}

	n := int(math.Ceil((hi + step - lo) / step))
	if n < 1 {
		n = 1
	}
	if n > MaxGridNodes {
		return nil, fmt.Errorf("grid axis of %d nodes exceeds limit %d", n, MaxGridNodes)
	}

	axis := make([]float64, n)
	for i := range axis {
		axis[i] = lo + float64(i)*step
	}
	return axis, nil
}
