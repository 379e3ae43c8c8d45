package hotspot

import "github.com/banshee-data/hotspot.report/internal/geo"

// SinglePointStrategy handles an incident type with exactly one report: the
// report becomes its own cluster. It produces nothing for any other input
// size, which lets the cascade move on.
type SinglePointStrategy struct {
	maxRadius float64
}

// NewSinglePointStrategy creates the single-report stage.
func NewSinglePointStrategy(cfg Config) *SinglePointStrategy {
	return &SinglePointStrategy{maxRadius: cfg.MaxRadius}
}

// Name implements Strategy.
func (s *SinglePointStrategy) Name() string { return "single" }

// Exhaustive implements Exhaustive.
func (s *SinglePointStrategy) Exhaustive() bool { return true }

// Attempt implements Strategy.
func (s *SinglePointStrategy) Attempt(in TypeInput) ([]Cluster, error) {
	if in.Len() != 1 {
		return nil, nil
	}
	return []Cluster{{
		Center:      in.Points[0],
		Radius:      s.maxRadius,
		Density:     in.Weights[0],
		PrimaryType: in.Type,
		Count:       1,
	}}, nil
}

// BestPointStrategy is the last resort: it anchors a single cluster on the
// report with the heaviest neighbourhood. The cluster reports the anchor's
// own weight and a count of one, not the neighbourhood totals.
type BestPointStrategy struct {
	maxRadius float64
}

// NewBestPointStrategy creates the best-point fallback stage.
func NewBestPointStrategy(cfg Config) *BestPointStrategy {
	return &BestPointStrategy{maxRadius: cfg.MaxRadius}
}

// Name implements Strategy.
func (s *BestPointStrategy) Name() string { return MethodFallback }

// Exhaustive implements Exhaustive.
func (s *BestPointStrategy) Exhaustive() bool { return true }

// Attempt implements Strategy.
func (s *BestPointStrategy) Attempt(in TypeInput) ([]Cluster, error) {
	if in.Len() == 0 {
		return nil, nil
	}

	best, bestDensity := 0, 0.0
	for i, p := range in.Points {
		density := 0.0
		for j, q := range in.Points {
			if geo.Haversine(p, q) <= s.maxRadius {
				density += in.Weights[j]
			}
		}
		if density > bestDensity {
			best, bestDensity = i, density
		}
	}

	tracef("type=%q fallback anchor %d neighbourhood weight %.4f", in.Type, best, bestDensity)
	return []Cluster{{
		Center:      in.Points[best],
		Radius:      s.maxRadius,
		Density:     in.Weights[best],
		PrimaryType: in.Type,
		Count:       1,
		Method:      MethodFallback,
	}}, nil
}
