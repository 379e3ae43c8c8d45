package hotspot

import (
	"github.com/banshee-data/hotspot.report/internal/geo"
)

// DBSCANStrategy clusters reports by mutual proximity in degree space.
// Neighbourhoods are found by brute-force pairwise comparison; inputs are
// one incident type of one batch, so no spatial index is kept.
type DBSCANStrategy struct {
	eps        float64
	minSamples int
	maxRadius  float64
}

// NewDBSCANStrategy creates a DBSCAN stage from the engine configuration.
func NewDBSCANStrategy(cfg Config) *DBSCANStrategy {
	return &DBSCANStrategy{
		eps:        cfg.Eps,
		minSamples: cfg.MinSamples,
		maxRadius:  cfg.MaxRadius,
	}
}

// Name implements Strategy.
func (s *DBSCANStrategy) Name() string { return MethodDBSCAN }

// Attempt implements Strategy. Each non-noise group becomes a cluster centred
// on its weighted centroid; groups wider than the radius ceiling are dropped.
func (s *DBSCANStrategy) Attempt(in TypeInput) ([]Cluster, error) {
	if in.Len() == 0 {
		return nil, nil
	}

	labels, n := DBSCAN(in.Points, s.eps, s.minSamples)

	var clusters []Cluster
	for cid := 1; cid <= n; cid++ {
		var members []int
		for i, label := range labels {
			if label == cid {
				members = append(members, i)
			}
		}
		if len(members) == 0 {
			continue
		}

		points, weights := subset(in, members)
		center, radius, density, ok := summarise(points, weights, s.maxRadius)
		if !ok {
			tracef("type=%q dbscan group %d rejected: radius %.3f km > %.3f km", in.Type, cid, radius, s.maxRadius)
			continue
		}

		clusters = append(clusters, Cluster{
			Center:      center,
			Radius:      radius,
			Density:     density,
			PrimaryType: in.Type,
			Count:       len(members),
			Method:      MethodDBSCAN,
		})
	}
	return clusters, nil
}

// Label values used by DBSCAN.
const (
	labelUnvisited = 0
	labelNoise     = -1
)

// DBSCAN labels points with cluster IDs 1..n, or -1 for noise. A point is a
// core point when at least minPts points, itself included, lie within eps of
// it (Euclidean distance in degrees). Cluster IDs are assigned in the order
// core points are first reached.
func DBSCAN(points []geo.Point, eps float64, minPts int) (labels []int, n int) {
	labels = make([]int, len(points))
	clusterID := 0

	for i := range points {
		if labels[i] != labelUnvisited {
			continue
		}

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			labels[i] = labelNoise
			continue
		}

		clusterID++
		expandCluster(points, labels, i, neighbors, clusterID, eps, minPts)
	}

	return labels, clusterID
}

// expandCluster grows a cluster outward from a core point.
func expandCluster(points []geo.Point, labels []int, seedIdx int, neighbors []int, clusterID int, eps float64, minPts int) {
	labels[seedIdx] = clusterID

	for j := 0; j < len(neighbors); j++ {
		idx := neighbors[j]

		if labels[idx] == labelNoise {
			labels[idx] = clusterID // noise becomes a border point
		}
		if labels[idx] != labelUnvisited {
			continue
		}

		labels[idx] = clusterID
		next := regionQuery(points, idx, eps)
		if len(next) >= minPts {
			neighbors = append(neighbors, next...)
		}
	}
}

// regionQuery returns the indices of all points within eps of points[idx].
func regionQuery(points []geo.Point, idx int, eps float64) []int {
	p := points[idx]
	var neighbors []int
	for j, q := range points {
		if geo.Euclidean(p, q) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}
