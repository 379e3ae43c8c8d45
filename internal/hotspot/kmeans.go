package hotspot

import (
	"math"
	"math/rand"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

const (
	// kmeansSeed fixes initialisation so repeated runs are identical.
	kmeansSeed = 42
	// kmeansMaxIter bounds Lloyd iterations per k.
	kmeansMaxIter = 300
	// kmeansMaxK is the exclusive upper bound of the k sweep.
	kmeansMaxK = 20
	// kmeansKeep is how many of the densest partition groups are kept.
	kmeansKeep = 10
	// kmeansMinGroup is the smallest partition group worth reporting.
	kmeansMinGroup = 2
)

// KMeansStrategy sweeps the number of partitions and keeps the compact,
// dense groups found at any k. It runs only when DBSCAN found nothing, which
// usually means the reports are too sparse for eps.
type KMeansStrategy struct {
	maxRadius float64
	seed      int64
}

// NewKMeansStrategy creates a partition-sweep stage from the engine configuration.
func NewKMeansStrategy(cfg Config) *KMeansStrategy {
	return &KMeansStrategy{maxRadius: cfg.MaxRadius, seed: kmeansSeed}
}

// Name implements Strategy.
func (s *KMeansStrategy) Name() string { return "kmeans" }

// SweepRange returns the k values tried for n reports: from max(2, n/3) up
// to, but not including, min(n/2+1, 20). The range is empty for n < 4.
func SweepRange(n int) (lo, hi int) {
	return max(2, n/3), min(n/2+1, kmeansMaxK)
}

// Attempt implements Strategy.
func (s *KMeansStrategy) Attempt(in TypeInput) ([]Cluster, error) {
	lo, hi := SweepRange(in.Len())

	var clusters []Cluster
	for k := lo; k < hi; k++ {
		rng := rand.New(rand.NewSource(s.seed))
		assign := KMeans(in.Points, k, rng, kmeansMaxIter)

		groups := make([][]int, k)
		for i, g := range assign {
			groups[g] = append(groups[g], i)
		}

		for _, members := range groups {
			if len(members) < kmeansMinGroup {
				continue
			}
			points, weights := subset(in, members)
			center, radius, density, ok := summarise(points, weights, s.maxRadius)
			if !ok {
				continue
			}
			clusters = append(clusters, Cluster{
				Center:      center,
				Radius:      radius,
				Density:     density,
				PrimaryType: in.Type,
				Count:       len(members),
				Method:      MethodKMeans(k),
			})
		}
		tracef("type=%q kmeans k=%d accepted=%d", in.Type, k, len(clusters))
	}

	sortByDensity(clusters)
	if len(clusters) > kmeansKeep {
		clusters = clusters[:kmeansKeep]
	}
	return clusters, nil
}

// KMeans partitions points into k groups with k-means++ seeding followed by
// Lloyd iterations in degree space. It returns the group index of every
// point. A group that empties keeps its previous centre.
func KMeans(points []geo.Point, k int, rng *rand.Rand, maxIter int) []int {
	n := len(points)
	assign := make([]int, n)
	if n == 0 || k <= 0 {
		return assign
	}
	if k > n {
		k = n
	}

	centers := seedCenters(points, k, rng)
	for i := range assign {
		assign[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCenter(p, centers)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([]geo.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			g := assign[i]
			sums[g].Lat += p.Lat
			sums[g].Lng += p.Lng
			counts[g]++
		}
		for g := range centers {
			if counts[g] == 0 {
				continue
			}
			centers[g] = geo.Point{
				Lat: sums[g].Lat / float64(counts[g]),
				Lng: sums[g].Lng / float64(counts[g]),
			}
		}
	}
	return assign
}

// seedCenters picks k initial centres with k-means++: each new centre is
// drawn with probability proportional to its squared distance from the
// nearest centre already chosen.
func seedCenters(points []geo.Point, k int, rng *rand.Rand) []geo.Point {
	centers := make([]geo.Point, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	d2 := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			d := geo.Euclidean(p, centers[nearestCenter(p, centers)])
			d2[i] = d * d
			total += d2[i]
		}

		if total == 0 {
			// Every point coincides with a centre already.
			centers = append(centers, points[rng.Intn(len(points))])
			continue
		}

		target := rng.Float64() * total
		pick := len(points) - 1
		acc := 0.0
		for i, d := range d2 {
			acc += d
			if acc >= target && d > 0 {
				pick = i
				break
			}
		}
		centers = append(centers, points[pick])
	}
	return centers
}

func nearestCenter(p geo.Point, centers []geo.Point) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range centers {
		if d := geo.Euclidean(p, c); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
