package hotspot

import (
	"runtime"
	"sync"
	"time"

	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// Engine runs the clustering cascade over a batch of reports. An Engine is
// safe for concurrent use; it holds no per-run state.
type Engine struct {
	cfg        Config
	clock      timeutil.Clock
	workers    int
	strategies []Strategy
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to fix "now" for time weighting.
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithWorkers bounds how many incident types are clustered concurrently.
// Values below one mean one.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = max(n, 1) }
}

// WithStrategies replaces the default cascade.
func WithStrategies(s ...Strategy) Option {
	return func(e *Engine) { e.strategies = s }
}

// NewEngine creates an engine for cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:        cfg,
		clock:      timeutil.RealClock{},
		workers:    runtime.GOMAXPROCS(0),
		strategies: DefaultStrategies(cfg),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// TypeStats summarises the cascade outcome for one incident type.
type TypeStats struct {
	Type       string `json:"type"`
	Reports    int    `json:"reports"`
	Strategy   string `json:"strategy,omitempty"`
	Failures   int    `json:"failures,omitempty"`
	Candidates int    `json:"candidates"`
	Emitted    int    `json:"emitted"`
}

// RunStats summarises one engine run.
type RunStats struct {
	Now      time.Time   `json:"now"`
	Reports  int         `json:"reports"`
	Untyped  int         `json:"untyped,omitempty"`
	Clusters int         `json:"clusters"`
	Types    []TypeStats `json:"types"`
}

// Run clusters reports and returns the selected hotspots.
func (e *Engine) Run(reports []Report) []Cluster {
	clusters, _ := e.RunWithStats(reports)
	return clusters
}

// RunWithStats clusters reports and also reports per-type outcomes.
func (e *Engine) RunWithStats(reports []Report) ([]Cluster, RunStats) {
	now := e.clock.Now()
	stats := RunStats{Now: now, Reports: len(reports)}

	rows := Prepare(reports, now, NewTimeWeighter(e.cfg.DecayFactor))
	groups, untyped := GroupByType(rows)
	stats.Untyped = untyped
	if untyped > 0 {
		diagf("skipped %d reports with no incident type", untyped)
	}

	results := e.clusterTypes(groups)
	clusters := Select(results, e.cfg.MaxClustersPerType)

	emitted := make(map[string]int)
	for _, c := range clusters {
		emitted[c.PrimaryType]++
	}
	for _, res := range results {
		stats.Types = append(stats.Types, TypeStats{
			Type:       res.Type,
			Reports:    res.Reports,
			Strategy:   res.Strategy,
			Failures:   len(res.Failures),
			Candidates: len(res.Candidates),
			Emitted:    emitted[res.Type],
		})
	}
	stats.Clusters = len(clusters)

	diagf("clustered %d reports across %d types into %d hotspots", len(reports), len(groups), len(clusters))
	return clusters, stats
}

// clusterTypes runs the cascade for every type on a bounded set of
// goroutines. Each goroutine writes only its own slot, so the merged
// result keeps the input's type order.
func (e *Engine) clusterTypes(groups []TypeInput) []TypeResult {
	results := make([]TypeResult, len(groups))
	if len(groups) == 0 {
		return results
	}

	workers := min(max(e.workers, 1), len(groups))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runCascade(e.strategies, e.cfg, groups[i])
			}
		}()
	}

	for i := range groups {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
