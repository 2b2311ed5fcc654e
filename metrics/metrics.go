// Package metrics defines the instrumentation surface for load and search
// operations: an interface any monitoring backend can implement, plus a
// no-op default and a simple atomic-counter implementation for callers
// that want in-process stats without wiring up a real backend.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector receives load and search events. Implement this to integrate
// with a monitoring system such as Prometheus.
type Collector interface {
	// RecordLoad is called once after IndexLoader.Load completes (whether
	// or not it succeeded). tagCount and denseTagCount are 0 on failure.
	RecordLoad(tagCount, denseTagCount int, duration time.Duration, err error)

	// RecordSearch is called once after Intersector.Search completes.
	// queryLen is the number of tags requested; resultCount is 0 on
	// failure or an empty result.
	RecordSearch(queryLen, resultCount int, duration time.Duration, err error)
}

// NoopCollector discards every event. It is the default when no
// collector is configured.
type NoopCollector struct{}

func (NoopCollector) RecordLoad(int, int, time.Duration, error)   {}
func (NoopCollector) RecordSearch(int, int, time.Duration, error) {}

// AtomicCollector accumulates simple in-memory counters using atomics, so
// it can be shared across concurrently searching goroutines without its
// own lock.
type AtomicCollector struct {
	LoadCount      atomic.Int64
	LoadErrors     atomic.Int64
	LoadTotalNanos atomic.Int64

	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	SearchResults    atomic.Int64
}

// RecordLoad implements Collector.
func (a *AtomicCollector) RecordLoad(tagCount, denseTagCount int, duration time.Duration, err error) {
	a.LoadCount.Add(1)
	a.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		a.LoadErrors.Add(1)
	}
}

// RecordSearch implements Collector.
func (a *AtomicCollector) RecordSearch(queryLen, resultCount int, duration time.Duration, err error) {
	a.SearchCount.Add(1)
	a.SearchTotalNanos.Add(duration.Nanoseconds())
	a.SearchResults.Add(int64(resultCount))
	if err != nil {
		a.SearchErrors.Add(1)
	}
}

// Stats is a point-in-time snapshot of an AtomicCollector.
type Stats struct {
	LoadCount       int64
	LoadErrors      int64
	LoadAvgNanos    int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	SearchAvgResult float64
}

// Snapshot returns the current counter values.
func (a *AtomicCollector) Snapshot() Stats {
	searchCount := a.SearchCount.Load()
	var avgResults float64
	if searchCount > 0 {
		avgResults = float64(a.SearchResults.Load()) / float64(searchCount)
	}
	return Stats{
		LoadCount:       a.LoadCount.Load(),
		LoadErrors:      a.LoadErrors.Load(),
		LoadAvgNanos:    avgNanos(a.LoadTotalNanos.Load(), a.LoadCount.Load()),
		SearchCount:     searchCount,
		SearchErrors:    a.SearchErrors.Load(),
		SearchAvgNanos:  avgNanos(a.SearchTotalNanos.Load(), searchCount),
		SearchAvgResult: avgResults,
	}
}

func avgNanos(totalNanos, count int64) int64 {
	if count == 0 {
		return 0
	}
	return totalNanos / count
}
