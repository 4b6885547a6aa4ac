package exportcache

import (
	"github.com/goliatone/go-export-cache/cache"
)

// Stats reports exporter activity since creation.
type Stats struct {
	Requests int64
	Hits     int64
	Misses   int64
	Failures int64
	// Shared counts calls that took the result of a concurrent call for the
	// same key. They are not counted as hits or misses.
	Shared   int64
	Bypassed int64
	// Entries is the number of values held by the store.
	Entries int
	// Cache is set when the store reports its own counters.
	Cache *cache.Stats
}

type statsReporter interface {
	Stats() cache.Stats
}

// Stats returns a snapshot of the exporter counters.
func (e *Exporter) Stats() Stats {
	s := Stats{
		Requests: e.requests.Value(),
		Hits:     e.hits.Value(),
		Misses:   e.misses.Value(),
		Failures: e.failures.Value(),
		Shared:   e.shared.Value(),
		Bypassed: e.bypassed.Value(),
		Entries:  e.store.Len(),
	}
	if r, ok := e.store.(statsReporter); ok {
		cs := r.Stats()
		s.Cache = &cs
	}
	return s
}

// HitRate returns hits over cached lookups, or 0 before the first one.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
