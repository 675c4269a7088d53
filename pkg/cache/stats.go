package cache

import (
	"sync/atomic"
	"time"
)

// RemovalCause says why an entry left a store.
type RemovalCause string

// Removal causes.
const (
	Explicit  RemovalCause = "EXPLICIT"
	Replaced  RemovalCause = "REPLACED"
	Expired   RemovalCause = "EXPIRED"
	Size      RemovalCause = "SIZE"
	Collected RemovalCause = "COLLECTED"
)

// Causes lists every removal cause. Collected never occurs; it is kept so
// the stats shape is stable.
var Causes = []RemovalCause{Explicit, Replaced, Expired, Size, Collected}

// evicted reports whether the cause counts as an eviction rather than a
// user-initiated removal.
func (c RemovalCause) evicted() bool {
	return c == Expired || c == Size || c == Collected
}

// statistics holds the counters of one store.
type statistics struct {
	hits          atomic.Int64
	misses        atomic.Int64
	loadSuccesses atomic.Int64
	loadFailures  atomic.Int64
	loadTime      atomic.Int64 // nanoseconds
	removals      [5]atomic.Int64
}

func causeIndex(c RemovalCause) int {
	for i, cc := range Causes {
		if cc == c {
			return i
		}
	}
	return len(Causes) - 1
}

func (s *statistics) hit()  { s.hits.Add(1) }
func (s *statistics) miss() { s.misses.Add(1) }

func (s *statistics) loadSuccess(d time.Duration) {
	s.loadSuccesses.Add(1)
	s.loadTime.Add(int64(d))
}

func (s *statistics) loadFailure(d time.Duration) {
	s.loadFailures.Add(1)
	s.loadTime.Add(int64(d))
}

func (s *statistics) removal(c RemovalCause) {
	s.removals[causeIndex(c)].Add(1)
}

// Stats is a snapshot of one store's counters. Hit, miss and load counters
// stay zero unless the store's spec has recordStats.
type Stats struct {
	Requests           int64                  `json:"requests"`
	Hits               int64                  `json:"hits"`
	Misses             int64                  `json:"misses"`
	HitRate            float64                `json:"hitRate"`
	MissRate           float64                `json:"missRate"`
	LoadSuccesses      int64                  `json:"loadSuccesses"`
	LoadFailures       int64                  `json:"loadFailures"`
	TotalLoadTime      time.Duration          `json:"totalLoadTimeNs"`
	AverageLoadPenalty time.Duration          `json:"averageLoadPenaltyNs"`
	Evictions          int64                  `json:"evictions"`
	Removals           map[RemovalCause]int64 `json:"removals"`
	Size               int                    `json:"size"`
}

func (s *statistics) snapshot(size int) Stats {
	st := Stats{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		LoadSuccesses: s.loadSuccesses.Load(),
		LoadFailures:  s.loadFailures.Load(),
		TotalLoadTime: time.Duration(s.loadTime.Load()),
		Removals:      make(map[RemovalCause]int64, len(Causes)),
		Size:          size,
	}
	st.Requests = st.Hits + st.Misses
	if st.Requests == 0 {
		st.HitRate = 1
	} else {
		st.HitRate = float64(st.Hits) / float64(st.Requests)
		st.MissRate = float64(st.Misses) / float64(st.Requests)
	}
	if loads := st.LoadSuccesses + st.LoadFailures; loads > 0 {
		st.AverageLoadPenalty = st.TotalLoadTime / time.Duration(loads)
	}
	for i, c := range Causes {
		n := s.removals[i].Load()
		st.Removals[c] = n
		if c.evicted() {
			st.Evictions += n
		}
	}
	return st
}
