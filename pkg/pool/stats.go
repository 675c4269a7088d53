package pool

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubPoolStats is a point-in-time view of one sub-pool.
type SubPoolStats struct {
	Key                  string        `json:"key"`
	PoolName             string        `json:"poolName"`
	Total                int32         `json:"total"`
	Idle                 int32         `json:"idle"`
	Acquired             int32         `json:"acquired"`
	Constructing         int32         `json:"constructing"`
	Max                  int32         `json:"max"`
	AcquireCount         int64         `json:"acquireCount"`
	CanceledAcquireCount int64         `json:"canceledAcquireCount"`
	EmptyAcquireCount    int64         `json:"emptyAcquireCount"`
	AcquireDuration      time.Duration `json:"acquireDurationNs"`
	AvgAcquireWait       time.Duration `json:"avgAcquireWaitNs"`
}

// Stats returns one entry per sub-pool, ordered by key.
func (p *Pool) Stats() []SubPoolStats {
	keys := p.Keys()
	out := make([]SubPoolStats, 0, len(keys))
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, k := range keys {
		sp, ok := p.subs[k]
		if !ok {
			continue
		}
		s := sp.res.Stat()
		st := SubPoolStats{
			Key:                  k.String(),
			PoolName:             sp.desc.PoolName,
			Total:                s.TotalResources(),
			Idle:                 s.IdleResources(),
			Acquired:             s.AcquiredResources(),
			Constructing:         s.ConstructingResources(),
			Max:                  s.MaxResources(),
			AcquireCount:         s.AcquireCount(),
			CanceledAcquireCount: s.CanceledAcquireCount(),
			EmptyAcquireCount:    s.EmptyAcquireCount(),
			AcquireDuration:      s.AcquireDuration(),
		}
		if st.AcquireCount > 0 {
			st.AvgAcquireWait = st.AcquireDuration / time.Duration(st.AcquireCount)
		}
		out = append(out, st)
	}
	return out
}

var (
	connectionsDesc = prometheus.NewDesc(
		"mqfacade_pool_connections",
		"Connections per sub-pool by state.",
		[]string{"key", "pool", "state"}, nil,
	)
	maxDesc = prometheus.NewDesc(
		"mqfacade_pool_max_connections",
		"Configured maximum connections per sub-pool.",
		[]string{"key", "pool"}, nil,
	)
	acquiresDesc = prometheus.NewDesc(
		"mqfacade_pool_acquires_total",
		"Connection acquisitions per sub-pool by outcome.",
		[]string{"key", "pool", "outcome"}, nil,
	)
	acquireWaitDesc = prometheus.NewDesc(
		"mqfacade_pool_acquire_wait_seconds_total",
		"Cumulative time spent acquiring connections.",
		[]string{"key", "pool"}, nil,
	)
)

type collector struct{ p *Pool }

// Collector exposes Stats as prometheus metrics.
func (p *Pool) Collector() prometheus.Collector { return collector{p: p} }

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- connectionsDesc
	ch <- maxDesc
	ch <- acquiresDesc
	ch <- acquireWaitDesc
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.p.Stats() {
		ch <- prometheus.MustNewConstMetric(connectionsDesc, prometheus.GaugeValue, float64(s.Idle), s.Key, s.PoolName, "idle")
		ch <- prometheus.MustNewConstMetric(connectionsDesc, prometheus.GaugeValue, float64(s.Acquired), s.Key, s.PoolName, "acquired")
		ch <- prometheus.MustNewConstMetric(connectionsDesc, prometheus.GaugeValue, float64(s.Constructing), s.Key, s.PoolName, "constructing")
		ch <- prometheus.MustNewConstMetric(maxDesc, prometheus.GaugeValue, float64(s.Max), s.Key, s.PoolName)
		ch <- prometheus.MustNewConstMetric(acquiresDesc, prometheus.CounterValue, float64(s.AcquireCount), s.Key, s.PoolName, "ok")
		ch <- prometheus.MustNewConstMetric(acquiresDesc, prometheus.CounterValue, float64(s.CanceledAcquireCount), s.Key, s.PoolName, "canceled")
		ch <- prometheus.MustNewConstMetric(acquiresDesc, prometheus.CounterValue, float64(s.EmptyAcquireCount), s.Key, s.PoolName, "empty")
		ch <- prometheus.MustNewConstMetric(acquireWaitDesc, prometheus.CounterValue, s.AcquireDuration.Seconds(), s.Key, s.PoolName)
	}
}
