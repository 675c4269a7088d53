package cache

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsDesc = prometheus.NewDesc(
		"mqfacade_cache_requests_total",
		"Cache lookups by result.",
		[]string{"key", "cache", "result"}, nil,
	)
	loadsDesc = prometheus.NewDesc(
		"mqfacade_cache_loads_total",
		"Cache loads by outcome.",
		[]string{"key", "cache", "outcome"}, nil,
	)
	loadSecondsDesc = prometheus.NewDesc(
		"mqfacade_cache_load_seconds_total",
		"Cumulative time spent loading cache entries.",
		[]string{"key", "cache"}, nil,
	)
	removalsDesc = prometheus.NewDesc(
		"mqfacade_cache_removals_total",
		"Cache removals by cause.",
		[]string{"key", "cache", "cause"}, nil,
	)
	sizeDesc = prometheus.NewDesc(
		"mqfacade_cache_entries",
		"Live entries per cache.",
		[]string{"key", "cache"}, nil,
	)
)

type collector struct{ l *Layer }

// Collector exposes the stats of every store as prometheus metrics.
func (l *Layer) Collector() prometheus.Collector { return collector{l: l} }

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- loadsDesc
	ch <- loadSecondsDesc
	ch <- removalsDesc
	ch <- sizeDesc
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	for _, info := range c.l.All() {
		k, s := info.Key.String(), info.Stats
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(s.Hits), k, info.Name, "hit")
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(s.Misses), k, info.Name, "miss")
		ch <- prometheus.MustNewConstMetric(loadsDesc, prometheus.CounterValue, float64(s.LoadSuccesses), k, info.Name, "success")
		ch <- prometheus.MustNewConstMetric(loadsDesc, prometheus.CounterValue, float64(s.LoadFailures), k, info.Name, "failure")
		ch <- prometheus.MustNewConstMetric(loadSecondsDesc, prometheus.CounterValue, s.TotalLoadTime.Seconds(), k, info.Name)
		for _, cause := range Causes {
			ch <- prometheus.MustNewConstMetric(removalsDesc, prometheus.CounterValue, float64(s.Removals[cause]), k, info.Name, string(cause))
		}
		ch <- prometheus.MustNewConstMetric(sizeDesc, prometheus.GaugeValue, float64(s.Size), k, info.Name)
	}
}
