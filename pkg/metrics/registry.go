package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every mqfacade metric.
const Namespace = "mqfacade"

// DefaultBuckets are the latency buckets for request durations, in seconds.
var DefaultBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// ErrAlreadyRegistered is returned when a collector name is reused.
var ErrAlreadyRegistered = errors.New("collector already registered")

// Registry holds the process-wide collectors.
type Registry struct {
	prom *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	mu         sync.Mutex
	registered map[string]prometheus.Collector
}

// NewRegistry returns a registry with the runtime, process and admin HTTP
// collectors registered.
func NewRegistry(version string) *Registry {
	started := time.Now()
	r := &Registry{
		prom:       prometheus.NewRegistry(),
		registered: make(map[string]prometheus.Collector),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "admin_requests_total",
			Help:      "Total number of admin API requests.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "admin_request_duration_seconds",
			Help:      "Duration of admin API requests in seconds.",
			Buckets:   DefaultBuckets,
		}, []string{"method", "route"}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   Namespace,
		Name:        "build_info",
		Help:        "Build information; the value is always 1.",
		ConstLabels: prometheus.Labels{"version": version, "goversion": runtime.Version()},
	})
	buildInfo.Set(1)

	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started serving.",
		}, func() float64 { return time.Since(started).Seconds() }),
		buildInfo,
	)
	return r
}

// Register adds a named collector. Registering a name twice fails with
// ErrAlreadyRegistered.
func (r *Registry) Register(name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	if err := r.prom.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return fmt.Errorf("%w: %s: %w", ErrAlreadyRegistered, name, err)
		}
		return fmt.Errorf("registering %s: %w", name, err)
	}
	r.registered[name] = c
	return nil
}

// Unregister removes a named collector.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.registered[name]
	if !ok {
		return false
	}
	delete(r.registered, name)
	return r.prom.Unregister(c)
}

// Registered returns the names of collectors added with Register, sorted.
func (r *Registry) Registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.registered))
	for name := range r.registered {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Gatherer returns the underlying registry for tests and custom handlers.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.prom }

// ObserveRequest records one admin API request.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
