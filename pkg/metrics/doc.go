// Package metrics exposes mqfacade's Prometheus metrics.
//
// A Registry wraps a prometheus.Registry that already carries the Go
// runtime and process collectors plus the admin HTTP request metrics.
// Components with their own collectors (the cache layer, the connection
// pool) register them by name:
//
//	reg := metrics.NewRegistry(version)
//	_ = reg.Register("cache", layer.Collector())
//	_ = reg.Register("pool", pool.Collector())
//	mux.Handle("GET /metrics", reg.Handler())
//
// # Default Metrics
//
//   - mqfacade_admin_requests_total: admin API requests (labels: method, route, status)
//   - mqfacade_admin_request_duration_seconds: admin API latency (labels: method, route)
//   - mqfacade_uptime_seconds: seconds since the registry was created
//   - mqfacade_build_info: constant 1 (labels: version, goversion)
//
// The route label is the mux pattern, never the raw path, so label
// cardinality stays bounded by the route table.
package metrics
