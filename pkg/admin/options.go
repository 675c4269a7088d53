// Option functions for configuring API.

package admin

import (
	"log/slog"
	"time"

	"github.com/getmockd/mqfacade/pkg/metrics"
)

// Option configures an API.
type Option func(*API)

// WithLogger sets the API's logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// WithMetrics sets the registry served on /metrics and fed by the request
// middleware. If not set, a private registry is created.
func WithMetrics(r *metrics.Registry) Option {
	return func(a *API) {
		a.metrics = r
	}
}

// WithVersion sets the version reported by /status.
func WithVersion(v string) Option {
	return func(a *API) {
		if v != "" {
			a.version = v
		}
	}
}

// WithTimeouts sets the server read and write timeouts. Zero keeps the
// default.
func WithTimeouts(read, write time.Duration) Option {
	return func(a *API) {
		if read > 0 {
			a.readTimeout = read
		}
		if write > 0 {
			a.writeTimeout = write
		}
	}
}
