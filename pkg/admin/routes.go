// Route registration for the Admin API.

package admin

import (
	"net/http"
)

// registerRoutes sets up all API routes.
func (a *API) registerRoutes(mux *http.ServeMux) {
	// Health check, status and metrics
	mux.HandleFunc("GET /ping", a.handlePing)
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.HandleFunc("GET /status", a.handleGetStatus)
	mux.Handle("GET /metrics", a.metrics.Handler())

	// Installed sub-pools and background tasks
	mux.HandleFunc("GET /endpoints", a.handleListEndpoints)
	mux.HandleFunc("GET /tasks", a.handleListTasks)

	// Queue manager queries; {mq} is an endpoint key or a pool name
	mux.HandleFunc("GET /mq/{mq}/queues", a.handleQueueNames)
	mux.HandleFunc("GET /mq/{mq}/queues/{queue}", a.handleQueueAttributes)
	mux.HandleFunc("GET /mq/{mq}/queues/{queue}/depth", a.handleQueueDepth)
	mux.HandleFunc("GET /mq/{mq}/snapshot", a.handleQueueSnapshot)
	mux.HandleFunc("GET /mq/{mq}/topics", a.handleTopicNames)
	mux.HandleFunc("GET /mq/{mq}/topics/{topic...}", a.handleTopicAttributes)
	mux.HandleFunc("GET /mq/{mq}/topic-subscriptions/{topic...}", a.handleTopicSubscriptions)
	mux.HandleFunc("GET /mq/{mq}/subscriptions/{sub}", a.handleSubscriptionAttributes)

	// Legacy paths
	mux.HandleFunc("GET /qnames/{mq}", a.handleQueueNames)
	mux.HandleFunc("GET /tnames/{mq}", a.handleTopicNames)
	mux.HandleFunc("GET /subnames/{topic}/{mq}", a.handleTopicSubscriptions)

	// Cache management
	mux.HandleFunc("GET /caches", a.handleListCaches)
	mux.HandleFunc("GET /caches/{mq}/{cache}", a.handleGetCache)
	mux.HandleFunc("POST /caches/{mq}/{cache}/invalidate", a.handleInvalidateCache)
	mux.HandleFunc("POST /caches/{mq}/{cache}/cleanup", a.handleCleanupCache)
}
