package admin

import (
	"time"

	"github.com/getmockd/mqfacade/pkg/instance"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PingResponse answers GET /ping.
type PingResponse struct {
	Msg string `json:"msg"`
}

// HealthResponse is a simple health check response.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime int    `json:"uptime"`
}

// StatusResponse answers GET /status.
type StatusResponse struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       int       `json:"uptime"`
	StartedAt    time.Time `json:"startedAt"`
	Pools        []string  `json:"pools"`
	SubPools     int       `json:"subPools"`
	Instances    int       `json:"instances"`
	Caches       int       `json:"caches"`
	RunningTasks int       `json:"runningTasks"`
}

// EndpointInfo describes one installed sub-pool.
type EndpointInfo struct {
	pool.SubPoolStats
	Synthesized bool           `json:"synthesized"`
	Instance    *instance.Info `json:"instance,omitempty"`
}

// EndpointListResponse answers GET /endpoints.
type EndpointListResponse struct {
	Endpoints []EndpointInfo `json:"endpoints"`
	Count     int            `json:"count"`
}

// TaskListResponse answers GET /tasks.
type TaskListResponse struct {
	Tasks []instance.Task `json:"tasks"`
	Count int             `json:"count"`
}

// DepthResponse answers GET /mq/{mq}/queues/{queue}/depth.
type DepthResponse struct {
	Queue string `json:"queue"`
	Depth int64  `json:"depth"`
}

// CacheActionResponse answers cache invalidate and cleanup.
type CacheActionResponse struct {
	Key     string `json:"key"`
	Cache   string `json:"cache"`
	Action  string `json:"action"`
	Removed int    `json:"removed"`
}
