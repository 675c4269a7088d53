package admin

import (
	"encoding/json"
	"net/http"

	"github.com/getmockd/mqfacade/pkg/endpoint"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// handlePing handles GET /ping.
func (a *API) handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, PingResponse{Msg: "pong"})
}

// handleHealth handles GET /health.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: a.Uptime(),
	})
}

// handleGetStatus handles GET /status.
func (a *API) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	reg := a.mgr.Registry()
	pools := a.mgr.Directory().Names()
	if pools == nil {
		pools = []string{}
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:       "ok",
		Version:      a.version,
		Uptime:       a.Uptime(),
		StartedAt:    a.startTime,
		Pools:        pools,
		SubPools:     len(a.mgr.Pool().Keys()),
		Instances:    len(reg.Instances()),
		Caches:       len(a.cache.All()),
		RunningTasks: len(reg.Supervisor().Running()),
	})
}

// handleListEndpoints handles GET /endpoints.
func (a *API) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	p := a.mgr.Pool()
	stats := p.Stats()
	out := make([]EndpointInfo, 0, len(stats))
	for _, st := range stats {
		info := EndpointInfo{SubPoolStats: st}
		if key, err := endpoint.Parse(st.Key); err == nil {
			if desc, ok := p.Descriptor(key); ok {
				info.Synthesized = desc.Synthesized()
			}
			if inst, ok := a.mgr.Registry().Lookup(key); ok {
				ii := inst.Info()
				info.Instance = &ii
			}
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, EndpointListResponse{Endpoints: out, Count: len(out)})
}

// handleListTasks handles GET /tasks.
func (a *API) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := a.mgr.Registry().Supervisor().Tasks()
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks, Count: len(tasks)})
}
