package admin

import (
	"net/http"

	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/endpoint"
)

// CacheListResponse answers GET /caches.
type CacheListResponse struct {
	Caches []cache.Info `json:"caches"`
	Count  int          `json:"count"`
}

// cacheTarget resolves {mq} without creating anything.
func (a *API) cacheTarget(w http.ResponseWriter, r *http.Request) (*endpoint.Key, string, bool) {
	key, _, err := a.mgr.Resolve(r.PathValue("mq"))
	if err != nil {
		writeMQError(w, a.log, err, "resolve endpoint", "lookup", r.PathValue("mq"))
		return nil, "", false
	}
	return key, r.PathValue("cache"), true
}

// handleListCaches handles GET /caches.
func (a *API) handleListCaches(w http.ResponseWriter, _ *http.Request) {
	all := a.cache.All()
	writeJSON(w, http.StatusOK, CacheListResponse{Caches: all, Count: len(all)})
}

// handleGetCache handles GET /caches/{mq}/{cache}.
func (a *API) handleGetCache(w http.ResponseWriter, r *http.Request) {
	key, name, ok := a.cacheTarget(w, r)
	if !ok {
		return
	}
	st, err := a.cache.Stats(key, name)
	if err != nil {
		writeMQError(w, a.log, err, "cache stats", "key", key.String(), "cache", name)
		return
	}
	writeJSON(w, http.StatusOK, cache.Info{
		Key:   key,
		Name:  name,
		Spec:  a.cache.SpecFor(name).String(),
		Size:  st.Size,
		Stats: st,
	})
}

// handleInvalidateCache handles POST /caches/{mq}/{cache}/invalidate.
func (a *API) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	key, name, ok := a.cacheTarget(w, r)
	if !ok {
		return
	}
	n, err := a.cache.InvalidateAll(key, name)
	if err != nil {
		writeMQError(w, a.log, err, "cache invalidate", "key", key.String(), "cache", name)
		return
	}
	a.log.Info("cache invalidated", "key", key.String(), "cache", name, "removed", n,
		"request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusOK, CacheActionResponse{Key: key.String(), Cache: name, Action: "invalidate", Removed: n})
}

// handleCleanupCache handles POST /caches/{mq}/{cache}/cleanup.
func (a *API) handleCleanupCache(w http.ResponseWriter, r *http.Request) {
	key, name, ok := a.cacheTarget(w, r)
	if !ok {
		return
	}
	n, err := a.cache.ForceCleanup(key, name)
	if err != nil {
		writeMQError(w, a.log, err, "cache cleanup", "key", key.String(), "cache", name)
		return
	}
	writeJSON(w, http.StatusOK, CacheActionResponse{Key: key.String(), Cache: name, Action: "cleanup", Removed: n})
}
