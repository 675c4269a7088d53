package admin

import (
	"net/http"
	"strings"

	"github.com/getmockd/mqfacade/pkg/filter"
	"github.com/getmockd/mqfacade/pkg/instance"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Response headers identifying the queue manager that answered.
const (
	HeaderKey     = "X-Mqfacade-Key"
	HeaderKeyJSON = "X-Mqfacade-Key-Json"
	HeaderPool    = "X-Mqfacade-Pool"
)

// instanceFor resolves the {mq} path value, creating the instance on first
// use, and sets the identity headers. On failure the error response has
// already been written.
func (a *API) instanceFor(w http.ResponseWriter, r *http.Request) (*instance.Instance, bool) {
	lookup := r.PathValue("mq")
	_, name, err := a.mgr.Resolve(lookup)
	if err != nil {
		writeMQError(w, a.log, err, "resolve endpoint", "lookup", lookup)
		return nil, false
	}
	inst, err := a.mgr.GetOrCreate(r.Context(), lookup)
	if err != nil {
		writeMQError(w, a.log, err, "open endpoint", "lookup", lookup)
		return nil, false
	}

	h := w.Header()
	h.Set(HeaderKey, inst.Key().String())
	h.Set(HeaderKeyJSON, inst.Key().JSON())
	if desc := inst.Descriptor(); !desc.Synthesized() && desc.PoolName != "" {
		name = desc.PoolName
	}
	if name != "" {
		h.Set(HeaderPool, name)
	}
	return inst, true
}

// filterFrom compiles the exclude and include query parameters.
func filterFrom(r *http.Request) (*filter.Filter, error) {
	q := r.URL.Query()
	return filter.New(q.Get("exclude"), q.Get("include"))
}

// handleQueueNames handles GET /mq/{mq}/queues and GET /qnames/{mq}.
func (a *API) handleQueueNames(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeMQError(w, a.log, err, "parse filter")
		return
	}
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	names, err := inst.QueueNames(r.Context(), f)
	if err != nil {
		writeMQError(w, a.log, err, "list queues", "key", inst.Key().String())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handleQueueAttributes handles GET /mq/{mq}/queues/{queue}.
func (a *API) handleQueueAttributes(w http.ResponseWriter, r *http.Request) {
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	queue := r.PathValue("queue")
	rec, err := inst.QueueAttributes(r.Context(), queue)
	if err != nil {
		writeMQError(w, a.log, err, "queue attributes", "key", inst.Key().String(), "queue", queue)
		return
	}
	writeJSON(w, http.StatusOK, rec.Strings())
}

// handleQueueDepth handles GET /mq/{mq}/queues/{queue}/depth.
func (a *API) handleQueueDepth(w http.ResponseWriter, r *http.Request) {
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	queue := strings.TrimSpace(r.PathValue("queue"))
	depth, err := inst.QueueDepth(r.Context(), queue)
	if err != nil {
		writeMQError(w, a.log, err, "queue depth", "key", inst.Key().String(), "queue", queue)
		return
	}
	writeJSON(w, http.StatusOK, DepthResponse{Queue: queue, Depth: depth})
}

// handleQueueSnapshot handles GET /mq/{mq}/snapshot.
func (a *API) handleQueueSnapshot(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeMQError(w, a.log, err, "parse filter")
		return
	}
	where := r.URL.Query().Get("where")
	if _, err := filter.CompileWhere(where); err != nil {
		writeMQError(w, a.log, err, "parse where")
		return
	}
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	snap, err := inst.QueueSnapshot(r.Context(), f, where)
	if err != nil {
		writeMQError(w, a.log, err, "queue snapshot", "key", inst.Key().String())
		return
	}
	out := make(map[string]map[string]any, len(snap))
	for name, rec := range snap {
		out[name] = rec.Strings()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTopicNames handles GET /mq/{mq}/topics and GET /tnames/{mq}.
func (a *API) handleTopicNames(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeMQError(w, a.log, err, "parse filter")
		return
	}
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	names, err := inst.TopicNames(r.Context(), f)
	if err != nil {
		writeMQError(w, a.log, err, "list topics", "key", inst.Key().String())
		return
	}
	writeJSON(w, http.StatusOK, names)
}

// handleTopicAttributes handles GET /mq/{mq}/topics/{topic...}.
func (a *API) handleTopicAttributes(w http.ResponseWriter, r *http.Request) {
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	topic := r.PathValue("topic")
	rec, err := inst.TopicAttributes(r.Context(), topic)
	if err != nil {
		writeMQError(w, a.log, err, "topic attributes", "key", inst.Key().String(), "topic", topic)
		return
	}
	writeJSON(w, http.StatusOK, rec.Strings())
}

// handleTopicSubscriptions handles GET /mq/{mq}/topic-subscriptions/{topic...}
// and GET /subnames/{topic}/{mq}.
func (a *API) handleTopicSubscriptions(w http.ResponseWriter, r *http.Request) {
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	topic := r.PathValue("topic")
	exists, err := inst.TopicExists(r.Context(), topic)
	if err != nil {
		writeMQError(w, a.log, err, "topic lookup", "key", inst.Key().String(), "topic", topic)
		return
	}
	if !exists {
		writeMQError(w, a.log, mqerr.Errorf(mqerr.NotFound, "topic_subscriptions", "topic %q does not exist", topic),
			"topic subscriptions", "key", inst.Key().String())
		return
	}
	subs, err := inst.TopicSubscriptions(r.Context(), topic)
	if err != nil {
		writeMQError(w, a.log, err, "topic subscriptions", "key", inst.Key().String(), "topic", topic)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// handleSubscriptionAttributes handles GET /mq/{mq}/subscriptions/{sub}.
func (a *API) handleSubscriptionAttributes(w http.ResponseWriter, r *http.Request) {
	inst, ok := a.instanceFor(w, r)
	if !ok {
		return
	}
	sub := r.PathValue("sub")
	rec, err := inst.SubscriptionAttributes(r.Context(), sub)
	if err != nil {
		writeMQError(w, a.log, err, "subscription attributes", "key", inst.Key().String(), "sub", sub)
		return
	}
	writeJSON(w, http.StatusOK, rec.Strings())
}
