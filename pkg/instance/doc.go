// Package instance provides the per-endpoint query facade.
//
// A Registry holds at most one Instance per endpoint key. Creating an
// instance installs the endpoint's sub-pool, resolves the queue-manager name
// over one borrowed connection and starts background warm-up of the queue
// and topic name caches under a Supervisor.
//
// Every Instance operation borrows a connection through pool.With, issues
// PCF commands, runs the attrs rules over the replies and caches the result
// in the shared cache.Layer:
//
//	inst, err := reg.GetByKey(ctx, key)
//	depth, err := inst.QueueDepth(ctx, "ORDERS.INBOUND")
//	subs, err := inst.TopicSubscriptions(ctx, "prices/fx")
package instance
