package instance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	cpool "github.com/sourcegraph/conc/pool"

	"github.com/getmockd/mqfacade/pkg/attrs"
	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/filter"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pcf"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// Instance is the query facade for one endpoint. It owns nothing: every
// call borrows a pooled connection and goes through the cache layer.
type Instance struct {
	key     *endpoint.Key
	desc    endpoint.Descriptor
	qmgr    string
	created time.Time

	pool            *pool.Pool
	cache           *cache.Layer
	log             *slog.Logger
	snapshotWorkers int
}

// Info is the JSON view of an instance.
type Info struct {
	Key          *endpoint.Key `json:"key"`
	PoolName     string        `json:"poolName"`
	QueueManager string        `json:"queueManager"`
	Created      time.Time     `json:"created"`
}

// Key returns the endpoint key.
func (i *Instance) Key() *endpoint.Key { return i.key }

// Descriptor returns the sub-pool descriptor.
func (i *Instance) Descriptor() endpoint.Descriptor { return i.desc }

// QueueManager returns the queue-manager name resolved at creation.
func (i *Instance) QueueManager() string { return i.qmgr }

// Info returns the JSON view.
func (i *Instance) Info() Info {
	return Info{Key: i.key, PoolName: i.desc.PoolName, QueueManager: i.qmgr, Created: i.created}
}

// send issues one command on a borrowed connection.
func (i *Instance) send(ctx context.Context, cmd *pcf.Command) ([]*pcf.Reply, error) {
	var replies []*pcf.Reply
	err := i.pool.With(ctx, i.key, func(c *pool.Conn) error {
		var err error
		replies, err = c.Send(ctx, cmd)
		return err
	})
	return replies, err
}

func objectName(op, kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", mqerr.Errorf(mqerr.InvalidArgument, op, "empty %s name", kind)
	}
	return name, nil
}

// QueueDepth returns the current depth of queue q.
func (i *Instance) QueueDepth(ctx context.Context, q string) (int64, error) {
	q, err := objectName("instance.queue_depth", "queue", q)
	if err != nil {
		return 0, err
	}
	v, err := i.cache.Get(ctx, i.key, cache.QueueDepth, q, func(ctx context.Context) (any, error) {
		return i.loadDepth(ctx, q)
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// loadDepth reads a depth straight from the broker.
func (i *Instance) loadDepth(ctx context.Context, q string) (int64, error) {
	const op = "instance.queue_depth"
	replies, err := i.send(ctx, pcf.NewCommand(pcf.InquireQueueStatus, pcf.StringParam(pcf.QueueName, q)))
	if err != nil {
		return 0, err
	}
	if len(replies) == 0 {
		return 0, mqerr.Errorf(mqerr.NotFound, op, "no status for queue %q", q).WithKey(i.key.String())
	}
	depth, err := replies[0].Int(pcf.CurrentDepth)
	if err != nil {
		return 0, mqerr.E(mqerr.NotFound, op, err).WithKey(i.key.String())
	}
	return depth, nil
}

// QueueAttributes returns the attribute record of queue q. A queue the
// broker returns no status for yields an empty record.
func (i *Instance) QueueAttributes(ctx context.Context, q string) (attrs.Record, error) {
	q, err := objectName("instance.queue_attributes", "queue", q)
	if err != nil {
		return nil, err
	}
	v, err := i.cache.Get(ctx, i.key, cache.QueueAttrs, q, func(ctx context.Context) (any, error) {
		replies, err := i.send(ctx, pcf.NewCommand(pcf.InquireQueueStatus, pcf.StringParam(pcf.QueueName, q)))
		if err != nil {
			return nil, err
		}
		return attrs.ExtractAll(attrs.Queue, attrs.None, attrs.Input{Ctx: ctx, Replies: replies}, i.log), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(attrs.Record), nil
}

// QueueNames returns local queue names, trimmed name to raw name, that pass
// f. A nil filter passes everything.
func (i *Instance) QueueNames(ctx context.Context, f *filter.Filter) (map[string]string, error) {
	all, err := i.cache.GetAll(ctx, i.key, cache.QueueNames, i.loadQueueNames)
	if err != nil {
		return nil, err
	}
	return f.Apply(stringValues(all)), nil
}

func (i *Instance) loadQueueNames(ctx context.Context) (map[string]any, error) {
	replies, err := i.send(ctx, pcf.NewCommand(pcf.InquireQueueNames,
		pcf.StringParam(pcf.QueueName, "*"),
		pcf.SymbolParam(pcf.QueueType, pcf.QueueTypeLocal),
	))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	for _, r := range replies {
		names, err := r.StringList(pcf.QueueNames)
		if err != nil {
			continue
		}
		for _, raw := range names {
			if name := strings.TrimSpace(raw); name != "" {
				out[name] = raw
			}
		}
	}
	return out, nil
}

// TopicNames returns topic object names mapped to their topic strings.
// Topic objects without a topic string are left out.
func (i *Instance) TopicNames(ctx context.Context, f *filter.Filter) (map[string]string, error) {
	all, err := i.cache.GetAll(ctx, i.key, cache.TopicNames, i.loadTopicNames)
	if err != nil {
		return nil, err
	}
	return f.Apply(stringValues(all)), nil
}

func (i *Instance) loadTopicNames(ctx context.Context) (map[string]any, error) {
	replies, err := i.send(ctx, pcf.NewCommand(pcf.InquireTopic,
		pcf.StringParam(pcf.TopicName, "*"),
		pcf.SelectorParam(pcf.TopicAttrs, pcf.TopicString),
	))
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(replies))
	for _, r := range replies {
		name, err := r.String(pcf.TopicName)
		if err != nil {
			continue
		}
		str, err := r.String(pcf.TopicString)
		if err != nil || strings.TrimSpace(str) == "" {
			continue
		}
		out[strings.TrimSpace(name)] = str
	}
	return out, nil
}

func stringValues(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// TopicExists reports whether topic is a known topic object name or topic
// string.
func (i *Instance) TopicExists(ctx context.Context, topic string) (bool, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return false, nil
	}
	names, err := i.TopicNames(ctx, nil)
	if err != nil {
		return false, err
	}
	for name, str := range names {
		if name == topic || strings.TrimSpace(str) == topic {
			return true, nil
		}
	}
	return false, nil
}

// TopicAttributes returns the status attributes of a topic string, plus
// publisher and subscriber attributes when the topic has any.
func (i *Instance) TopicAttributes(ctx context.Context, topicString string) (attrs.Record, error) {
	ts, err := objectName("instance.topic_attributes", "topic", topicString)
	if err != nil {
		return nil, err
	}
	v, err := i.cache.Get(ctx, i.key, cache.TopicAttrs, ts, func(ctx context.Context) (any, error) {
		return i.loadTopicAttributes(ctx, ts)
	})
	if err != nil {
		return nil, err
	}
	return v.(attrs.Record), nil
}

func (i *Instance) loadTopicAttributes(ctx context.Context, ts string) (attrs.Record, error) {
	status := func(c *pool.Conn, kind pcf.Symbol) ([]*pcf.Reply, error) {
		return c.Send(ctx, pcf.NewCommand(pcf.InquireTopicStatus,
			pcf.StringParam(pcf.TopicString, ts),
			pcf.SymbolParam(pcf.TopicStatusType, kind),
		))
	}

	var rec attrs.Record
	err := i.pool.With(ctx, i.key, func(c *pool.Conn) error {
		replies, err := status(c, pcf.TopicStatusGeneral)
		if err != nil {
			return err
		}
		rec = attrs.ExtractAll(attrs.Topic, attrs.Status, attrs.Input{Ctx: ctx, Replies: replies}, i.log)

		if n, _ := rec[attrs.TopicPublisherCount].(int64); n > 0 {
			replies, err := status(c, pcf.TopicStatusPublisher)
			if err != nil {
				return err
			}
			rec.Merge(attrs.ExtractAll(attrs.Topic, attrs.Publisher, attrs.Input{Ctx: ctx, Replies: replies}, i.log))
		}
		if n, _ := rec[attrs.TopicSubscriberCount].(int64); n > 0 {
			replies, err := status(c, pcf.TopicStatusSubscriber)
			if err != nil {
				return err
			}
			rec.Merge(attrs.ExtractAll(attrs.Topic, attrs.Subscriber, attrs.Input{Ctx: ctx, Replies: replies}, i.log))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// TopicSubscriptions maps the subscription names on a topic string to their
// hex subscription ids. A subscription whose name cannot be read is keyed
// by its hex id. An unknown topic, or one without subscribers, yields an
// empty map.
func (i *Instance) TopicSubscriptions(ctx context.Context, topicString string) (map[string]string, error) {
	ts, err := objectName("instance.topic_subscriptions", "topic", topicString)
	if err != nil {
		return nil, err
	}
	v, err := i.cache.Get(ctx, i.key, cache.TopicSubs, ts, func(ctx context.Context) (any, error) {
		return i.loadTopicSubscriptions(ctx, ts)
	})
	switch {
	case err == nil:
		return v.(map[string]string), nil
	case softFailure(err):
		i.log.Debug("topic subscriptions unavailable", "topic", ts, "error", err)
		return map[string]string{}, nil
	default:
		return nil, err
	}
}

// softFailure reports errors that mean "nothing to report" for lookups that
// degrade to an empty result.
func softFailure(err error) bool {
	k := mqerr.KindOf(err)
	return k == mqerr.NotFound || k == mqerr.ProtocolError
}

func (i *Instance) loadTopicSubscriptions(ctx context.Context, ts string) (map[string]string, error) {
	rec, err := i.TopicAttributes(ctx, ts)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if n, _ := rec[attrs.TopicSubscriberCount].(int64); n == 0 {
		return out, nil
	}
	ids, _ := rec[attrs.TopicSubIDBytes].(map[string]any)
	if len(ids) == 0 {
		return out, nil
	}

	err = i.pool.With(ctx, i.key, func(c *pool.Conn) error {
		for hexID, raw := range ids {
			id, ok := raw.([]byte)
			if !ok {
				continue
			}
			name := hexID
			replies, err := c.Send(ctx, pcf.NewCommand(pcf.InquireSubscription, pcf.BytesParam(pcf.SubID, id)))
			switch {
			case err == nil && len(replies) > 0:
				if s, serr := replies[0].String(pcf.SubName); serr == nil && strings.TrimSpace(s) != "" {
					name = strings.TrimSpace(s)
				}
			case err != nil && !softFailure(err):
				return err
			}
			out[name] = hexID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubscriptionAttributes returns definition and status attributes of a
// subscription. UNDELIVERED_MESSAGES is the live depth of its destination.
func (i *Instance) SubscriptionAttributes(ctx context.Context, sub string) (attrs.Record, error) {
	sub, err := objectName("instance.subscription_attributes", "subscription", sub)
	if err != nil {
		return nil, err
	}
	v, err := i.cache.Get(ctx, i.key, cache.SubAttrs, sub, func(ctx context.Context) (any, error) {
		return i.loadSubscriptionAttributes(ctx, sub)
	})
	if err != nil {
		return nil, err
	}
	return v.(attrs.Record), nil
}

func (i *Instance) loadSubscriptionAttributes(ctx context.Context, sub string) (attrs.Record, error) {
	var def, status []*pcf.Reply
	err := i.pool.With(ctx, i.key, func(c *pool.Conn) error {
		var err error
		def, err = c.Send(ctx, pcf.NewCommand(pcf.InquireSubscription, pcf.StringParam(pcf.SubName, sub)))
		if err != nil {
			return err
		}
		status, err = c.Send(ctx, pcf.NewCommand(pcf.InquireSubStatus, pcf.StringParam(pcf.SubName, sub)))
		if err != nil && softFailure(err) {
			i.log.Debug("subscription status unavailable", "subscription", sub, "error", err)
			status, err = nil, nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	// The destination depth borrows its own connection, so it runs after the
	// one above is back in the pool.
	in := attrs.Input{Ctx: ctx, Replies: def, Depth: i.loadDepth}
	rec := attrs.ExtractAll(attrs.Subscription, attrs.Definition, in, i.log)
	rec.Merge(attrs.ExtractAll(attrs.Subscription, attrs.Status, attrs.Input{Ctx: ctx, Replies: status}, i.log))
	return rec, nil
}

type snapshotItem struct {
	name string
	rec  attrs.Record
}

// QueueSnapshot returns the attributes of every queue passing f and, when
// where is non-empty, the boolean expression over attribute names.
// Queues that disappear between listing and inquiry are skipped.
func (i *Instance) QueueSnapshot(ctx context.Context, f *filter.Filter, where string) (map[string]attrs.Record, error) {
	pred, err := filter.CompileWhere(where)
	if err != nil {
		return nil, err
	}
	names, err := i.QueueNames(ctx, f)
	if err != nil {
		return nil, err
	}

	p := cpool.NewWithResults[snapshotItem]().WithMaxGoroutines(i.snapshotWorkers).WithContext(ctx)
	for name := range names {
		p.Go(func(ctx context.Context) (snapshotItem, error) {
			rec, err := i.QueueAttributes(ctx, name)
			if err != nil {
				if mqerr.KindOf(err) == mqerr.NotFound {
					return snapshotItem{name: name}, nil
				}
				return snapshotItem{}, err
			}
			return snapshotItem{name: name, rec: rec}, nil
		})
	}
	items, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make(map[string]attrs.Record, len(items))
	for _, it := range items {
		if it.rec == nil {
			continue
		}
		ok, err := pred.Match(it.rec.Strings())
		if err != nil {
			return nil, mqerr.E(mqerr.InvalidArgument, "instance.queue_snapshot", err).WithKey(i.key.String())
		}
		if ok {
			out[it.name] = it.rec
		}
	}
	return out, nil
}
