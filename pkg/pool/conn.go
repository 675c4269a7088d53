package pool

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pcf"
)

// session is the connection state shared by every borrow of one pooled
// connection.
type session struct {
	desc   endpoint.Descriptor
	conn   pcf.Connection
	qmgr   string
	pooled bool

	uses   atomic.Int64
	broken atomic.Bool
}

// Conn is one borrow of a broker connection. It must be used by one
// goroutine at a time and handed back with Pool.Release. Each Acquire
// returns a new Conn, so a stale handle cannot release a later borrow.
type Conn struct {
	*session

	released atomic.Bool
	// res is nil for standalone connections.
	res *puddle.Resource[*session]
}

// Key returns the endpoint the connection belongs to.
func (c *Conn) Key() *endpoint.Key { return c.desc.Key }

// Descriptor returns the sub-pool descriptor the connection was made from.
func (c *Conn) Descriptor() endpoint.Descriptor { return c.desc }

// QueueManager returns the queue-manager name resolved at connect time.
func (c *Conn) QueueManager() string { return c.qmgr }

// Pooled reports whether the connection returns to a sub-pool on release.
func (c *Conn) Pooled() bool { return c.pooled }

// Uses returns how many times the connection has been borrowed.
func (c *Conn) Uses() int64 { return c.uses.Load() }

// MarkBroken makes Release destroy the connection instead of pooling it.
func (c *Conn) MarkBroken() { c.broken.Store(true) }

// Broken reports whether the connection was marked broken.
func (c *Conn) Broken() bool { return c.broken.Load() }

// Send issues one command, bounded by the descriptor's protocol wait. A
// connect-class failure marks the connection broken.
func (c *Conn) Send(ctx context.Context, cmd *pcf.Command) ([]*pcf.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.desc.ProtocolWait)*time.Second)
	defer cancel()

	replies, err := c.conn.Send(ctx, cmd)
	if err != nil {
		if mqerr.KindOf(err) == mqerr.ConnectError {
			c.MarkBroken()
		}
		return nil, err
	}
	return replies, nil
}

// InquireQueueManager reads the current remote queue-manager name.
func (c *Conn) InquireQueueManager(ctx context.Context) (string, error) {
	name, err := c.conn.InquireQueueManager(ctx)
	if err != nil && mqerr.KindOf(err) == mqerr.ConnectError {
		c.MarkBroken()
	}
	return name, err
}
