// Package pcftest provides an in-memory broker that answers PCF commands.
package pcftest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pcf"
)

// nameWidth is the width the broker pads object names to, as a real queue
// manager does.
const nameWidth = 48

// Queue is a local queue.
type Queue struct {
	Name         string
	Depth        int64
	LastGetDate  string
	LastGetTime  string
	LastPutDate  string
	LastPutTime  string
	OldestMsgAge int64
	OnQTime      []int64
	OpenInputs   int64
	OpenOutputs  int64
	// Remote queues are not reported by queue-name inquiries.
	Remote bool
}

// Publisher is an active publisher on a topic.
type Publisher struct {
	ConnectionID []byte
	LastPubDate  string
	LastPubTime  string
	PublishCount int64
}

// Subscriber is an active subscriber on a topic.
type Subscriber struct {
	SubID        []byte
	ResumeDate   string
	ResumeTime   string
	LastMsgDate  string
	LastMsgTime  string
	MessageCount int64
}

// Topic is an administrative topic object.
type Topic struct {
	Name        string
	String      string
	CommInfo    string
	Publishers  []Publisher
	Subscribers []Subscriber
}

// Subscription is a subscription definition with its status.
type Subscription struct {
	Name            string
	ID              []byte
	TopicString     string
	Destination     string
	DestinationQMgr string
	UserData        string
	Managed         bool
	ScopeAll        bool
	Durable         bool
	ResumeDate      string
	ResumeTime      string
	LastMsgDate     string
	LastMsgTime     string
	MessageCount    int64
}

// Broker is a fake queue manager. All methods are safe for concurrent use.
type Broker struct {
	mu       sync.Mutex
	qmgr     string
	queues   map[string]*Queue
	topics   map[string]*Topic
	subs     map[string]*Subscription
	fail     map[pcf.CommandCode]error
	dialErr  error
	delay    time.Duration
	dialWait time.Duration
	calls    map[pcf.CommandCode]int
	gen      int

	dials       atomic.Int64
	disconnects atomic.Int64
	open        atomic.Int64
	overlaps    atomic.Int64
}

// NewBroker returns an empty broker reporting qmgr as its name.
func NewBroker(qmgr string) *Broker {
	return &Broker{
		qmgr:   qmgr,
		queues: make(map[string]*Queue),
		topics: make(map[string]*Topic),
		subs:   make(map[string]*Subscription),
		fail:   make(map[pcf.CommandCode]error),
		calls:  make(map[pcf.CommandCode]int),
	}
}

// AddQueue adds or replaces a queue.
func (b *Broker) AddQueue(q Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[q.Name] = &q
}

// RemoveQueue deletes a queue.
func (b *Broker) RemoveQueue(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, name)
}

// SetQueueDepth changes the depth of an existing queue.
func (b *Broker) SetQueueDepth(name string, depth int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		q.Depth = depth
	}
}

// AddTopic adds or replaces a topic.
func (b *Broker) AddTopic(t Topic) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[t.Name] = &t
}

// AddSubscription adds or replaces a subscription.
func (b *Broker) AddSubscription(s Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[s.Name] = &s
}

// SetQueueManager changes the name reported to new and existing sessions.
func (b *Broker) SetQueueManager(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.qmgr = name
}

// Fail makes every subsequent cmd fail with err. A nil err clears it.
func (b *Broker) Fail(cmd pcf.CommandCode, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.fail, cmd)
		return
	}
	b.fail[cmd] = err
}

// FailDial makes every subsequent dial fail with err. A nil err clears it.
func (b *Broker) FailDial(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialErr = err
}

// SetDelay makes every command wait d before answering.
func (b *Broker) SetDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

// SetDialDelay makes every dial wait d before completing.
func (b *Broker) SetDialDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialWait = d
}

// Break severs every open session; their next command fails with a
// connect error.
func (b *Broker) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen++
}

// Calls returns how many times cmd was received.
func (b *Broker) Calls(cmd pcf.CommandCode) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[cmd]
}

// TotalCalls returns the number of commands received.
func (b *Broker) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the command counters.
func (b *Broker) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[pcf.CommandCode]int)
}

// Dials returns the number of successful dials.
func (b *Broker) Dials() int { return int(b.dials.Load()) }

// Disconnects returns the number of closed sessions.
func (b *Broker) Disconnects() int { return int(b.disconnects.Load()) }

// Open returns the number of live sessions.
func (b *Broker) Open() int { return int(b.open.Load()) }

// Overlaps returns how often a session received a command while another
// command on the same session was still running.
func (b *Broker) Overlaps() int { return int(b.overlaps.Load()) }

// Dialer returns a pcf.Dialer connected to b.
func (b *Broker) Dialer() pcf.Dialer {
	return pcf.DialerFunc(b.dial)
}

func (b *Broker) dial(ctx context.Context, desc endpoint.Descriptor) (pcf.Connection, string, error) {
	b.mu.Lock()
	err, wait, gen, name := b.dialErr, b.dialWait, b.gen, b.qmgr
	b.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, "", mqerr.E(mqerr.Timeout, "pcf.dial", ctx.Err())
		}
	}
	if err != nil {
		return nil, "", mqerr.E(mqerr.ConnectError, "pcf.dial", err).WithKey(desc.Key.String())
	}
	b.dials.Add(1)
	b.open.Add(1)
	return &conn{b: b, gen: gen}, name, nil
}

type conn struct {
	b      *Broker
	gen    int
	busy   atomic.Bool
	closed atomic.Bool
}

func (c *conn) InquireQueueManager(ctx context.Context) (string, error) {
	if err := c.check(ctx, "pcf.inquire_qmgr"); err != nil {
		return "", err
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	return c.b.qmgr, nil
}

func (c *conn) Disconnect() error {
	if c.closed.CompareAndSwap(false, true) {
		c.b.disconnects.Add(1)
		c.b.open.Add(-1)
	}
	return nil
}

func (c *conn) check(ctx context.Context, op string) error {
	if c.closed.Load() {
		return mqerr.Errorf(mqerr.ConnectError, op, "session closed")
	}
	c.b.mu.Lock()
	gen := c.b.gen
	c.b.mu.Unlock()
	if gen != c.gen {
		return mqerr.Errorf(mqerr.ConnectError, op, "connection broken")
	}
	if err := ctx.Err(); err != nil {
		return mqerr.E(mqerr.Timeout, op, err)
	}
	return nil
}

func (c *conn) Send(ctx context.Context, cmd *pcf.Command) ([]*pcf.Reply, error) {
	op := "pcf." + strings.ToLower(strings.TrimPrefix(string(cmd.Code), "MQCMD_"))
	if !c.busy.CompareAndSwap(false, true) {
		c.b.overlaps.Add(1)
	} else {
		defer c.busy.Store(false)
	}
	if err := c.check(ctx, op); err != nil {
		return nil, err
	}

	c.b.mu.Lock()
	c.b.calls[cmd.Code]++
	delay := c.b.delay
	failure := c.b.fail[cmd.Code]
	c.b.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, mqerr.E(mqerr.Timeout, op, ctx.Err())
		}
	}
	if failure != nil {
		return nil, failure
	}

	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	switch cmd.Code {
	case pcf.InquireQueueNames:
		return c.b.queueNames(cmd), nil
	case pcf.InquireQueueStatus:
		return c.b.queueStatus(op, cmd)
	case pcf.InquireTopic:
		return c.b.topicDefs(cmd), nil
	case pcf.InquireTopicStatus:
		return c.b.topicStatus(op, cmd)
	case pcf.InquireSubscription:
		return c.b.subscriptions(op, cmd)
	case pcf.InquireSubStatus:
		return c.b.subStatus(op, cmd)
	default:
		return nil, mqerr.Errorf(mqerr.ProtocolError, op, "unsupported command %s", cmd.Code)
	}
}

func pad(name string) string {
	return fmt.Sprintf("%-*s", nameWidth, name)
}

func stringArg(cmd *pcf.Command, p pcf.Param) string {
	v, _ := cmd.Get(p)
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// matches applies MQ generic-name matching: a trailing '*' matches any suffix.
func matches(pattern, name string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

func notFound(op string, cmd pcf.CommandCode, what string) error {
	return mqerr.E(mqerr.NotFound, op, &pcf.ReasonError{
		Command:    cmd,
		CompCode:   2,
		Reason:     2085,
		ReasonName: "MQRC_UNKNOWN_OBJECT_NAME",
	}).WithKey(what)
}

func (b *Broker) queueNames(cmd *pcf.Command) []*pcf.Reply {
	pattern := stringArg(cmd, pcf.QueueName)
	names := make([]string, 0, len(b.queues))
	for name, q := range b.queues {
		if q.Remote || !matches(pattern, name) {
			continue
		}
		names = append(names, pad(name))
	}
	sort.Strings(names)
	return []*pcf.Reply{pcf.NewReply(map[pcf.Param]any{pcf.QueueNames: names})}
}

func (b *Broker) queueStatus(op string, cmd *pcf.Command) ([]*pcf.Reply, error) {
	name := stringArg(cmd, pcf.QueueName)
	q, ok := b.queues[name]
	if !ok {
		return nil, notFound(op, cmd.Code, name)
	}
	r := pcf.NewReply(map[pcf.Param]any{
		pcf.QueueName:       pad(q.Name),
		pcf.CurrentDepth:    q.Depth,
		pcf.LastGetDate:     q.LastGetDate,
		pcf.LastGetTime:     q.LastGetTime,
		pcf.LastPutDate:     q.LastPutDate,
		pcf.LastPutTime:     q.LastPutTime,
		pcf.OldestMsgAge:    q.OldestMsgAge,
		pcf.OpenInputCount:  q.OpenInputs,
		pcf.OpenOutputCount: q.OpenOutputs,
	})
	if q.OnQTime != nil {
		r.Set(pcf.QueueTimeIndic, append([]int64(nil), q.OnQTime...))
	}
	return []*pcf.Reply{r}, nil
}

func (b *Broker) topicDefs(cmd *pcf.Command) []*pcf.Reply {
	pattern := stringArg(cmd, pcf.TopicName)
	names := make([]string, 0, len(b.topics))
	for name := range b.topics {
		if matches(pattern, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]*pcf.Reply, 0, len(names))
	for _, name := range names {
		t := b.topics[name]
		out = append(out, pcf.NewReply(map[pcf.Param]any{
			pcf.TopicName:   pad(t.Name),
			pcf.TopicString: t.String,
		}))
	}
	return out
}

func (b *Broker) topicByString(s string) *Topic {
	for _, t := range b.topics {
		if t.String == s {
			return t
		}
	}
	return nil
}

func (b *Broker) topicStatus(op string, cmd *pcf.Command) ([]*pcf.Reply, error) {
	str := stringArg(cmd, pcf.TopicString)
	t := b.topicByString(str)
	if t == nil {
		return nil, notFound(op, cmd.Code, str)
	}
	kind := pcf.TopicStatusGeneral
	if v, ok := cmd.Get(pcf.TopicStatusType); ok {
		kind, _ = v.(pcf.Symbol)
	}

	switch kind {
	case pcf.TopicStatusPublisher:
		out := make([]*pcf.Reply, 0, len(t.Publishers))
		for _, p := range t.Publishers {
			out = append(out, pcf.NewReply(map[pcf.Param]any{
				pcf.TopicString:  t.String,
				pcf.ConnectionID: append([]byte(nil), p.ConnectionID...),
				pcf.LastPubDate:  p.LastPubDate,
				pcf.LastPubTime:  p.LastPubTime,
				pcf.PublishCount: p.PublishCount,
			}))
		}
		return out, nil
	case pcf.TopicStatusSubscriber:
		out := make([]*pcf.Reply, 0, len(t.Subscribers))
		for _, s := range t.Subscribers {
			out = append(out, pcf.NewReply(map[pcf.Param]any{
				pcf.TopicString:  t.String,
				pcf.SubID:        append([]byte(nil), s.SubID...),
				pcf.ResumeDate:   s.ResumeDate,
				pcf.ResumeTime:   s.ResumeTime,
				pcf.LastMsgDate:  s.LastMsgDate,
				pcf.LastMsgTime:  s.LastMsgTime,
				pcf.MessageCount: s.MessageCount,
			}))
		}
		return out, nil
	default:
		return []*pcf.Reply{pcf.NewReply(map[pcf.Param]any{
			pcf.TopicString:  t.String,
			pcf.PubCount:     int64(len(t.Publishers)),
			pcf.SubCount:     int64(len(t.Subscribers)),
			pcf.CommInfoName: t.CommInfo,
		})}, nil
	}
}

func symbol(cond bool, yes, no pcf.Symbol) pcf.Symbol {
	if cond {
		return yes
	}
	return no
}

func subDefinition(s *Subscription) *pcf.Reply {
	return pcf.NewReply(map[pcf.Param]any{
		pcf.SubName:          pad(s.Name),
		pcf.SubID:            append([]byte(nil), s.ID...),
		pcf.TopicString:      s.TopicString,
		pcf.Destination:      s.Destination,
		pcf.DestinationQMgr:  s.DestinationQMgr,
		pcf.SubUserData:      s.UserData,
		pcf.DestinationClass: symbol(s.Managed, pcf.DestinationManaged, pcf.DestinationProvided),
		pcf.SubScope:         symbol(s.ScopeAll, pcf.ScopeAll, pcf.ScopeQueueManager),
		pcf.Durable:          symbol(s.Durable, pcf.DurableYes, pcf.DurableNo),
	})
}

func (b *Broker) subscriptions(op string, cmd *pcf.Command) ([]*pcf.Reply, error) {
	if v, ok := cmd.Get(pcf.SubID); ok {
		id, _ := v.([]byte)
		for _, s := range b.subs {
			if string(s.ID) == string(id) {
				return []*pcf.Reply{subDefinition(s)}, nil
			}
		}
		return nil, notFound(op, cmd.Code, fmt.Sprintf("%X", id))
	}

	pattern := stringArg(cmd, pcf.SubName)
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		if matches(pattern, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 && pattern != "*" && pattern != "" {
		return nil, notFound(op, cmd.Code, pattern)
	}
	sort.Strings(names)
	out := make([]*pcf.Reply, 0, len(names))
	for _, name := range names {
		out = append(out, subDefinition(b.subs[name]))
	}
	return out, nil
}

func (b *Broker) subStatus(op string, cmd *pcf.Command) ([]*pcf.Reply, error) {
	name := stringArg(cmd, pcf.SubName)
	s, ok := b.subs[name]
	if !ok {
		return nil, notFound(op, cmd.Code, name)
	}
	return []*pcf.Reply{pcf.NewReply(map[pcf.Param]any{
		pcf.SubName:      pad(s.Name),
		pcf.SubID:        append([]byte(nil), s.ID...),
		pcf.ResumeDate:   s.ResumeDate,
		pcf.ResumeTime:   s.ResumeTime,
		pcf.LastMsgDate:  s.LastMsgDate,
		pcf.LastMsgTime:  s.LastMsgTime,
		pcf.MessageCount: s.MessageCount,
	})}, nil
}
