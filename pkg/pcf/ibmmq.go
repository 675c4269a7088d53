//go:build cgo && ibm_mq

package pcf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ibm-messaging/mq-golang/v5/ibmmq"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

const (
	initialReplyBuffer = 64 * 1024
	maxReplyBuffer     = 10 * 1024 * 1024
)

var commandIDs = map[CommandCode]int32{
	InquireQueueStatus:  ibmmq.MQCMD_INQUIRE_Q_STATUS,
	InquireQueueNames:   ibmmq.MQCMD_INQUIRE_Q_NAMES,
	InquireTopic:        ibmmq.MQCMD_INQUIRE_TOPIC,
	InquireTopicStatus:  ibmmq.MQCMD_INQUIRE_TOPIC_STATUS,
	InquireSubscription: ibmmq.MQCMD_INQUIRE_SUBSCRIPTION,
	InquireSubStatus:    ibmmq.MQCMD_INQUIRE_SUB_STATUS,
}

var paramIDs = map[Param]int32{
	QueueManagerName: ibmmq.MQCA_Q_MGR_NAME,
	QueueName:        ibmmq.MQCA_Q_NAME,
	QueueType:        ibmmq.MQIA_Q_TYPE,
	QueueNames:       ibmmq.MQCACF_Q_NAMES,
	CurrentDepth:     ibmmq.MQIA_CURRENT_Q_DEPTH,
	LastGetDate:      ibmmq.MQCACF_LAST_GET_DATE,
	LastGetTime:      ibmmq.MQCACF_LAST_GET_TIME,
	LastPutDate:      ibmmq.MQCACF_LAST_PUT_DATE,
	LastPutTime:      ibmmq.MQCACF_LAST_PUT_TIME,
	OldestMsgAge:     ibmmq.MQIACF_OLDEST_MSG_AGE,
	QueueTimeIndic:   ibmmq.MQIACF_Q_TIME_INDICATOR,
	OpenInputCount:   ibmmq.MQIA_OPEN_INPUT_COUNT,
	OpenOutputCount:  ibmmq.MQIA_OPEN_OUTPUT_COUNT,
	TopicName:        ibmmq.MQCA_TOPIC_NAME,
	TopicString:      ibmmq.MQCA_TOPIC_STRING,
	TopicAttrs:       ibmmq.MQIACF_TOPIC_ATTRS,
	TopicStatusType:  ibmmq.MQIACF_TOPIC_STATUS_TYPE,
	PubCount:         ibmmq.MQIA_PUB_COUNT,
	SubCount:         ibmmq.MQIA_SUB_COUNT,
	CommInfoName:     ibmmq.MQCA_COMM_INFO_NAME,
	ConnectionID:     ibmmq.MQBACF_CONNECTION_ID,
	LastPubDate:      ibmmq.MQCACF_LAST_PUB_DATE,
	LastPubTime:      ibmmq.MQCACF_LAST_PUB_TIME,
	PublishCount:     ibmmq.MQIACF_PUBLISH_COUNT,
	ResumeDate:       ibmmq.MQCA_RESUME_DATE,
	ResumeTime:       ibmmq.MQCA_RESUME_TIME,
	LastMsgDate:      ibmmq.MQCACF_LAST_MSG_DATE,
	LastMsgTime:      ibmmq.MQCACF_LAST_MSG_TIME,
	MessageCount:     ibmmq.MQIACF_MESSAGE_COUNT,
	SubID:            ibmmq.MQBACF_SUB_ID,
	SubName:          ibmmq.MQCACF_SUB_NAME,
	Destination:      ibmmq.MQCACF_DESTINATION,
	DestinationQMgr:  ibmmq.MQCACF_DESTINATION_Q_MGR,
	SubUserData:      ibmmq.MQCACF_SUB_USER_DATA,
	DestinationClass: ibmmq.MQIACF_DESTINATION_CLASS,
	SubScope:         ibmmq.MQIACF_SUBSCRIPTION_SCOPE,
	Durable:          ibmmq.MQIACF_DURABLE_SUBSCRIPTION,
}

var symbolValues = map[Symbol]int64{
	QueueTypeLocal:        ibmmq.MQQT_LOCAL,
	TopicStatusGeneral:    ibmmq.MQIACF_TOPIC_STATUS,
	TopicStatusPublisher:  ibmmq.MQIACF_TOPIC_PUB,
	TopicStatusSubscriber: ibmmq.MQIACF_TOPIC_SUB,
	DestinationManaged:    ibmmq.MQDC_MANAGED,
	DestinationProvided:   ibmmq.MQDC_PROVIDED,
	ScopeAll:              ibmmq.MQTSCOPE_ALL,
	ScopeQueueManager:     ibmmq.MQTSCOPE_QMGR,
	DurableYes:            ibmmq.MQSUB_DURABLE_YES,
	DurableNo:             ibmmq.MQSUB_DURABLE_NO,
}

// enumParams lists reply parameters surfaced as Symbols.
var enumParams = map[Param][]Symbol{
	DestinationClass: {DestinationManaged, DestinationProvided},
	SubScope:         {ScopeAll, ScopeQueueManager},
	Durable:          {DurableYes, DurableNo},
}

var paramNames = func() map[int32]Param {
	m := make(map[int32]Param, len(paramIDs))
	for p, id := range paramIDs {
		m[id] = p
	}
	return m
}()

// notFoundReasons are reply reasons reported as mqerr.NotFound.
var notFoundReasons = map[int32]bool{
	ibmmq.MQRC_UNKNOWN_OBJECT_NAME: true,
}

// connectReasons are MQI reasons that leave the connection unusable.
var connectReasons = map[int32]bool{
	ibmmq.MQRC_CONNECTION_BROKEN:   true,
	ibmmq.MQRC_Q_MGR_NOT_AVAILABLE: true,
	ibmmq.MQRC_HOST_NOT_AVAILABLE:  true,
	ibmmq.MQRC_Q_MGR_QUIESCING:     true,
	ibmmq.MQRC_Q_MGR_STOPPING:      true,
	ibmmq.MQRC_HCONN_ERROR:         true,
}

type ibmDialer struct {
	cfg TransportConfig
	log *slog.Logger
}

// NewDialer returns a Dialer backed by the IBM MQ client library.
func NewDialer(cfg TransportConfig, log *slog.Logger) Dialer {
	if log == nil {
		log = slog.Default()
	}
	return &ibmDialer{cfg: cfg, log: log.With("component", "pcf")}
}

// Available reports whether a real transport is compiled in.
func Available() bool { return true }

func (d *ibmDialer) Dial(ctx context.Context, desc endpoint.Descriptor) (Connection, string, error) {
	const op = "pcf.dial"
	if err := ctx.Err(); err != nil {
		return nil, "", mqerr.E(mqerr.Timeout, op, err).WithKey(desc.Key.String())
	}

	cno := ibmmq.NewMQCNO()
	cd := ibmmq.NewMQCD()
	cd.ChannelName = desc.Key.Channel()
	cd.ConnectionName = desc.Key.ConnectionName()
	cno.ClientConn = cd
	cno.Options = ibmmq.MQCNO_CLIENT_BINDING

	qmgr, err := ibmmq.Connx(d.cfg.QueueManager, cno)
	if err != nil {
		return nil, "", mqerr.E(mqerr.ConnectError, op, err).WithKey(desc.Key.String())
	}

	c := &ibmConn{qmgr: qmgr, desc: desc, log: d.log.With("key", desc.Key.String())}

	od := ibmmq.NewMQOD()
	od.ObjectType = ibmmq.MQOT_Q
	od.ObjectName = d.cfg.CommandQueue
	c.cmdQ, err = qmgr.Open(od, ibmmq.MQOO_OUTPUT|ibmmq.MQOO_FAIL_IF_QUIESCING)
	if err != nil {
		_ = qmgr.Disc()
		return nil, "", mqerr.E(mqerr.ConnectError, op, fmt.Errorf("open %s: %w", d.cfg.CommandQueue, err)).WithKey(desc.Key.String())
	}

	rod := ibmmq.NewMQOD()
	rod.ObjectType = ibmmq.MQOT_Q
	rod.ObjectName = d.cfg.ReplyModelQueue
	rod.DynamicQName = d.cfg.ReplyQueuePrefix
	c.replyQ, err = qmgr.Open(rod, ibmmq.MQOO_INPUT_EXCLUSIVE|ibmmq.MQOO_FAIL_IF_QUIESCING)
	if err != nil {
		_ = c.cmdQ.Close(0)
		_ = qmgr.Disc()
		return nil, "", mqerr.E(mqerr.ConnectError, op, fmt.Errorf("open reply queue: %w", err)).WithKey(desc.Key.String())
	}
	c.replyQName = c.replyQ.Name

	name, err := c.InquireQueueManager(ctx)
	if err != nil {
		_ = c.Disconnect()
		return nil, "", err
	}
	c.qmgrName = name
	c.log.Debug("connected", "qmgr", name, "replyQueue", c.replyQName)
	return c, name, nil
}

type ibmConn struct {
	qmgr       ibmmq.MQQueueManager
	cmdQ       ibmmq.MQObject
	replyQ     ibmmq.MQObject
	replyQName string
	qmgrName   string
	desc       endpoint.Descriptor
	log        *slog.Logger
}

func (c *ibmConn) InquireQueueManager(ctx context.Context) (string, error) {
	const op = "pcf.inquire_qmgr"
	if err := ctx.Err(); err != nil {
		return "", mqerr.E(mqerr.Timeout, op, err)
	}
	od := ibmmq.NewMQOD()
	od.ObjectType = ibmmq.MQOT_Q_MGR
	obj, err := c.qmgr.Open(od, ibmmq.MQOO_INQUIRE|ibmmq.MQOO_FAIL_IF_QUIESCING)
	if err != nil {
		return "", classifyMQI(op, err)
	}
	defer func() { _ = obj.Close(0) }()

	vals, err := obj.Inq([]int32{ibmmq.MQCA_Q_MGR_NAME})
	if err != nil {
		return "", classifyMQI(op, err)
	}
	name, _ := vals[ibmmq.MQCA_Q_MGR_NAME].(string)
	return strings.TrimSpace(name), nil
}

func (c *ibmConn) Send(ctx context.Context, cmd *Command) ([]*Reply, error) {
	op := "pcf." + strings.ToLower(strings.TrimPrefix(string(cmd.Code), "MQCMD_"))
	if err := ctx.Err(); err != nil {
		return nil, mqerr.E(mqerr.Timeout, op, err)
	}

	code, ok := commandIDs[cmd.Code]
	if !ok {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, op, "unknown command %s", cmd.Code)
	}
	params := make([]*ibmmq.PCFParameter, 0, len(cmd.Params))
	for _, p := range cmd.Params {
		pp, err := encodeParam(p)
		if err != nil {
			return nil, mqerr.E(mqerr.InvalidArgument, op, err)
		}
		params = append(params, pp)
	}

	cfh := ibmmq.NewMQCFH()
	cfh.Type = ibmmq.MQCFT_COMMAND
	cfh.Command = code
	cfh.ParameterCount = int32(len(params))
	msg := cfh.Bytes()
	for _, p := range params {
		msg = append(msg, p.Bytes()...)
	}

	md := ibmmq.NewMQMD()
	md.MsgType = ibmmq.MQMT_REQUEST
	md.Format = "MQADMIN"
	md.ReplyToQ = c.replyQName
	md.CodedCharSetId = 1208
	md.Expiry = int32(c.desc.ProtocolExpiry * 10)

	pmo := ibmmq.NewMQPMO()
	pmo.Options = ibmmq.MQPMO_NEW_MSG_ID | ibmmq.MQPMO_NEW_CORREL_ID | ibmmq.MQPMO_FAIL_IF_QUIESCING

	if err := c.cmdQ.Put(md, pmo, msg); err != nil {
		return nil, classifyMQI(op, err)
	}
	c.log.Debug("pcf request", "command", cmd.Code, "params", len(params))

	return c.readReplies(ctx, op, cmd.Code, md.MsgId)
}

func (c *ibmConn) readReplies(ctx context.Context, op string, code CommandCode, correlID []byte) ([]*Reply, error) {
	gmo := ibmmq.NewMQGMO()
	gmo.Options = ibmmq.MQGMO_WAIT | ibmmq.MQGMO_CONVERT | ibmmq.MQGMO_FAIL_IF_QUIESCING
	gmo.MatchOptions = ibmmq.MQMO_MATCH_CORREL_ID
	gmo.WaitInterval = int32(c.waitInterval(ctx) / time.Millisecond)

	var (
		replies []*Reply
		failure error
		size    = initialReplyBuffer
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, mqerr.E(mqerr.Timeout, op, err)
		}
		md := ibmmq.NewMQMD()
		copy(md.CorrelId, correlID)
		buf := make([]byte, size)

		n, err := c.replyQ.Get(md, gmo, buf)
		if err != nil {
			var mqret *ibmmq.MQReturn
			if errors.As(err, &mqret) && mqret.MQRC == ibmmq.MQRC_DATA_LENGTH_ERROR && size < maxReplyBuffer {
				size *= 2
				continue
			}
			if errors.As(err, &mqret) && mqret.MQRC == ibmmq.MQRC_NO_MSG_AVAILABLE {
				return nil, mqerr.Errorf(mqerr.Timeout, op, "no reply within %s", time.Duration(gmo.WaitInterval)*time.Millisecond)
			}
			return nil, classifyMQI(op, err)
		}

		cfh, offset := ibmmq.ReadPCFHeader(buf[:n])
		if cfh == nil {
			return nil, mqerr.Errorf(mqerr.ProtocolError, op, "unreadable PCF header")
		}
		if cfh.CompCode != ibmmq.MQCC_OK && failure == nil {
			re := &ReasonError{
				Command:    code,
				CompCode:   cfh.CompCode,
				Reason:     cfh.Reason,
				ReasonName: ibmmq.MQItoString("RC", int(cfh.Reason)),
			}
			kind := mqerr.ProtocolError
			if notFoundReasons[cfh.Reason] {
				kind = mqerr.NotFound
			}
			failure = mqerr.E(kind, op, re)
		}
		if cfh.CompCode == ibmmq.MQCC_OK {
			replies = append(replies, decodeParams(buf[offset:n], int(cfh.ParameterCount)))
		}
		if cfh.Control == ibmmq.MQCFC_LAST {
			break
		}
	}
	if failure != nil && len(replies) == 0 {
		return nil, failure
	}
	return replies, nil
}

// waitInterval is the smaller of the remaining ctx budget and the
// descriptor's protocol wait.
func (c *ibmConn) waitInterval(ctx context.Context) time.Duration {
	wait := time.Duration(c.desc.ProtocolWait) * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < wait {
			wait = rem
		}
	}
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (c *ibmConn) Disconnect() error {
	var errs []error
	if err := c.replyQ.Close(0); err != nil {
		errs = append(errs, err)
	}
	if err := c.cmdQ.Close(0); err != nil {
		errs = append(errs, err)
	}
	if err := c.qmgr.Disc(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func encodeParam(p Parameter) (*ibmmq.PCFParameter, error) {
	id, ok := paramIDs[p.ID]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %s", p.ID)
	}
	switch v := p.Value.(type) {
	case string:
		return &ibmmq.PCFParameter{Type: ibmmq.MQCFT_STRING, Parameter: id, String: []string{v}}, nil
	case int64:
		return &ibmmq.PCFParameter{Type: ibmmq.MQCFT_INTEGER, Parameter: id, Int64Value: []int64{v}}, nil
	case Symbol:
		n, ok := symbolValues[v]
		if !ok {
			return nil, fmt.Errorf("unknown value %s for %s", v, p.ID)
		}
		return &ibmmq.PCFParameter{Type: ibmmq.MQCFT_INTEGER, Parameter: id, Int64Value: []int64{n}}, nil
	case []byte:
		return &ibmmq.PCFParameter{Type: ibmmq.MQCFT_BYTE_STRING, Parameter: id, String: []string{string(v)}}, nil
	case []Param:
		list := make([]int64, 0, len(v))
		for _, sel := range v {
			n, ok := paramIDs[sel]
			if !ok {
				return nil, fmt.Errorf("unknown selector %s", sel)
			}
			list = append(list, int64(n))
		}
		return &ibmmq.PCFParameter{Type: ibmmq.MQCFT_INTEGER_LIST, Parameter: id, Int64Value: list}, nil
	default:
		return nil, fmt.Errorf("unsupported value %T for %s", p.Value, p.ID)
	}
}

func decodeParams(data []byte, count int) *Reply {
	r := NewReply(nil)
	offset := 0
	for i := 0; i < count && offset < len(data); i++ {
		p, n := ibmmq.ReadPCFParameter(data[offset:])
		if p == nil || n == 0 {
			break
		}
		offset += n
		name, ok := paramNames[p.Parameter]
		if !ok {
			continue
		}
		switch p.Type {
		case ibmmq.MQCFT_INTEGER, ibmmq.MQCFT_INTEGER64:
			if len(p.Int64Value) == 0 {
				continue
			}
			r.Set(name, decodeInt(name, p.Int64Value[0]))
		case ibmmq.MQCFT_INTEGER_LIST, ibmmq.MQCFT_INTEGER64_LIST:
			r.Set(name, append([]int64(nil), p.Int64Value...))
		case ibmmq.MQCFT_STRING:
			if len(p.String) > 0 {
				r.Set(name, p.String[0])
			}
		case ibmmq.MQCFT_STRING_LIST:
			r.Set(name, append([]string(nil), p.String...))
		case ibmmq.MQCFT_BYTE_STRING:
			if len(p.String) > 0 {
				r.Set(name, []byte(p.String[0]))
			}
		}
	}
	return r
}

func decodeInt(name Param, v int64) any {
	for _, sym := range enumParams[name] {
		if symbolValues[sym] == v {
			return sym
		}
	}
	return v
}

func classifyMQI(op string, err error) error {
	var mqret *ibmmq.MQReturn
	if errors.As(err, &mqret) {
		if connectReasons[mqret.MQRC] {
			return mqerr.E(mqerr.ConnectError, op, err)
		}
		if notFoundReasons[mqret.MQRC] {
			return mqerr.E(mqerr.NotFound, op, err)
		}
	}
	return mqerr.E(mqerr.ProtocolError, op, err)
}
