package attrs

import (
	"time"

	"github.com/getmockd/mqfacade/pkg/pcf"
)

// Topic status attributes (MQIACF_TOPIC_STATUS).
const (
	TopicPublisherCount  Name = "PUBLISHER_COUNT"
	TopicSubscriberCount Name = "SUBSCRIBER_COUNT"
	TopicCommInfo        Name = "SUB_COMM_INFO"
)

// Topic publisher attributes (MQIACF_TOPIC_PUB), keyed by connection id.
const (
	TopicLastPubDates  Name = "LAST_PUB_DATES"
	TopicPubMsgCounts  Name = "PUB_MSG_COUNTS"
	TopicPubConnection Name = "PUB_CONNECTION_ID"
)

// Topic subscriber attributes (MQIACF_TOPIC_SUB), keyed by subscription id.
const (
	TopicSubResumeDate  Name = "SUB_RESUME_DATE"
	TopicSubLastMsgDate Name = "SUB_LAST_MESSAGE_DATE"
	TopicSubMsgCounts   Name = "SUB_MSG_COUNTS"
	TopicSubID          Name = "SUB_SUBSCRIPTION_ID"
	TopicSubIDBytes     Name = "SUB_SUBSCRIPTION_ID_BYTES"
)

var topicRules = []Rule{
	intRule(TopicPublisherCount, Topic, Status, pcf.PubCount),
	intRule(TopicSubscriberCount, Topic, Status, pcf.SubCount),
	stringRule(TopicCommInfo, Topic, Status, pcf.CommInfoName),

	perID(TopicLastPubDates, Publisher, pcf.ConnectionID, func(r *pcf.Reply) (any, error) {
		return replyTimestamp(r, pcf.LastPubDate, pcf.LastPubTime)
	}),
	perID(TopicPubMsgCounts, Publisher, pcf.ConnectionID, func(r *pcf.Reply) (any, error) {
		return r.Int(pcf.PublishCount)
	}),
	idList(TopicPubConnection, Publisher, pcf.ConnectionID),

	perID(TopicSubResumeDate, Subscriber, pcf.SubID, func(r *pcf.Reply) (any, error) {
		return replyTimestamp(r, pcf.ResumeDate, pcf.ResumeTime)
	}),
	perID(TopicSubLastMsgDate, Subscriber, pcf.SubID, func(r *pcf.Reply) (any, error) {
		return replyTimestamp(r, pcf.LastMsgDate, pcf.LastMsgTime)
	}),
	perID(TopicSubMsgCounts, Subscriber, pcf.SubID, func(r *pcf.Reply) (any, error) {
		return r.Int(pcf.MessageCount)
	}),
	idList(TopicSubID, Subscriber, pcf.SubID),
	perID(TopicSubIDBytes, Subscriber, pcf.SubID, func(r *pcf.Reply) (any, error) {
		return r.Bytes(pcf.SubID)
	}),
}

// perID builds a rule whose value maps the hex id of each reply to a
// per-reply value. Replies without an id, or whose value is missing, are
// skipped; so are timestamps that are absent.
func perID(name Name, sub SubType, idParam pcf.Param, value func(*pcf.Reply) (any, error)) Rule {
	return Rule{Name: name, Domain: Topic, SubType: sub, Extract: func(in Input) (any, error) {
		if len(in.Replies) == 0 {
			return nil, ErrAbsent
		}
		out := make(map[string]any, len(in.Replies))
		for _, r := range in.Replies {
			id, err := r.Bytes(idParam)
			if err != nil {
				continue
			}
			v, err := value(r)
			if err != nil {
				continue
			}
			if t, ok := v.(time.Time); ok && t.IsZero() {
				continue
			}
			out[HexID(id)] = v
		}
		return out, nil
	}}
}

func idList(name Name, sub SubType, idParam pcf.Param) Rule {
	return Rule{Name: name, Domain: Topic, SubType: sub, Extract: func(in Input) (any, error) {
		if len(in.Replies) == 0 {
			return nil, ErrAbsent
		}
		out := make([]string, 0, len(in.Replies))
		for _, r := range in.Replies {
			if id, err := r.Bytes(idParam); err == nil {
				out = append(out, HexID(id))
			}
		}
		return out, nil
	}}
}
