package attrs

import "github.com/getmockd/mqfacade/pkg/pcf"

// Subscription definition attributes (MQCMD_INQUIRE_SUBSCRIPTION).
const (
	SubDestination Name = "DESTINATION"
	SubTopic       Name = "TOPIC"
	SubUserData    Name = "USER_DATA"
	SubManaged     Name = "MANAGED"
	SubScopeAll    Name = "SCOPE_ALL"
	SubDurable     Name = "DURABLE"
	SubQueueMgr    Name = "QUEUE_MGR"
	SubUndelivered Name = "UNDELIVERED_MESSAGES"
)

// Subscription status attributes (MQCMD_INQUIRE_SUB_STATUS).
const (
	SubLastMessageSent Name = "LAST_MESSAGE_SENT"
	SubLastResume      Name = "LAST_RESUME"
	SubMessagesSent    Name = "MESSAGES_SENT"
)

// UndeliveredUnknown is reported when the destination depth cannot be read.
const UndeliveredUnknown int64 = -1

var subscriptionRules = []Rule{
	stringRule(SubDestination, Subscription, Definition, pcf.Destination),
	stringRule(SubTopic, Subscription, Definition, pcf.TopicString),
	stringRule(SubUserData, Subscription, Definition, pcf.SubUserData),
	symbolRule(SubManaged, Subscription, Definition, pcf.DestinationClass, pcf.DestinationManaged),
	symbolRule(SubScopeAll, Subscription, Definition, pcf.SubScope, pcf.ScopeAll),
	symbolRule(SubDurable, Subscription, Definition, pcf.Durable, pcf.DurableYes),
	stringRule(SubQueueMgr, Subscription, Definition, pcf.DestinationQMgr),
	{Name: SubUndelivered, Domain: Subscription, SubType: Definition, Extract: undelivered},

	timeRule(SubLastMessageSent, Subscription, Status, pcf.LastMsgDate, pcf.LastMsgTime),
	timeRule(SubLastResume, Subscription, Status, pcf.ResumeDate, pcf.ResumeTime),
	intRule(SubMessagesSent, Subscription, Status, pcf.MessageCount),
}

// undelivered is the depth of the subscription's destination queue.
func undelivered(in Input) (any, error) {
	r, err := first(in)
	if err != nil {
		return nil, err
	}
	dest, err := r.String(pcf.Destination)
	if err != nil || in.Depth == nil || trim(dest) == "" {
		return UndeliveredUnknown, nil
	}
	depth, err := in.Depth(in.Ctx, trim(dest))
	if err != nil {
		return UndeliveredUnknown, nil
	}
	return depth, nil
}
