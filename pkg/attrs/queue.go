package attrs

import "github.com/getmockd/mqfacade/pkg/pcf"

// Queue attributes, read from an MQCMD_INQUIRE_Q_STATUS reply.
const (
	QueueName        Name = "NAME"
	QueueAdmin       Name = "ADMIN"
	QueueDepth       Name = "QUEUE_DEPTH"
	QueueLastGet     Name = "LAST_GET"
	QueueLastPut     Name = "LAST_PUT"
	QueueOldestAge   Name = "OLDEST_MSG_AGE"
	QueueOnQTime     Name = "ON_Q_TIME"
	QueueOpenInputs  Name = "OPEN_INPUTS"
	QueueOpenOutputs Name = "OPEN_OUTPUTS"
)

var queueRules = []Rule{
	stringRule(QueueName, Queue, None, pcf.QueueName),
	{Name: QueueAdmin, Domain: Queue, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		name, err := r.String(pcf.QueueName)
		if err != nil {
			return nil, missing(err)
		}
		return IsAdmin(name), nil
	}},
	intRule(QueueDepth, Queue, None, pcf.CurrentDepth),
	timeRule(QueueLastGet, Queue, None, pcf.LastGetDate, pcf.LastGetTime),
	timeRule(QueueLastPut, Queue, None, pcf.LastPutDate, pcf.LastPutTime),
	intRule(QueueOldestAge, Queue, None, pcf.OldestMsgAge),
	{Name: QueueOnQTime, Domain: Queue, Extract: func(in Input) (any, error) {
		r, err := first(in)
		if err != nil {
			return nil, err
		}
		l, err := r.IntList(pcf.QueueTimeIndic)
		if err != nil {
			return nil, missing(err)
		}
		return l, nil
	}},
	intRule(QueueOpenInputs, Queue, None, pcf.OpenInputCount),
	intRule(QueueOpenOutputs, Queue, None, pcf.OpenOutputCount),
}
