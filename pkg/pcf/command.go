package pcf

// CommandCode names a PCF command, e.g. "MQCMD_INQUIRE_Q_STATUS".
type CommandCode string

// Param names a PCF parameter, e.g. "MQCA_Q_NAME".
type Param string

// Symbol names an enumerated integer value, e.g. "MQQT_LOCAL". The
// transport translates symbols to and from the numeric constants of the
// client library.
type Symbol string

// Commands issued by the facade.
const (
	InquireQueueStatus  CommandCode = "MQCMD_INQUIRE_Q_STATUS"
	InquireQueueNames   CommandCode = "MQCMD_INQUIRE_Q_NAMES"
	InquireTopic        CommandCode = "MQCMD_INQUIRE_TOPIC"
	InquireTopicStatus  CommandCode = "MQCMD_INQUIRE_TOPIC_STATUS"
	InquireSubscription CommandCode = "MQCMD_INQUIRE_SUBSCRIPTION"
	InquireSubStatus    CommandCode = "MQCMD_INQUIRE_SUB_STATUS"
)

// Parameters read or written by the facade.
const (
	QueueManagerName Param = "MQCA_Q_MGR_NAME"

	QueueName       Param = "MQCA_Q_NAME"
	QueueType       Param = "MQIA_Q_TYPE"
	QueueNames      Param = "MQCACF_Q_NAMES"
	CurrentDepth    Param = "MQIA_CURRENT_Q_DEPTH"
	LastGetDate     Param = "MQCACF_LAST_GET_DATE"
	LastGetTime     Param = "MQCACF_LAST_GET_TIME"
	LastPutDate     Param = "MQCACF_LAST_PUT_DATE"
	LastPutTime     Param = "MQCACF_LAST_PUT_TIME"
	OldestMsgAge    Param = "MQIACF_OLDEST_MSG_AGE"
	QueueTimeIndic  Param = "MQIACF_Q_TIME_INDICATOR"
	OpenInputCount  Param = "MQIA_OPEN_INPUT_COUNT"
	OpenOutputCount Param = "MQIA_OPEN_OUTPUT_COUNT"

	TopicName       Param = "MQCA_TOPIC_NAME"
	TopicString     Param = "MQCA_TOPIC_STRING"
	TopicAttrs      Param = "MQIACF_TOPIC_ATTRS"
	TopicStatusType Param = "MQIACF_TOPIC_STATUS_TYPE"
	PubCount        Param = "MQIA_PUB_COUNT"
	SubCount        Param = "MQIA_SUB_COUNT"
	CommInfoName    Param = "MQCA_COMM_INFO_NAME"
	ConnectionID    Param = "MQBACF_CONNECTION_ID"
	LastPubDate     Param = "MQCACF_LAST_PUB_DATE"
	LastPubTime     Param = "MQCACF_LAST_PUB_TIME"
	PublishCount    Param = "MQIACF_PUBLISH_COUNT"
	ResumeDate      Param = "MQCA_RESUME_DATE"
	ResumeTime      Param = "MQCA_RESUME_TIME"
	LastMsgDate     Param = "MQCACF_LAST_MSG_DATE"
	LastMsgTime     Param = "MQCACF_LAST_MSG_TIME"
	MessageCount    Param = "MQIACF_MESSAGE_COUNT"

	SubID            Param = "MQBACF_SUB_ID"
	SubName          Param = "MQCACF_SUB_NAME"
	Destination      Param = "MQCACF_DESTINATION"
	DestinationQMgr  Param = "MQCACF_DESTINATION_Q_MGR"
	SubUserData      Param = "MQCACF_SUB_USER_DATA"
	DestinationClass Param = "MQIACF_DESTINATION_CLASS"
	SubScope         Param = "MQIACF_SUBSCRIPTION_SCOPE"
	Durable          Param = "MQIACF_DURABLE_SUBSCRIPTION"
)

// Enumerated values.
const (
	QueueTypeLocal Symbol = "MQQT_LOCAL"

	TopicStatusGeneral    Symbol = "MQIACF_TOPIC_STATUS"
	TopicStatusPublisher  Symbol = "MQIACF_TOPIC_PUB"
	TopicStatusSubscriber Symbol = "MQIACF_TOPIC_SUB"

	DestinationManaged  Symbol = "MQDC_MANAGED"
	DestinationProvided Symbol = "MQDC_PROVIDED"
	ScopeAll            Symbol = "MQTSCOPE_ALL"
	ScopeQueueManager   Symbol = "MQTSCOPE_QMGR"
	DurableYes          Symbol = "MQSUB_DURABLE_YES"
	DurableNo           Symbol = "MQSUB_DURABLE_NO"
)

// Parameter is one command parameter. Value is one of string, int64,
// Symbol, []byte or []Param (an attribute selector list).
type Parameter struct {
	ID    Param
	Value any
}

// Command is a PCF request.
type Command struct {
	Code   CommandCode
	Params []Parameter
}

// NewCommand builds a command.
func NewCommand(code CommandCode, params ...Parameter) *Command {
	return &Command{Code: code, Params: params}
}

// Get returns the value of the first parameter with the given id.
func (c *Command) Get(id Param) (any, bool) {
	for _, p := range c.Params {
		if p.ID == id {
			return p.Value, true
		}
	}
	return nil, false
}

// StringParam builds a string parameter.
func StringParam(id Param, v string) Parameter { return Parameter{ID: id, Value: v} }

// IntParam builds an integer parameter.
func IntParam(id Param, v int64) Parameter { return Parameter{ID: id, Value: v} }

// SymbolParam builds an enumerated integer parameter.
func SymbolParam(id Param, v Symbol) Parameter { return Parameter{ID: id, Value: v} }

// BytesParam builds a byte-string parameter.
func BytesParam(id Param, v []byte) Parameter { return Parameter{ID: id, Value: v} }

// SelectorParam builds an attribute selector list.
func SelectorParam(id Param, sel ...Param) Parameter { return Parameter{ID: id, Value: sel} }
