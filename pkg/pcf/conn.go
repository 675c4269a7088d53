package pcf

import (
	"context"
	"errors"
	"fmt"

	"github.com/getmockd/mqfacade/pkg/endpoint"
)

// ErrTransportUnavailable is returned by the default dialer when the binary
// was built without the IBM MQ client (build tags cgo and ibm_mq).
var ErrTransportUnavailable = errors.New("IBM MQ transport not compiled in (build with -tags ibm_mq and cgo enabled)")

// Connection is a live PCF session with one queue manager. A Connection is
// not safe for concurrent use; commands on it are strictly sequential.
type Connection interface {
	// Send issues one command and returns every reply message, in order.
	Send(ctx context.Context, cmd *Command) ([]*Reply, error)
	// InquireQueueManager reads the remote queue-manager name.
	InquireQueueManager(ctx context.Context) (string, error)
	// Disconnect closes the session.
	Disconnect() error
}

// Dialer opens connections.
type Dialer interface {
	// Dial connects to the endpoint of desc and returns the connection and
	// the resolved queue-manager name.
	Dial(ctx context.Context, desc endpoint.Descriptor) (Connection, string, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, desc endpoint.Descriptor) (Connection, string, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, desc endpoint.Descriptor) (Connection, string, error) {
	return f(ctx, desc)
}

// TransportConfig configures the IBM MQ transport.
type TransportConfig struct {
	// QueueManager is the queue-manager name passed to connect. Empty
	// accepts whichever queue manager listens on the channel.
	QueueManager string
	// CommandQueue receives PCF requests.
	CommandQueue string
	// ReplyModelQueue is the model queue used to create the dynamic reply queue.
	ReplyModelQueue string
	// ReplyQueuePrefix names the dynamic reply queue.
	ReplyQueuePrefix string
}

// DefaultTransportConfig returns the standard admin queue names.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		CommandQueue:     "SYSTEM.ADMIN.COMMAND.QUEUE",
		ReplyModelQueue:  "SYSTEM.DEFAULT.MODEL.QUEUE",
		ReplyQueuePrefix: "MQFACADE.*",
	}
}

// ReasonError describes a PCF reply whose completion code was not OK.
type ReasonError struct {
	Command  CommandCode
	CompCode int32
	Reason   int32
	// ReasonName is the symbolic reason, e.g. "MQRC_UNKNOWN_OBJECT_NAME".
	ReasonName string
}

// Error implements the error interface.
func (e *ReasonError) Error() string {
	return fmt.Sprintf("%s failed: cc=%d reason=%d (%s)", e.Command, e.CompCode, e.Reason, e.ReasonName)
}
