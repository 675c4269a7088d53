// Error handling utilities for the admin API.
// This file maps classified errors to HTTP responses and keeps internal
// details out of 5xx bodies.

package admin

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Error codes returned in ErrorResponse.Error.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodePoolExhausted     = "pool_exhausted"
	CodeTimeout           = "timeout"
	CodeBrokerUnreachable = "broker_unreachable"
	CodeProtocolError     = "protocol_error"
	CodeShuttingDown      = "shutting_down"
	CodeLoadFailed        = "load_failed"
	CodeInternal          = "internal_error"
)

// Safe error messages for client responses.
const (
	// ErrMsgInternalError is returned for unexpected internal errors.
	ErrMsgInternalError = "An internal error occurred"

	// ErrMsgPoolExhausted is returned when no connection could be borrowed in time.
	ErrMsgPoolExhausted = "All connections to the queue manager are busy"

	// ErrMsgTimeout is returned when the broker did not answer in time.
	ErrMsgTimeout = "The queue manager did not respond in time"

	// ErrMsgBrokerUnreachable is returned when a connection could not be made.
	ErrMsgBrokerUnreachable = "The queue manager could not be reached"

	// ErrMsgProtocolError is returned when the broker rejected a command.
	ErrMsgProtocolError = "The queue manager rejected the command"

	// ErrMsgShuttingDown is returned once shutdown has begun.
	ErrMsgShuttingDown = "The service is shutting down"

	// ErrMsgLoadFailed is returned when a cache load failed for another reason.
	ErrMsgLoadFailed = "Failed to load the requested data"
)

// errorMapping is one row of the kind to HTTP table.
type errorMapping struct {
	status int
	code   string
	// message replaces the error text; empty passes the error text through.
	message string
}

var errorMappings = map[mqerr.Kind]errorMapping{
	mqerr.InvalidArgument: {http.StatusBadRequest, CodeInvalidArgument, ""},
	mqerr.NotFound:        {http.StatusNotFound, CodeNotFound, ""},
	mqerr.PoolExhausted:   {http.StatusServiceUnavailable, CodePoolExhausted, ErrMsgPoolExhausted},
	mqerr.Timeout:         {http.StatusGatewayTimeout, CodeTimeout, ErrMsgTimeout},
	mqerr.ConnectError:    {http.StatusBadGateway, CodeBrokerUnreachable, ErrMsgBrokerUnreachable},
	mqerr.ProtocolError:   {http.StatusBadGateway, CodeProtocolError, ErrMsgProtocolError},
	mqerr.Closed:          {http.StatusServiceUnavailable, CodeShuttingDown, ErrMsgShuttingDown},
	mqerr.LoadError:       {http.StatusInternalServerError, CodeLoadFailed, ErrMsgLoadFailed},
	mqerr.Internal:        {http.StatusInternalServerError, CodeInternal, ErrMsgInternalError},
}

// mapError returns the status, code and client-safe message for err.
func mapError(err error) (int, string, string) {
	m, ok := errorMappings[mqerr.KindOf(err)]
	if !ok {
		m = errorMappings[mqerr.Internal]
	}
	msg := m.message
	if msg == "" {
		msg = clientMessage(err)
	}
	return m.status, m.code, msg
}

// clientMessage strips the op prefixes of nested classified errors so 4xx
// bodies read as plain sentences.
func clientMessage(err error) string {
	var e *mqerr.Error
	for errors.As(err, &e) {
		if e.Err == nil {
			return e.Kind.String()
		}
		err = e.Err
	}
	return err.Error()
}

// writeMQError logs err server-side and writes the mapped response. 4xx
// are logged at debug, everything else at error.
func writeMQError(w http.ResponseWriter, log *slog.Logger, err error, operation string, details ...any) {
	status, code, msg := mapError(err)
	if log != nil {
		args := append([]any{"operation", operation, "status", status, "error", err}, details...)
		if status < http.StatusInternalServerError {
			log.Debug("request rejected", args...)
		} else {
			log.Error("operation failed", args...)
		}
	}
	if status == http.StatusServiceUnavailable && code == CodePoolExhausted {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, msg)
}
