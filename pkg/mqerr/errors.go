// Package mqerr defines the error taxonomy shared by the pool, cache,
// instance and admin layers.
//
// Every error that crosses a package boundary is an *Error carrying a Kind.
// Callers branch with errors.Is against the sentinel values:
//
//	if errors.Is(err, mqerr.ErrPoolExhausted) {
//		// apply backpressure
//	}
//
// KindOf reports the effective kind of any error, looking through LoadError
// to the classified cause so that a loader that failed to connect is still
// reported as ConnectError.
package mqerr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error for handling purposes.
type Kind int

// Error kinds.
const (
	Internal Kind = iota
	InvalidArgument
	NotFound
	ConnectError
	ProtocolError
	PoolExhausted
	Timeout
	LoadError
	Closed
)

var kindNames = map[Kind]string{
	Internal:        "internal",
	InvalidArgument: "invalid argument",
	NotFound:        "not found",
	ConnectError:    "connect error",
	ProtocolError:   "protocol error",
	PoolExhausted:   "pool exhausted",
	Timeout:         "timeout",
	LoadError:       "load error",
	Closed:          "closed",
}

// String returns the human-readable kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrInternal        = errors.New("internal")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConnect         = errors.New("connect error")
	ErrProtocol        = errors.New("protocol error")
	ErrPoolExhausted   = errors.New("pool exhausted")
	ErrTimeout         = errors.New("timeout")
	ErrLoad            = errors.New("load error")
	ErrClosed          = errors.New("closed")
)

var sentinels = map[Kind]error{
	Internal:        ErrInternal,
	InvalidArgument: ErrInvalidArgument,
	NotFound:        ErrNotFound,
	ConnectError:    ErrConnect,
	ProtocolError:   ErrProtocol,
	PoolExhausted:   ErrPoolExhausted,
	Timeout:         ErrTimeout,
	LoadError:       ErrLoad,
	Closed:          ErrClosed,
}

// Error is a classified error.
type Error struct {
	Kind Kind
	// Op is the operation that failed, e.g. "pool.acquire".
	Op string
	// Key is the endpoint key string, if the failure is endpoint-scoped.
	Key string
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Key != "" {
		b.WriteString("[")
		b.WriteString(e.Key)
		b.WriteString("] ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// E builds a classified error. A nil err produces an error whose message is
// the kind name.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithKey attaches an endpoint key string and returns e.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// KindOf returns the effective kind of err. LoadError is looked through to
// the first classified cause. Unclassified context deadline errors are
// reported as Timeout, and anything else unclassified as Internal.
func KindOf(err error) Kind {
	if err == nil {
		return Internal
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == LoadError && e.Err != nil {
			var inner *Error
			if errors.As(e.Err, &inner) {
				return KindOf(inner)
			}
			if errors.Is(e.Err, context.DeadlineExceeded) {
				return Timeout
			}
		}
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
