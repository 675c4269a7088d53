//go:build !(cgo && ibm_mq)

package pcf

import (
	"context"
	"log/slog"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

type stubDialer struct{}

// NewDialer returns a Dialer whose Dial always fails with
// ErrTransportUnavailable. Rebuild with -tags ibm_mq for a real transport.
func NewDialer(_ TransportConfig, log *slog.Logger) Dialer {
	if log != nil {
		log.Warn("IBM MQ transport not compiled in; connections will fail")
	}
	return stubDialer{}
}

// Available reports whether a real transport is compiled in.
func Available() bool { return false }

func (stubDialer) Dial(_ context.Context, desc endpoint.Descriptor) (Connection, string, error) {
	err := mqerr.E(mqerr.ConnectError, "pcf.dial", ErrTransportUnavailable)
	if desc.Key != nil {
		err = err.WithKey(desc.Key.String())
	}
	return nil, "", err
}
