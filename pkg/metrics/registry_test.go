package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	r := NewRegistry("test")

	r.ObserveRequest("GET", "GET /mq/{mq}/queues", 200, 12*time.Millisecond)
	r.ObserveRequest("GET", "GET /mq/{mq}/queues", 200, 3*time.Millisecond)
	r.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "GET /mq/{mq}/queues", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.duration))
}

func TestRegisterNamedCollector(t *testing.T) {
	r := NewRegistry("test")
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "mqfacade_test_gauge", Help: "test"})

	require.NoError(t, r.Register("gauge", g))
	assert.ErrorIs(t, r.Register("gauge", g), ErrAlreadyRegistered)

	// A different name for the same collector is a prometheus conflict.
	assert.ErrorIs(t, r.Register("other", g), ErrAlreadyRegistered)
	assert.Equal(t, []string{"gauge"}, r.Registered())

	assert.True(t, r.Unregister("gauge"))
	assert.False(t, r.Unregister("gauge"))
	assert.Empty(t, r.Registered())
}

func TestHandlerExposesDefaults(t *testing.T) {
	r := NewRegistry("1.2.3")
	r.ObserveRequest("POST", "POST /caches/{mq}/{cache}/invalidate", 200, time.Millisecond)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, "go_goroutines")
	assert.Contains(t, out, "mqfacade_uptime_seconds")
	assert.Contains(t, out, `mqfacade_build_info{goversion="`)
	assert.Contains(t, out, `version="1.2.3"`)
	assert.True(t, strings.Contains(out, `mqfacade_admin_requests_total{method="POST",route="POST /caches/{mq}/{cache}/invalidate",status="200"} 1`))
}
