package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mqfacade/pkg/config"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pcf/pcftest"
	"github.com/getmockd/mqfacade/pkg/pool"
)

const testConfig = `
logging:
  level: debug
pool:
  maxPerEndpoint: 2
  maxWait: 250ms
pools:
  - poolName: mq8
    host: cli.test
    channel: SYSTEM.DEF.SVRCONN
    port: 1414
    pcfWait: 10
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the command tree with args and returns stdout.
func execute(t *testing.T, o *rootOptions, args ...string) (string, error) {
	t.Helper()
	if o.logOutput == nil {
		o.logOutput = io.Discard
	}
	cmd := newRootCmd(o)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestKeyCommand(t *testing.T) {
	out, err := execute(t, &rootOptions{}, "key", "--host", "mq1.example.com", "--port", "1415", "--channel", "APP.SVRCONN")
	require.NoError(t, err)
	assert.Equal(t, "APP.SVRCONN@mq1.example.com:1415\n"+
		`{"host":"mq1.example.com","port":1415,"channel":"APP.SVRCONN"}`+"\n", out)

	out, err = execute(t, &rootOptions{}, "key", `{"host":"mq1.example.com","port":1415,"channel":"APP.SVRCONN"}`, "--json")
	require.NoError(t, err)
	var res KeyOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "APP.SVRCONN@mq1.example.com:1415", res.Key)
	assert.Equal(t, "APP.SVRCONN@mq1.example.com:1415", res.Escaped, "no reserved characters to escape")
	assert.Equal(t, 1415, res.Port)
}

func TestKeyCommandInvalid(t *testing.T) {
	_, err := execute(t, &rootOptions{}, "key", "no-at-sign:1414")
	require.Error(t, err)
	assert.True(t, mqerr.Is(err, mqerr.InvalidArgument))

	_, err = execute(t, &rootOptions{}, "key", "--host", "h", "--channel", "BAD@CHL")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, testConfig)

	out, err := execute(t, &rootOptions{}, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid (1 pools)")

	out, err = execute(t, &rootOptions{}, "validate", "--config", path, "--json")
	require.NoError(t, err)
	var res ValidateOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, []string{"mq8"}, res.Pools)
}

func TestValidateCommandReportsEveryProblem(t *testing.T) {
	path := writeConfig(t, testConfig+`
  - poolName: mq8
    host: other.test
    channel: SYSTEM.DEF.SVRCONN
    port: 1414
cache:
  defaultSpec: maximumSize=lots
`)

	out, err := execute(t, &rootOptions{}, "validate", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrValidation)
	assert.Contains(t, out, "is invalid:")
	assert.Contains(t, out, "pools[1].poolName")
	assert.Contains(t, out, "cache.defaultSpec")
}

func TestValidateCommandMissingFile(t *testing.T) {
	_, err := execute(t, &rootOptions{}, "validate", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrFileNotFound)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, &rootOptions{info: BuildInfo{Version: "1.4.0", Commit: "abc123", BuildDate: "2024-03-01"}}, "version", "--json")
	require.NoError(t, err)

	var v VersionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "1.4.0", v.Version)
	assert.Equal(t, "abc123", v.Commit)
	assert.NotEmpty(t, v.Go)
	assert.NotEmpty(t, v.Transport)

	out, err = execute(t, &rootOptions{info: BuildInfo{Version: "1.4.0", Commit: "abc123", BuildDate: "2024-03-01"}}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mqfacade v1.4.0 (abc123, 2024-03-01)")
}

func TestProbeDescriptor(t *testing.T) {
	cfg := config.Default()
	cfg.Pools = []config.PoolDef{{PoolName: "mq8", Host: "probe.test", Channel: "SVRCONN", Port: 1414, PcfWait: 7}}

	d, err := probeDescriptor(cfg, "mq8")
	require.NoError(t, err)
	assert.Equal(t, "SVRCONN@probe.test:1414", d.Key.String())
	assert.Equal(t, 7, d.ProtocolWait)

	d, err = probeDescriptor(cfg, "SVRCONN@probe.test:1414")
	require.NoError(t, err)
	assert.Equal(t, "mq8", d.PoolName, "a configured key keeps its definition")

	d, err = probeDescriptor(cfg, "SVRCONN@elsewhere.test:1414")
	require.NoError(t, err)
	assert.True(t, d.Synthesized())

	_, err = probeDescriptor(cfg, "mq9")
	assert.True(t, mqerr.Is(err, mqerr.NotFound))
}

func TestProbe(t *testing.T) {
	b := pcftest.NewBroker("QM.PROBE")
	desc := endpoint.NewDescriptor("mq8", endpoint.MustNew("probe.test", 1414, "SVRCONN"), 0, 0)

	res, err := probe(context.Background(), pool.New(b.Dialer()), desc)
	require.NoError(t, err)
	assert.Equal(t, "QM.PROBE", res.QueueManager)
	assert.Equal(t, "mq8", res.Pool)
	assert.Equal(t, 1, b.Dials())
	assert.Equal(t, 1, b.Disconnects(), "standalone connections are disconnected on release")

	b.FailDial(fmt.Errorf("MQRC_HOST_NOT_AVAILABLE"))
	_, err = probe(context.Background(), pool.New(b.Dialer()), desc)
	require.Error(t, err)
	assert.True(t, mqerr.Is(err, mqerr.ConnectError))
}

func TestProbeCommand(t *testing.T) {
	b := pcftest.NewBroker("QM.PROBE")
	path := writeConfig(t, testConfig)

	out, err := execute(t, &rootOptions{dialer: b.Dialer()}, "probe", "mq8", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "SYSTEM.DEF.SVRCONN@cli.test:1414 -> QM.PROBE")
}

func TestServerLifecycle(t *testing.T) {
	b := pcftest.NewBroker("QM.CLI")
	b.AddQueue(pcftest.Queue{Name: "ORDERS.INBOUND", Depth: 4})

	cfg, err := config.LoadFromFile(writeConfig(t, testConfig))
	require.NoError(t, err)
	o := &rootOptions{logOutput: io.Discard}
	srv, err := newServer(cfg, o.logger(cfg), b.Dialer(), "test")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.run(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/ping")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/mq/mq8/queues")
	require.NoError(t, err)
	var names map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	resp.Body.Close()
	assert.Contains(t, names, "ORDERS.INBOUND")
	assert.ElementsMatch(t, []string{"cache", "pool"}, srv.metrics.Registered())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Zero(t, b.Open(), "every connection closed on shutdown")
}
