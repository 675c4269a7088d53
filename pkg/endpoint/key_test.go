package endpoint

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCanonicalKey(t *testing.T) {
	k, err := Parse("SYSTEM.DEF.SVRCONN@10.0.0.5:1414")
	require.NoError(t, err)

	assert.Equal(t, "SYSTEM.DEF.SVRCONN", k.Channel())
	assert.Equal(t, "10.0.0.5", k.Host())
	assert.Equal(t, 1414, k.Port())
	assert.Equal(t, "SYSTEM.DEF.SVRCONN@10.0.0.5:1414", k.String())
	assert.Equal(t, "10.0.0.5(1414)", k.ConnectionName())
}

func TestKeyRoundTrip(t *testing.T) {
	tests := []struct {
		host    string
		port    int
		channel string
	}{
		{"localhost", 1414, "SVRCONN"},
		{"mq.example.com", 1, "APP.SVRCONN"},
		{"10.1.2.3", 65535, "A"},
		{"[::1]", 1430, "IPV6.SVRCONN"},
	}

	for _, tt := range tests {
		t.Run(tt.channel+"@"+tt.host, func(t *testing.T) {
			built, err := New(tt.host, tt.port, tt.channel)
			require.NoError(t, err)

			parsed, err := Parse(built.String())
			require.NoError(t, err)
			assert.Same(t, built, parsed)
		})
	}
}

func TestNewInternsAndTrims(t *testing.T) {
	a, err := New(" host ", 1414, " CH ")
	require.NoError(t, err)
	b, err := New("host", 1414, "CH")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, "CH@host:1414", a.String())

	c, err := New("HOST", 1414, "CH")
	require.NoError(t, err)
	assert.NotSame(t, a, c, "keys are case-sensitive")
}

func TestNewConcurrentInterning(t *testing.T) {
	const n = 32
	keys := make([]*Key, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i] = MustNew("race.host", 2000, "RACE")
		}(i)
	}
	wg.Wait()

	for _, k := range keys {
		assert.Same(t, keys[0], k)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []string{
		"",
		"no-at-sign:1414",
		"CH@host",
		"CH@host:",
		"CH@host:abc",
		"CH@host:0",
		"CH@host:65536",
		"@host:1414",
		"CH@:1414",
		"CH@host:-1",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
			assert.False(t, IsKey(s))
		})
	}
}

func TestNewRejects(t *testing.T) {
	_, err := New("", 1414, "CH")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
	_, err = New("host", 1414, "  ")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
	_, err = New("host", 1414, "CH@X")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
	_, err = New("host", 70000, "CH")
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
}

func TestKeyJSON(t *testing.T) {
	k := MustNew("10.0.0.5", 1414, "SYSTEM.DEF.SVRCONN")

	data, err := json.Marshal(k)
	require.NoError(t, err)
	assert.JSONEq(t, `{"host":"10.0.0.5","port":1414,"channel":"SYSTEM.DEF.SVRCONN"}`, string(data))
	assert.JSONEq(t, string(data), k.JSON())

	back, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Same(t, k, back)

	_, err = ParseJSON([]byte(`{"host":"h","port":0,"channel":"c"}`))
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
	_, err = ParseJSON([]byte(`not json`))
	assert.ErrorIs(t, err, mqerr.ErrInvalidArgument)
}
