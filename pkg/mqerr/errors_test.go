package mqerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsSentinel(t *testing.T) {
	err := E(NotFound, "manager.resolve", errors.New("no pool named mq9"))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrPoolExhausted)
	assert.Equal(t, "manager.resolve: no pool named mq9", err.Error())
}

func TestErrorWithKey(t *testing.T) {
	err := Errorf(PoolExhausted, "pool.acquire", "waited %s", "10s").WithKey("CH@h:1414")
	assert.Equal(t, "pool.acquire: [CH@h:1414] waited 10s", err.Error())
}

func TestKindOf(t *testing.T) {
	connect := E(ConnectError, "pool.dial", errors.New("refused"))

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified", E(InvalidArgument, "op", nil), InvalidArgument},
		{"wrapped classified", fmt.Errorf("outer: %w", E(Timeout, "op", nil)), Timeout},
		{"load error looks through to cause", E(LoadError, "cache.get", connect), ConnectError},
		{"load error with plain cause", E(LoadError, "cache.get", errors.New("boom")), LoadError},
		{"load error with deadline", E(LoadError, "cache.get", context.DeadlineExceeded), Timeout},
		{"bare deadline", context.DeadlineExceeded, Timeout},
		{"plain", errors.New("boom"), Internal},
		{"nil", nil, Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsWalksChain(t *testing.T) {
	err := E(LoadError, "cache.get", E(ProtocolError, "pcf.send", nil))

	assert.True(t, Is(err, LoadError))
	assert.True(t, Is(err, ProtocolError))
	assert.False(t, Is(err, NotFound))
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, ErrLoad)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "pool exhausted", PoolExhausted.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
