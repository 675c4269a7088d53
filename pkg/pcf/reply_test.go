package pcf

import (
	"context"
	"testing"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyAccessors(t *testing.T) {
	r := NewReply(map[Param]any{
		QueueName:        "Q1   ",
		CurrentDepth:     int64(7),
		OpenInputCount:   int32(2),
		QueueTimeIndic:   []int64{10, 20},
		QueueNames:       []string{"A", "B"},
		ConnectionID:     []byte{0xDE, 0xAD},
		DestinationClass: DestinationManaged,
	})

	s, err := r.String(QueueName)
	require.NoError(t, err)
	assert.Equal(t, "Q1   ", s)

	n, err := r.Int(CurrentDepth)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = r.Int(OpenInputCount)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	l, err := r.IntList(QueueTimeIndic)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, l)

	names, err := r.StringList(QueueNames)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	b, err := r.Bytes(ConnectionID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD}, b)

	sym, err := r.Symbol(DestinationClass)
	require.NoError(t, err)
	assert.Equal(t, DestinationManaged, sym)

	assert.True(t, r.Has(QueueName))
	assert.False(t, r.Has(TopicName))
	assert.Len(t, r.Params(), 7)
}

func TestReplyErrors(t *testing.T) {
	r := NewReply(nil).Set(QueueName, "Q1")

	_, err := r.Int(CurrentDepth)
	assert.ErrorIs(t, err, ErrParamMissing)

	_, err = r.Int(QueueName)
	assert.ErrorIs(t, err, ErrParamType)

	_, err = r.Symbol(QueueName)
	assert.ErrorIs(t, err, ErrParamType)

	b, err := r.Bytes(QueueName)
	require.NoError(t, err, "string byte strings are accepted")
	assert.Equal(t, []byte("Q1"), b)
}

func TestReplyCopiesInput(t *testing.T) {
	src := map[Param]any{QueueName: "Q1"}
	r := NewReply(src)
	src[QueueName] = "changed"

	s, err := r.String(QueueName)
	require.NoError(t, err)
	assert.Equal(t, "Q1", s)
}

func TestCommandGet(t *testing.T) {
	cmd := NewCommand(InquireTopicStatus,
		StringParam(TopicString, "a/b"),
		SymbolParam(TopicStatusType, TopicStatusPublisher),
		SelectorParam(TopicAttrs, TopicString, PubCount),
	)

	v, ok := cmd.Get(TopicStatusType)
	require.True(t, ok)
	assert.Equal(t, TopicStatusPublisher, v)

	v, ok = cmd.Get(TopicAttrs)
	require.True(t, ok)
	assert.Equal(t, []Param{TopicString, PubCount}, v)

	_, ok = cmd.Get(QueueName)
	assert.False(t, ok)
}

func TestDialerFunc(t *testing.T) {
	key := endpoint.MustNew("h", 1414, "CH")
	var seen endpoint.Descriptor
	d := DialerFunc(func(_ context.Context, desc endpoint.Descriptor) (Connection, string, error) {
		seen = desc
		return nil, "", mqerr.Errorf(mqerr.ConnectError, "test", "refused")
	})

	_, _, err := d.Dial(context.Background(), endpoint.NewDescriptor("P", key, 0, 0))
	assert.True(t, mqerr.Is(err, mqerr.ConnectError))
	assert.Same(t, key, seen.Key)
}

func TestReasonErrorMessage(t *testing.T) {
	err := &ReasonError{Command: InquireQueueStatus, CompCode: 2, Reason: 2085, ReasonName: "MQRC_UNKNOWN_OBJECT_NAME"}
	assert.Contains(t, err.Error(), "MQCMD_INQUIRE_Q_STATUS")
	assert.Contains(t, err.Error(), "MQRC_UNKNOWN_OBJECT_NAME")
}
