package attrs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getmockd/mqfacade/pkg/pcf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueReply() *pcf.Reply {
	return pcf.NewReply(map[pcf.Param]any{
		pcf.QueueName:       "ORDERS.INBOUND                                  ",
		pcf.CurrentDepth:    int64(42),
		pcf.LastGetDate:     "2024-03-01",
		pcf.LastGetTime:     "10.15.30",
		pcf.LastPutDate:     "",
		pcf.LastPutTime:     "",
		pcf.OldestMsgAge:    int64(17),
		pcf.QueueTimeIndic:  []int64{5, 9},
		pcf.OpenInputCount:  int64(1),
		pcf.OpenOutputCount: int64(2),
	})
}

func TestQueueAttributes(t *testing.T) {
	rec := ExtractAll(Queue, None, Input{Replies: []*pcf.Reply{queueReply()}}, nil)

	assert.Equal(t, "ORDERS.INBOUND", rec[QueueName])
	assert.Equal(t, false, rec[QueueAdmin])
	assert.Equal(t, int64(42), rec[QueueDepth])
	assert.Equal(t, time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC), rec[QueueLastGet])
	assert.NotContains(t, rec, QueueLastPut, "blank timestamps are absent")
	assert.Equal(t, int64(17), rec[QueueOldestAge])
	assert.Equal(t, []int64{5, 9}, rec[QueueOnQTime])
	assert.Equal(t, int64(1), rec[QueueOpenInputs])
	assert.Equal(t, int64(2), rec[QueueOpenOutputs])
}

func TestQueueAttributesMissingFields(t *testing.T) {
	r := pcf.NewReply(map[pcf.Param]any{pcf.QueueName: "Q"})
	rec := ExtractAll(Queue, None, Input{Replies: []*pcf.Reply{r}}, nil)

	assert.Equal(t, Record{QueueName: "Q", QueueAdmin: false}, rec)
}

func TestQueueAttributesNoReply(t *testing.T) {
	rec := ExtractAll(Queue, None, Input{}, nil)
	assert.Empty(t, rec)
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"SYSTEM.ADMIN.QUEUE", true},
		{"system.default.local.queue", true},
		{"AMQ.5F3A.REPLY", true},
		{"  SYSTEM.X  ", true},
		{"ORDERS.INBOUND", false},
		{"SYSTEMX.Q", false},
		{"MY.SYSTEM.Q", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAdmin(tt.name))
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2023-12-31", "23.59.58")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC), ts)

	_, err = ParseTimestamp("", "")
	assert.ErrorIs(t, err, ErrAbsent)

	_, err = ParseTimestamp("2023-12-31", "")
	assert.ErrorIs(t, err, ErrAbsent)

	_, err = ParseTimestamp("2023-13-45", "99.99.99")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAbsent)
}

func TestTopicStatus(t *testing.T) {
	r := pcf.NewReply(map[pcf.Param]any{
		pcf.PubCount:     int64(2),
		pcf.SubCount:     int64(0),
		pcf.CommInfoName: "SYSTEM.DEFAULT.COMMINFO.MULTICAST   ",
	})
	rec := ExtractAll(Topic, Status, Input{Replies: []*pcf.Reply{r}}, nil)

	assert.Equal(t, int64(2), rec[TopicPublisherCount])
	assert.Equal(t, int64(0), rec[TopicSubscriberCount])
	assert.Equal(t, "SYSTEM.DEFAULT.COMMINFO.MULTICAST", rec[TopicCommInfo])
}

func TestTopicPublishers(t *testing.T) {
	replies := []*pcf.Reply{
		pcf.NewReply(map[pcf.Param]any{
			pcf.ConnectionID: []byte{0x41, 0x4d, 0x51, 0x01},
			pcf.LastPubDate:  "2024-01-02",
			pcf.LastPubTime:  "03.04.05",
			pcf.PublishCount: int64(9),
		}),
		pcf.NewReply(map[pcf.Param]any{
			pcf.ConnectionID: []byte{0xab},
			pcf.PublishCount: int64(1),
		}),
		pcf.NewReply(map[pcf.Param]any{pcf.PublishCount: int64(5)}),
	}
	rec := ExtractAll(Topic, Publisher, Input{Replies: replies}, nil)

	assert.Equal(t, map[string]any{
		"414D5101": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, rec[TopicLastPubDates])
	assert.Equal(t, map[string]any{"414D5101": int64(9), "AB": int64(1)}, rec[TopicPubMsgCounts])
	assert.Equal(t, []string{"414D5101", "AB"}, rec[TopicPubConnection])
}

func TestTopicSubscribers(t *testing.T) {
	replies := []*pcf.Reply{
		pcf.NewReply(map[pcf.Param]any{
			pcf.SubID:        []byte{0x01, 0x02},
			pcf.ResumeDate:   "2024-05-06",
			pcf.ResumeTime:   "07.08.09",
			pcf.LastMsgDate:  "2024-05-07",
			pcf.LastMsgTime:  "08.09.10",
			pcf.MessageCount: int64(12),
		}),
	}
	rec := ExtractAll(Topic, Subscriber, Input{Replies: replies}, nil)

	assert.Equal(t, map[string]any{"0102": time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)}, rec[TopicSubResumeDate])
	assert.Equal(t, map[string]any{"0102": time.Date(2024, 5, 7, 8, 9, 10, 0, time.UTC)}, rec[TopicSubLastMsgDate])
	assert.Equal(t, map[string]any{"0102": int64(12)}, rec[TopicSubMsgCounts])
	assert.Equal(t, []string{"0102"}, rec[TopicSubID])
	assert.Equal(t, map[string]any{"0102": []byte{0x01, 0x02}}, rec[TopicSubIDBytes])
}

func subDefinitionReply() *pcf.Reply {
	return pcf.NewReply(map[pcf.Param]any{
		pcf.Destination:      "ORDERS.SUB.Q    ",
		pcf.TopicString:      "orders/eu",
		pcf.SubUserData:      "",
		pcf.DestinationClass: pcf.DestinationManaged,
		pcf.SubScope:         pcf.ScopeQueueManager,
		pcf.Durable:          pcf.DurableYes,
		pcf.DestinationQMgr:  "QM1   ",
	})
}

func TestSubscriptionDefinition(t *testing.T) {
	var asked string
	depth := func(_ context.Context, q string) (int64, error) {
		asked = q
		return 3, nil
	}
	rec := ExtractAll(Subscription, Definition, Input{Replies: []*pcf.Reply{subDefinitionReply()}, Depth: depth}, nil)

	assert.Equal(t, "ORDERS.SUB.Q", rec[SubDestination])
	assert.Equal(t, "orders/eu", rec[SubTopic])
	assert.Equal(t, "", rec[SubUserData])
	assert.Equal(t, true, rec[SubManaged])
	assert.Equal(t, false, rec[SubScopeAll])
	assert.Equal(t, true, rec[SubDurable])
	assert.Equal(t, "QM1", rec[SubQueueMgr])
	assert.Equal(t, int64(3), rec[SubUndelivered])
	assert.Equal(t, "ORDERS.SUB.Q", asked)
}

func TestSubscriptionUndeliveredSentinel(t *testing.T) {
	failing := func(context.Context, string) (int64, error) { return 0, errors.New("boom") }

	rec := ExtractAll(Subscription, Definition, Input{Replies: []*pcf.Reply{subDefinitionReply()}, Depth: failing}, nil)
	assert.Equal(t, UndeliveredUnknown, rec[SubUndelivered])

	rec = ExtractAll(Subscription, Definition, Input{Replies: []*pcf.Reply{subDefinitionReply()}}, nil)
	assert.Equal(t, UndeliveredUnknown, rec[SubUndelivered])
}

func TestSubscriptionStatus(t *testing.T) {
	r := pcf.NewReply(map[pcf.Param]any{
		pcf.LastMsgDate:  "2024-02-03",
		pcf.LastMsgTime:  "04.05.06",
		pcf.ResumeDate:   "2024-02-01",
		pcf.ResumeTime:   "00.00.00",
		pcf.MessageCount: int64(77),
	})
	rec := ExtractAll(Subscription, Status, Input{Replies: []*pcf.Reply{r}}, nil)

	assert.Equal(t, time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), rec[SubLastMessageSent])
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), rec[SubLastResume])
	assert.Equal(t, int64(77), rec[SubMessagesSent])
}

func TestExtractAllRecoversPanics(t *testing.T) {
	set := Set{
		{Name: "BOOM", Domain: Queue, Extract: func(Input) (any, error) { panic("bad rule") }},
		{Name: "FAIL", Domain: Queue, Extract: func(Input) (any, error) { return nil, errors.New("nope") }},
		{Name: "OK", Domain: Queue, Extract: func(Input) (any, error) { return 1, nil }},
		{Name: "OTHER", Domain: Topic, SubType: Status, Extract: func(Input) (any, error) { return 2, nil }},
	}

	rec := set.ExtractAll(Queue, None, Input{}, nil)
	assert.Equal(t, Record{"OK": 1}, rec)
}

func TestExtractAllWrongTypesAreSkipped(t *testing.T) {
	r := pcf.NewReply(map[pcf.Param]any{
		pcf.QueueName:    "Q",
		pcf.CurrentDepth: "not a number",
	})
	rec := ExtractAll(Queue, None, Input{Replies: []*pcf.Reply{r}}, nil)

	assert.NotContains(t, rec, QueueDepth)
	assert.Equal(t, "Q", rec[QueueName])
}

func TestNamesFor(t *testing.T) {
	assert.Equal(t, []Name{
		QueueName, QueueAdmin, QueueDepth, QueueLastGet, QueueLastPut,
		QueueOldestAge, QueueOnQTime, QueueOpenInputs, QueueOpenOutputs,
	}, NamesFor(Queue, None))
	assert.Equal(t, []Name{SubLastMessageSent, SubLastResume, SubMessagesSent}, NamesFor(Subscription, Status))
	assert.Empty(t, NamesFor(Topic, Definition))
}

func TestRecordMerge(t *testing.T) {
	r := Record{"A": 1}.Merge(Record{"B": 2, "A": 3})
	assert.Equal(t, Record{"A": 3, "B": 2}, r)
	assert.Equal(t, map[string]any{"A": 3, "B": 2}, r.Strings())
}
