package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestBatch_FlushInOrderAndEmpties(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var b Batch
	b.Add(New(FollowerCreated, "default", "alice", "bob", at, nil))
	b.Add(New(FriendshipCreated, "default", "alice", "bob", at, nil))
	require.Equal(t, 2, b.Len())

	rec := &Recorder{}
	b.Flush(context.Background(), rec, zap.NewNop())

	got := rec.Events()
	require.Len(t, got, 2)
	assert.Equal(t, FollowerCreated, got[0].Type)
	assert.Equal(t, FriendshipCreated, got[1].Type)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Zero(t, b.Len())
}

func TestBatch_FlushSurvivesSinkErrors(t *testing.T) {
	var b Batch
	b.Add(New(MemberAdded, "default", "alice", "g1", time.Now(), nil))
	b.Add(New(MemberAdded, "default", "bob", "g1", time.Now(), nil))

	calls := 0
	failing := SinkFunc(func(context.Context, Event) error {
		calls++
		return errors.New("unavailable")
	})
	b.Flush(context.Background(), failing, zap.NewNop())
	assert.Equal(t, 2, calls)
}

func TestMulti_TriesEverySink(t *testing.T) {
	boom := errors.New("boom")
	rec := &Recorder{}
	m := Multi{SinkFunc(func(context.Context, Event) error { return boom }), rec}

	err := m.Emit(context.Background(), New(GroupCreated, "default", "alice", "g1", time.Now(), nil))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, rec.Events(), 1)
}

func TestRecorder_OfType(t *testing.T) {
	rec := &Recorder{}
	ctx := context.Background()
	_ = rec.Emit(ctx, Event{Type: FollowerCreated})
	_ = rec.Emit(ctx, Event{Type: FollowerDestroyed})
	_ = rec.Emit(ctx, Event{Type: FollowerCreated})

	assert.Len(t, rec.OfType(FollowerCreated), 2)
	rec.Reset()
	assert.Empty(t, rec.Events())
}

type capturePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (p *capturePublisher) PublishMsg(m *nats.Msg) error {
	p.msgs = append(p.msgs, m)
	return p.err
}

func TestNATSSink_PublishesJSONWithTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	pub := &capturePublisher{}
	sink := NewNATSSink(pub, "social")
	e := New(FriendshipCreated, "default", "alice", "bob", time.Now().UTC(), map[string]string{"request_id": "r1"})

	require.NoError(t, sink.Emit(ctx, e))
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "social.friendship_created", msg.Subject)
	assert.Contains(t, msg.Header.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, "r1", decoded.Fields["request_id"])
}

func TestNATSSink_PublishError(t *testing.T) {
	sink := NewNATSSink(&capturePublisher{err: nats.ErrConnectionClosed}, "")
	err := sink.Emit(context.Background(), Event{Type: MemberAdded})
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Equal(t, "member_added", sink.Subject(MemberAdded))
}
