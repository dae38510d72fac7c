// Package events carries the typed notifications raised by the social graph.
//
// Services never deliver events themselves. They add them to the Batch of the
// running transaction; the batch reaches a Sink only once the transaction has
// committed.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-network/backend/internal/metrics"
)

// Type names an event.
type Type string

const (
	FollowerCreated          Type = "follower_created"
	FollowerDestroyed        Type = "follower_destroyed"
	FriendRequestCreated     Type = "friend_request_created"
	FriendshipCreated        Type = "friendship_created"
	GroupCreated             Type = "group_created"
	MembershipRequestCreated Type = "membership_request_created"
	MemberAdded              Type = "member_added"
	GroupUpdated             Type = "group_updated"
	GroupPostCreated         Type = "group_post_created"
	GroupPostUpdated         Type = "group_post_updated"
	GroupPostDeleted         Type = "group_post_deleted"
	ProfileCommentCreated    Type = "profile_comment_created"
)

// Event is the payload handed to sinks: who did what to whom, plus
// relationship-specific fields.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Site       string            `json:"site"`
	Actor      string            `json:"actor"`
	Subject    string            `json:"subject"`
	Fields     map[string]string `json:"fields,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// New builds an event with a fresh ID.
func New(t Type, site, actor, subject string, at time.Time, fields map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Site:       site,
		Actor:      actor,
		Subject:    subject,
		Fields:     fields,
		OccurredAt: at,
	}
}

// Sink receives committed events.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Emit(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to several sinks. Every sink is tried; the first
// error is returned.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Batch collects the events raised inside one transaction.
type Batch struct {
	events []Event
}

// Add queues e for delivery after commit.
func (b *Batch) Add(e Event) {
	b.events = append(b.events, e)
}

// Events returns the queued events in order.
func (b *Batch) Events() []Event {
	return b.events
}

// Len returns the number of queued events.
func (b *Batch) Len() int {
	return len(b.events)
}

// Flush delivers the queued events in order and empties the batch.
// Delivery failures are logged and counted; they never undo the committed
// transaction.
func (b *Batch) Flush(ctx context.Context, sink Sink, log *zap.Logger) {
	pending := b.events
	b.events = nil
	if sink == nil {
		return
	}
	for _, e := range pending {
		metrics.EventsEmittedTotal.WithLabelValues(string(e.Type)).Inc()
		if err := sink.Emit(ctx, e); err != nil {
			metrics.EventDeliveryFailuresTotal.WithLabelValues("sink").Inc()
			log.Error("Failed to deliver event",
				zap.String("event_id", e.ID),
				zap.String("type", string(e.Type)),
				zap.Error(err),
			)
		}
	}
}

// Recorder keeps every event it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t.
func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
