package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// LogSink writes every event to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Emit(_ context.Context, e Event) error {
	s.Logger.Info("Event emitted",
		zap.String("event_id", e.ID),
		zap.String("type", string(e.Type)),
		zap.String("site", e.Site),
		zap.String("actor", e.Actor),
		zap.String("subject", e.Subject),
		zap.Any("fields", e.Fields),
	)
	return nil
}

// Publisher is the part of *nats.Conn used by NATSSink.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSSink publishes events as JSON on "<prefix>.<type>".
// Trace context from ctx is injected into the message headers.
type NATSSink struct {
	pub    Publisher
	prefix string
}

// NewNATSSink creates a sink publishing through pub.
func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	return &NATSSink{pub: pub, prefix: prefix}
}

// Subject returns the subject an event of type t is published on.
func (s *NATSSink) Subject(t Type) string {
	if s.prefix == "" {
		return string(t)
	}
	return s.prefix + "." + string(t)
}

func (s *NATSSink) Emit(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := &nats.Msg{
		Subject: s.Subject(e.Type),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
