package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"

	"github.com/spigell/donation-matcher/internal/match"
)

const (
	DefaultSubject = "donation.matched"
	eventType      = "match.decided"
)

// Publisher writes match decisions to a NATS subject. A nil connection turns
// Publish into a no-op.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

func (p *Publisher) Publish(ctx context.Context, decision match.Decision) error {
	if p == nil || p.conn == nil {
		return nil
	}

	msg, err := NewMessage(ctx, p.subject, decision)
	if err != nil {
		return err
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	return nil
}

// NewMessage encodes decision into a NATS message carrying trace and event
// type headers.
func NewMessage(ctx context.Context, subject string, decision match.Decision) (*nats.Msg, error) {
	payload, err := json.Marshal(decision)
	if err != nil {
		return nil, fmt.Errorf("marshal decision: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("x-event-type", eventType)
	msg.Header.Set("x-event-id", decision.ID)
	if traceID := traceIDFromContext(ctx); traceID != "" {
		msg.Header.Set("x-trace-id", traceID)
	}

	return msg, nil
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
