package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribePointChanges delivers perspectives.saved and perspectives.deleted
// to handler. The consumer is ephemeral and starts at new messages, so every
// instance refreshes its own snapshot.
func (s *Subscriber) SubscribePointChanges(ctx context.Context, handler func(ctx context.Context, change domain.PointChange) error) error {
	sub, err := s.js.Subscribe("perspectives.>", func(msg *nats.Msg) {
		change, err := decodePointChange(msg.Subject, msg.Data)
		if err != nil {
			slog.Warn("dropping malformed point change", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, change); err != nil {
			slog.Warn("point change handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe point changes: %w", err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// decodePointChange reads a change event; the subject decides the kind when
// the body leaves it out, and an empty body means "something changed".
func decodePointChange(subject string, data []byte) (domain.PointChange, error) {
	var change domain.PointChange
	if len(data) > 0 {
		if err := json.Unmarshal(data, &change); err != nil {
			return change, err
		}
	}
	if change.Kind == "" {
		switch strings.TrimPrefix(subject, "perspectives.") {
		case string(domain.PointsSaved):
			change.Kind = domain.PointsSaved
		case string(domain.PointsDeleted):
			change.Kind = domain.PointsDeleted
		default:
			return change, fmt.Errorf("unknown subject %q", subject)
		}
	}
	return change, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
