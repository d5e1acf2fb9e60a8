package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/perspectives/internal/core/domain"
)

// Subjects carried by the GLOBE and PERSPECTIVES streams.
const (
	SubjectNavigate        = "globe.selection.navigate"
	SubjectDrilldown       = "globe.selection.drilldown"
	SubjectPointsRefreshed = "globe.points.refreshed"
	SubjectSaved           = "perspectives.saved"
	SubjectDeleted         = "perspectives.deleted"
)

// RefreshedEvent is the payload of SubjectPointsRefreshed.
type RefreshedEvent struct {
	Version uint64 `json:"version"`
	Points  int    `json:"points"`
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure both streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "GLOBE",
			Subjects:  []string{"globe.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "PERSPECTIVES",
			Subjects:  []string{"perspectives.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// already there: bring its config up to date
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) publishJSON(ctx context.Context, subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) PublishNavigate(ctx context.Context, res domain.SelectionResult) error {
	return p.publishJSON(ctx, SubjectNavigate, res)
}

func (p *Publisher) PublishDrilldown(ctx context.Context, res domain.SelectionResult) error {
	return p.publishJSON(ctx, SubjectDrilldown, res)
}

func (p *Publisher) PublishRefreshed(ctx context.Context, version uint64, count int) error {
	return p.publishJSON(ctx, SubjectPointsRefreshed, RefreshedEvent{Version: version, Points: count})
}

// PublishSaved announces written perspectives to every API instance.
func (p *Publisher) PublishSaved(ctx context.Context, ids []string) error {
	return p.publishJSON(ctx, SubjectSaved, domain.PointChange{Kind: domain.PointsSaved, IDs: ids})
}

// Conn exposes the underlying connection for core-NATS subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection that retries forever.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
