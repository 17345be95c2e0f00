package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Subjects published by the engine.
const (
	SubjectMatchStarted        = "match.started"
	SubjectMatchFinished       = "match.finished"
	SubjectTournamentCompleted = "tournament.completed"
)

// Publisher emits domain events for external consumers. Publishing is best
// effort: a broker outage never fails the operation that triggered the event.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Close()
}

type natsPublisher struct {
	conn *nats.Conn
	log  *slog.Logger
}

// NewNATSPublisher connects to the broker at url.
func NewNATSPublisher(url string, log *slog.Logger) (Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("pong-arena"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &natsPublisher{conn: conn, log: log}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Error("failed to drain NATS connection", slog.Any("error", err))
	}
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	return nil
}

func (NopPublisher) Close() {}
