package services

import (
	"encoding/json"
	"fmt"
	"time"

	"season-competition-system/models"

	"github.com/nats-io/nats.go"
)

// CompletionNotice is the fire-and-forget event emitted per participant
// once their season has been archived.
type CompletionNotice struct {
	UserID        string                    `json:"user_id"`
	CompetitionID string                    `json:"competition_id"`
	SeasonName    string                    `json:"season_name"`
	FinalRank     int                       `json:"final_rank"`
	Score         float64                   `json:"score"`
	Rewards       []models.RewardDescriptor `json:"rewards"`
	CompletedAt   time.Time                 `json:"completed_at"`
}

// NotificationDispatcher hands completion events off to the delivery
// system. Dispatch failures are never fatal to finalization.
type NotificationDispatcher interface {
	DispatchCompletion(n CompletionNotice) error
}

// NATSDispatcher publishes completion notices to a NATS subject.
type NATSDispatcher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSDispatcher(url, subject string) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url,
		nats.Name("season-competition-system"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSDispatcher{conn: conn, subject: subject}, nil
}

func (d *NATSDispatcher) DispatchCompletion(n CompletionNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return d.conn.Publish(d.subject, payload)
}

func (d *NATSDispatcher) Close() {
	d.conn.Drain()
}

// NoopDispatcher is used when no NATS URL is configured.
type NoopDispatcher struct{}

func (NoopDispatcher) DispatchCompletion(CompletionNotice) error { return nil }
