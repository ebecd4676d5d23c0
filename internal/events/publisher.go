package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"quote-service/internal/model"
)

const (
	SubjectQuoteCreated       = "quote.created"
	SubjectQuoteSent          = "quote.sent"
	SubjectQuoteStatusChanged = "quote.status_changed"

	// SubjectQuoteAll matches every quote event.
	SubjectQuoteAll = "quote.>"
)

type EventPublisher interface {
	PublishQuoteCreated(quote *model.Quote) error
	PublishQuoteSent(quote *model.Quote) error
	PublishQuoteStatusChanged(quote *model.Quote, previous model.QuoteStatus) error
}

type QuoteEvent struct {
	EventType      string            `json:"event_type"`
	QuoteID        uuid.UUID         `json:"quote_id"`
	UserID         uuid.UUID         `json:"user_id"`
	ClientName     string            `json:"client_name"`
	Status         model.QuoteStatus `json:"status"`
	PreviousStatus model.QuoteStatus `json:"previous_status,omitempty"`
	Price          *int64            `json:"price,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

func NewQuoteEvent(subject string, quote *model.Quote, previous model.QuoteStatus) QuoteEvent {
	return QuoteEvent{
		EventType:      subject,
		QuoteID:        quote.ID,
		UserID:         quote.UserID,
		ClientName:     quote.ClientName,
		Status:         quote.Status,
		PreviousStatus: previous,
		Price:          quote.Price,
		OccurredAt:     time.Now().UTC(),
	}
}

type conn interface {
	Publish(subject string, data []byte) error
}

type NatsPublisher struct {
	conn conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, *nats.Conn, error) {
	nc, err := nats.Connect(natsURL, nats.Name("quote-service"))
	if err != nil {
		return nil, nil, err
	}

	return &NatsPublisher{conn: nc}, nc, nil
}

func (p *NatsPublisher) PublishQuoteCreated(quote *model.Quote) error {
	return p.publish(SubjectQuoteCreated, NewQuoteEvent(SubjectQuoteCreated, quote, ""))
}

func (p *NatsPublisher) PublishQuoteSent(quote *model.Quote) error {
	return p.publish(SubjectQuoteSent, NewQuoteEvent(SubjectQuoteSent, quote, ""))
}

func (p *NatsPublisher) PublishQuoteStatusChanged(quote *model.Quote, previous model.QuoteStatus) error {
	return p.publish(SubjectQuoteStatusChanged, NewQuoteEvent(SubjectQuoteStatusChanged, quote, previous))
}

func (p *NatsPublisher) publish(subject string, event QuoteEvent) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		slog.Error("Error marshalling event JSON", slog.String("subject", subject), slog.String("error", err.Error()))
		return err
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", slog.String("subject", subject), slog.String("error", err.Error()))
		return err
	}

	slog.Info("Published event to NATS", slog.String("subject", subject), slog.String("quote_id", event.QuoteID.String()))

	return nil
}

// NoopPublisher drops every event. Used when NATS_URL is empty.
type NoopPublisher struct{}

func (NoopPublisher) PublishQuoteCreated(*model.Quote) error                          { return nil }
func (NoopPublisher) PublishQuoteSent(*model.Quote) error                             { return nil }
func (NoopPublisher) PublishQuoteStatusChanged(*model.Quote, model.QuoteStatus) error { return nil }
