package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"

	"quote-service/internal/config"
	"quote-service/internal/events"
	"quote-service/internal/model"
)

type DeviceTokenLister interface {
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Pusher is satisfied by *apns2.Client.
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// Worker turns quote events into push notifications for the quote owner's devices.
type Worker struct {
	devices DeviceTokenLister
	pusher  Pusher
	topic   string
}

// NewWorker builds a worker. A nil pusher runs the worker in mock mode, logging instead of sending.
func NewWorker(devices DeviceTokenLister, pusher Pusher, topic string) *Worker {
	return &Worker{devices: devices, pusher: pusher, topic: topic}
}

func NewAPNsClient(cfg config.APNsConfig) (*apns2.Client, error) {
	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read APNs auth key: %w", err)
	}

	authToken := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	if cfg.Mode == "production" {
		return apns2.NewTokenClient(authToken).Production(), nil
	}
	return apns2.NewTokenClient(authToken).Development(), nil
}

func (w *Worker) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(events.SubjectQuoteAll, func(msg *nats.Msg) {
		if _, err := w.Handle(context.Background(), msg.Data); err != nil {
			slog.Error("Failed to handle quote event", slog.String("subject", msg.Subject), slog.String("error", err.Error()))
		}
	})
}

// Handle decodes one event and pushes it to every registered device. It returns the number
// of notifications delivered.
func (w *Worker) Handle(ctx context.Context, data []byte) (int, error) {
	var event events.QuoteEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return 0, fmt.Errorf("unmarshal quote event: %w", err)
	}

	alert, ok := AlertFor(event)
	if !ok {
		return 0, nil
	}

	tokens, err := w.devices.ListByUserID(ctx, event.UserID)
	if err != nil {
		return 0, fmt.Errorf("list device tokens for user %s: %w", event.UserID, err)
	}
	if len(tokens) == 0 {
		slog.InfoContext(ctx, "No device tokens registered", slog.String("user_id", event.UserID.String()))
		return 0, nil
	}

	body := payload.NewPayload().
		Alert(alert).
		Sound("default").
		Custom("quote_id", event.QuoteID.String())

	sent := 0
	for _, deviceToken := range tokens {
		notification := &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       w.topic,
			Payload:     body,
		}

		if w.pusher == nil {
			slog.InfoContext(ctx, "Push notification (mock)", slog.String("device_token", deviceToken), slog.String("alert", alert))
			sent++
			continue
		}

		res, err := w.pusher.PushWithContext(ctx, notification)
		switch {
		case err != nil:
			slog.ErrorContext(ctx, "Failed to send notification", slog.String("error", err.Error()))
		case res.Sent():
			sent++
		default:
			slog.WarnContext(ctx, "Notification rejected", slog.String("reason", res.Reason), slog.Int("status", res.StatusCode))
		}
	}

	return sent, nil
}

// AlertFor returns the alert text for an event, or false when the event is not worth a push.
func AlertFor(event events.QuoteEvent) (string, bool) {
	switch event.EventType {
	case events.SubjectQuoteSent:
		return fmt.Sprintf("Your quote for %s is on its way", event.ClientName), true
	case events.SubjectQuoteStatusChanged:
		switch event.Status {
		case model.QuoteStatusApproved:
			return fmt.Sprintf("%s approved your quote", event.ClientName), true
		case model.QuoteStatusRejected:
			return fmt.Sprintf("%s declined your quote", event.ClientName), true
		case model.QuoteStatusViewed:
			return fmt.Sprintf("%s viewed your quote", event.ClientName), true
		}
	}
	return "", false
}
