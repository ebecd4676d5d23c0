package notifier_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/require"

	"quote-service/internal/events"
	"quote-service/internal/model"
	"quote-service/internal/notifier"
)

type staticDevices map[uuid.UUID][]string

func (d staticDevices) ListByUserID(_ context.Context, userID uuid.UUID) ([]string, error) {
	return d[userID], nil
}

type recordingPusher struct {
	pushed []*apns2.Notification
	reject map[string]bool
}

func (p *recordingPusher) PushWithContext(_ apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	p.pushed = append(p.pushed, n)
	if p.reject[n.DeviceToken] {
		return &apns2.Response{StatusCode: http.StatusGone, Reason: apns2.ReasonUnregistered}, nil
	}
	return &apns2.Response{StatusCode: http.StatusOK, ApnsID: uuid.NewString()}, nil
}

func eventJSON(t *testing.T, subject string, userID uuid.UUID, status model.QuoteStatus) []byte {
	t.Helper()
	q := &model.Quote{ID: uuid.New(), UserID: userID, ClientName: "Acme", Status: status}
	b, err := json.Marshal(events.NewQuoteEvent(subject, q, model.QuoteStatusPending))
	require.NoError(t, err)
	return b
}

func TestWorker_HandleApproved(t *testing.T) {
	userID := uuid.New()
	pusher := &recordingPusher{reject: map[string]bool{"stale": true}}
	w := notifier.NewWorker(staticDevices{userID: {"device-a", "stale"}}, pusher, "com.example.quotes")

	sent, err := w.Handle(context.Background(), eventJSON(t, events.SubjectQuoteStatusChanged, userID, model.QuoteStatusApproved))
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	require.Len(t, pusher.pushed, 2)
	require.Equal(t, "com.example.quotes", pusher.pushed[0].Topic)

	body, err := json.Marshal(pusher.pushed[0].Payload)
	require.NoError(t, err)
	require.Contains(t, string(body), "Acme approved your quote")
}

func TestWorker_IgnoresCreatedEvents(t *testing.T) {
	userID := uuid.New()
	pusher := &recordingPusher{}
	w := notifier.NewWorker(staticDevices{userID: {"device-a"}}, pusher, "topic")

	sent, err := w.Handle(context.Background(), eventJSON(t, events.SubjectQuoteCreated, userID, model.QuoteStatusDraft))
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Empty(t, pusher.pushed)
}

func TestWorker_MockModeWithoutPusher(t *testing.T) {
	userID := uuid.New()
	w := notifier.NewWorker(staticDevices{userID: {"device-a"}}, nil, "topic")

	sent, err := w.Handle(context.Background(), eventJSON(t, events.SubjectQuoteSent, userID, model.QuoteStatusPending))
	require.NoError(t, err)
	require.Equal(t, 1, sent)
}

func TestWorker_BadPayload(t *testing.T) {
	w := notifier.NewWorker(staticDevices{}, nil, "topic")

	_, err := w.Handle(context.Background(), []byte("{not json"))
	var syntaxErr *json.SyntaxError
	require.True(t, errors.As(err, &syntaxErr))
}

func TestAlertFor(t *testing.T) {
	alert, ok := notifier.AlertFor(events.QuoteEvent{EventType: events.SubjectQuoteStatusChanged, Status: model.QuoteStatusRejected, ClientName: "Acme"})
	require.True(t, ok)
	require.Equal(t, "Acme declined your quote", alert)

	_, ok = notifier.AlertFor(events.QuoteEvent{EventType: events.SubjectQuoteStatusChanged, Status: model.QuoteStatusDraft})
	require.False(t, ok)
}
