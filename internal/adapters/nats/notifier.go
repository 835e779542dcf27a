package natsadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// Push is the payload handed to the push gateway.
type Push struct {
	UserID string    `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// Notifier implements ports.NotificationService by queueing pushes on
// notifications.push.<user> for the push gateway to deliver.
type Notifier struct {
	js nats.JetStreamContext
}

// NewNotifier shares the publisher's JetStream context.
func NewNotifier(p *Publisher) *Notifier {
	return &Notifier{js: p.js}
}

func (n *Notifier) SendPush(ctx context.Context, userID, title, body string) error {
	data, err := json.Marshal(Push{UserID: userID, Title: title, Body: body, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	_, err = n.js.Publish("notifications.push."+token(userID), data, nats.Context(ctx))
	return err
}
