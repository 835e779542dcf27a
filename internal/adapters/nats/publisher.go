package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routeplanner/internal/core/domain"
)

const (
	// RouteSubjects matches every route event.
	RouteSubjects = "routes.>"
	// PlannedSubjects matches route.planned events for all drivers.
	PlannedSubjects = "routes.planned.>"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:       "ROUTES",
			Subjects:   []string{RouteSubjects},
			Retention:  nats.InterestPolicy,
			MaxAge:     7 * 24 * time.Hour,
			Storage:    nats.FileStorage,
			Duplicates: 10 * time.Minute,
		},
		{
			Name:      "NOTIFICATIONS",
			Subjects:  []string{"notifications.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// SubjectFor returns the subject an event is published on:
// routes.planned.<driver> or routes.status.<driver>.
func SubjectFor(event *domain.RouteEvent) string {
	kind := strings.TrimPrefix(event.Type, "route.")
	return "routes." + token(kind) + "." + token(event.DriverID)
}

// FilterSubject builds a subscription subject for route events. An empty kind
// or driver matches any, so FilterSubject("", "") is RouteSubjects.
func FilterSubject(kind, driverID string) string {
	if kind == "" {
		if driverID == "" {
			return RouteSubjects
		}
		return "routes.*." + token(driverID)
	}
	if driverID == "" {
		return "routes." + token(kind) + ".>"
	}
	return "routes." + token(kind) + "." + token(driverID)
}

// MsgID identifies an event for JetStream de-duplication.
func MsgID(event *domain.RouteEvent) string {
	return event.RouteID + ":" + event.Type + ":" + string(event.Status)
}

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

func (p *Publisher) PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectFor(event), data, nats.Context(ctx), nats.MsgId(MsgID(event)))
	return err
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
