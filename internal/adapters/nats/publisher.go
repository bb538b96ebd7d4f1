package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geosketch/internal/core/domain"
)

// Subjects and stream names.
const (
	ShapesStream        = "SKETCH_SHAPES"
	ShapesSubjectPrefix = "sketch.shapes."
	LayerSubjectPrefix  = "sketch.layer."
)

// PublishTimeout bounds a capture publish, including buffering while disconnected.
const PublishTimeout = 5 * time.Second

// LayerSubject returns the core NATS subject carrying layer updates of a session.
func LayerSubject(sessionID string) string {
	return LayerSubjectPrefix + sessionID
}

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

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      ShapesStream,
			Subjects:  []string{ShapesSubjectPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishShapeCaptured publishes to sketch.shapes.<kind> for the archiver and
// waits at most PublishTimeout for the JetStream ack.
func (p *Publisher) PublishShapeCaptured(ctx context.Context, event *domain.CaptureEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()
	_, err = p.js.Publish(ShapesSubjectPrefix+string(event.Kind), data, nats.Context(ctx))
	return err
}

// PublishLayerUpdate broadcasts a layer snapshot on sketch.layer.<session>.
// Layer updates are transient and use core NATS.
func (p *Publisher) PublishLayerUpdate(ctx context.Context, sessionID string, graphics []domain.Graphic) error {
	data, err := json.Marshal(domain.LayerUpdate{SessionID: sessionID, Graphics: graphics})
	if err != nil {
		return err
	}
	return p.conn.Publish(LayerSubject(sessionID), data)
}

// Conn exposes the underlying connection for core subscriptions.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

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
