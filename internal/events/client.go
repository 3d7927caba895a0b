// Package events publishes scoring activity to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Publisher sends events. Publish must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close()
}

// NATSPublisher publishes JSON events to a JetStream stream.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
	logger zerolog.Logger
}

// NewNATSPublisher connects to NATS and makes sure the stream exists.
func NewNATSPublisher(ctx context.Context, url, stream string, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("cardscored"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	p := &NATSPublisher{conn: nc, js: js, stream: stream, logger: logger}
	if err := p.ensureStream(ctx); err != nil {
		logger.Warn().Err(err).Str("stream", stream).Msg("failed to ensure stream")
	}
	return p, nil
}

func (p *NATSPublisher) ensureStream(ctx context.Context) error {
	maxAge, _ := time.ParseDuration(StreamMaxAge)
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     p.stream,
		Subjects: StreamSubjects,
		MaxAge:   maxAge,
	})
	return err
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("nats drain")
	}
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close()                                     {}
