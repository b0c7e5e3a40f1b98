// Package event publishes TOC change notifications to NATS JetStream.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/frankbria/auto-author/internal/config"
	"github.com/frankbria/auto-author/internal/domain"
)

const (
	eventTypeTOCChanged = "toc.changed"
	envelopeVersion     = "1.0.0"
)

// Publisher sends committed TOC changes to subscribers.
type Publisher interface {
	PublishTOCChanged(ctx context.Context, change domain.TOCChange) error
	Ping(ctx context.Context) error
	Close() error
}

// Envelope wraps every published event.
type Envelope struct {
	Type          string           `json:"type"`
	Version       string           `json:"version"`
	OccurredAt    time.Time        `json:"occurredAt"`
	CorrelationID string           `json:"correlationId"`
	Payload       domain.TOCChange `json:"payload"`
}

type publishObserver interface {
	ObservePublish(err error)
}

// jetStream is the subset of nats.JetStreamContext used for publishing.
type jetStream interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

type noop struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher { return noop{} }

func (noop) PublishTOCChanged(context.Context, domain.TOCChange) error { return nil }
func (noop) Ping(context.Context) error { return nil }
func (noop) Close() error { return nil }

// NATSPublisher publishes to a JetStream stream.
type NATSPublisher struct {
	nc      *nats.Conn
	js      jetStream
	subject string
	metrics publishObserver
	now     func() time.Time
}

// Connect dials NATS and makes sure the events stream exists. With an empty
// URL it returns the noop publisher.
func Connect(log *slog.Logger, cfg config.EventsConfig, metrics publishObserver) (Publisher, error) {
	if cfg.NATSURL == "" {
		log.Info("events disabled, nats_url not set")
		return NewNoop(), nil
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name("tocd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	subject := Subject(cfg.SubjectPrefix)
	if err := ensureStream(js, cfg.Stream, subject); err != nil {
		nc.Close()
		return nil, err
	}

	p := newNATSPublisher(js, subject, metrics)
	p.nc = nc
	return p, nil
}

func newNATSPublisher(js jetStream, subject string, metrics publishObserver) *NATSPublisher {
	return &NATSPublisher{js: js, subject: subject, metrics: metrics, now: time.Now}
}

// Subject returns the subject TOC changes are published on.
func Subject(prefix string) string {
	if prefix == "" {
		return eventTypeTOCChanged
	}
	return prefix + "." + eventTypeTOCChanged
}

func ensureStream(js nats.JetStreamContext, name, subject string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:       name,
		Subjects:   []string{subject},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}

// PublishTOCChanged publishes change. The message id is derived from book and
// version, so JetStream drops duplicates inside its dedup window.
func (p *NATSPublisher) PublishTOCChanged(ctx context.Context, change domain.TOCChange) error {
	err := p.publish(ctx, change)
	if p.metrics != nil {
		p.metrics.ObservePublish(err)
	}
	return err
}

func (p *NATSPublisher) publish(ctx context.Context, change domain.TOCChange) error {
	b, err := json.Marshal(Envelope{
		Type:          eventTypeTOCChanged,
		Version:       envelopeVersion,
		OccurredAt:    p.now().UTC(),
		CorrelationID: uuid.NewString(),
		Payload:       change,
	})
	if err != nil {
		return fmt.Errorf("marshal toc change: %w", err)
	}

	if _, err := p.js.Publish(p.subject, b, nats.Context(ctx), nats.MsgId(MsgID(change))); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// MsgID identifies one committed version of a book.
func MsgID(change domain.TOCChange) string {
	return fmt.Sprintf("%s:%d", change.BookID, change.Version)
}

// Ping reports whether the connection is up.
func (p *NATSPublisher) Ping(context.Context) error {
	if p.nc == nil {
		return nil
	}
	if status := p.nc.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection %s", status)
	}
	return nil
}

// Close drains pending publishes and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
