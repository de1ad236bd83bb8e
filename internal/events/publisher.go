package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"dispenser-status-backend/config"
	"dispenser-status-backend/internal/machine"
)

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Publisher announces every transition on a NATS subject so the actuator and
// displays can react without polling.
type Publisher struct {
	conn    conn
	subject string
}

// Connect dials the configured NATS server.
func Connect(cfg config.EventsConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("events url is required")
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("dispenserd"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout)*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Printf("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("NATS publisher connected to %s, subject %q", cfg.URL, cfg.Subject)
	return newPublisher(nc, cfg.Subject), nil
}

func newPublisher(c conn, subject string) *Publisher {
	return &Publisher{conn: c, subject: subject}
}

// Notify implements notification.Sink.
func (p *Publisher) Notify(ctx context.Context, t machine.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal transition %d: %w", t.Seq, err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish transition %d: %w", t.Seq, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Printf("NATS drain failed: %v", err)
		p.conn.Close()
	}
}
