// Package rabbitpub implements the Publisher collaborator over
// RabbitMQ, grounded on the teacher's internal/ingest/rabbitmq adapter
// (connection/exchange/TLS/auth setup) but inverted: this is a
// producer, not a consumer.
package rabbitpub

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/rabbitmq/amqp091-go"

	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/publish/wire"
)

type Config struct {
	Enabled    bool
	URL        string
	Exchange   string
	RoutingKey string
	TLS        TLSConfig
	Auth       AuthConfig
}

type TLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
}

type AuthConfig struct {
	Username string
	Password string
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("publish.rabbitmq.url is required")
	}
	if c.Exchange == "" {
		return fmt.Errorf("publish.rabbitmq.exchange is required")
	}
	return nil
}

// Producer publishes committed domain event streams to a RabbitMQ
// topic exchange. It implements domain.Publisher.
type Producer struct {
	cfg  Config
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func NewProducer(cfg Config) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialCfg := amqp091.Config{}
	if cfg.Auth.Username != "" {
		dialCfg.SASL = []amqp091.Authentication{&amqp091.PlainAuth{Username: cfg.Auth.Username, Password: cfg.Auth.Password}}
	}
	if cfg.TLS.Enabled {
		dialCfg.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.TLS.InsecureSkipVerify}
	}

	conn, err := amqp091.DialConfig(cfg.URL, dialCfg)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Producer{cfg: cfg, conn: conn, ch: ch}, nil
}

func (p *Producer) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

// PublishAsync serializes stream to its wire form and publishes it to
// the configured exchange, waiting for the broker's publisher confirm
// before returning.
func (p *Producer) PublishAsync(ctx context.Context, stream domain.DomainEventStream) error {
	payload, err := wire.Marshal(stream)
	if err != nil {
		return err
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.cfg.Exchange, p.routingKey(stream), false, false, amqp091.Publishing{
		ContentType:  "application/x-protobuf",
		Body:         payload,
		MessageId:    string(stream.CommandId),
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		return fmt.Errorf("publish rabbitmq message: %w", err)
	}

	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for publisher confirm: %w", err)
	}
	if !ok {
		return fmt.Errorf("rabbitmq broker nacked aggregate %s command %s", stream.AggregateId, stream.CommandId)
	}
	return nil
}

func (p *Producer) routingKey(stream domain.DomainEventStream) string {
	if p.cfg.RoutingKey != "" {
		return p.cfg.RoutingKey
	}
	return string(stream.AggregateType)
}
