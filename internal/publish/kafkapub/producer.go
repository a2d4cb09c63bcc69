// Package kafkapub implements the Publisher collaborator over Kafka,
// grounded on the teacher's internal/ingest/kafka adapter (config
// shape, TLS dial options, client lifecycle) but inverted: this is a
// producer, not a consumer.
package kafkapub

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/publish/wire"
)

type Config struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	ClientID     string
	RequiredAcks string
	TLS          TLSConfig
}

type TLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool
}

func (c *Config) withDefaults() {
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return errors.New("publish.kafka.brokers is required")
	}
	if c.Topic == "" {
		return errors.New("publish.kafka.topic is required")
	}
	return nil
}

// Producer publishes committed domain event streams to a Kafka topic.
// It implements domain.Publisher.
type Producer struct {
	cfg    Config
	client *kgo.Client
}

func NewProducer(cfg Config, opts ...kgo.Opt) (*Producer, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kopts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(10 * time.Second),
	}
	if cfg.ClientID != "" {
		kopts = append(kopts, kgo.ClientID(cfg.ClientID))
	}
	if cfg.RequiredAcks == "all" {
		kopts = append(kopts, kgo.RequiredAcks(kgo.AllISRAcks()))
	}
	if cfg.TLS.Enabled {
		kopts = append(kopts, kgo.DialTLSConfig(&tls.Config{InsecureSkipVerify: cfg.TLS.InsecureSkipVerify}))
	}
	kopts = append(kopts, opts...)

	cl, err := kgo.NewClient(kopts...)
	if err != nil {
		return nil, fmt.Errorf("new kafka producer client: %w", err)
	}
	return &Producer{cfg: cfg, client: cl}, nil
}

func (p *Producer) Close() { p.client.Close() }

// PublishAsync serializes stream to its wire form and produces it,
// keyed by aggregate id so all versions of one aggregate land on the
// same Kafka partition and preserve commit order downstream.
func (p *Producer) PublishAsync(ctx context.Context, stream domain.DomainEventStream) error {
	payload, err := wire.Marshal(stream)
	if err != nil {
		return err
	}
	record := &kgo.Record{
		Topic: p.cfg.Topic,
		Key:   []byte(stream.AggregateId),
		Value: payload,
	}

	result := p.client.ProduceSync(ctx, record)
	if err := result.FirstErr(); err != nil {
		return fmt.Errorf("produce kafka record: %w", err)
	}
	return nil
}
