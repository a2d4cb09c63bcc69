package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/eventcommit/core/internal/cache"
	"github.com/eventcommit/core/internal/commit"
	"github.com/eventcommit/core/internal/config"
	"github.com/eventcommit/core/internal/domain"
	"github.com/eventcommit/core/internal/eventstore"
	"github.com/eventcommit/core/internal/publish/kafkapub"
	"github.com/eventcommit/core/internal/publish/rabbitpub"
	"github.com/eventcommit/core/internal/registry"
)

func main() {
	cfgPath := flag.String("config", "eventcommit.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	fmt.Printf("eventcommitd node=%s lanes=%d publisher(kafka=%t rabbitmq=%t) store=%s\n",
		cfg.Server.NodeID,
		cfg.Commit.LaneCount,
		cfg.Publish.Kafka.Enabled,
		cfg.Publish.RabbitMQ.Enabled,
		cfg.Store.Path,
	)

	store, err := eventstore.Open(cfg.Store.Path, logger)
	if err != nil {
		logger.Fatalw("open event store", "error", err)
	}
	defer store.Close()

	publisher, closePublisher, err := buildPublisher(cfg)
	if err != nil {
		logger.Fatalw("build publisher", "error", err)
	}
	defer closePublisher()

	reg := registry.New()
	registerAggregates(reg)

	memCache := cache.New(reg, store)

	// The host application is responsible for registering the concrete
	// CommandHandler that re-derives a command's effect against a
	// freshened aggregate on a concurrency-conflict retry; this binary
	// wires the core but owns no business command handlers itself, so
	// there is nothing further to do with it here beyond confirming it
	// came up.
	core := commit.New(commit.Config{
		LaneCount:             cfg.Commit.LaneCount,
		AppendMaxRetries:      cfg.Commit.AppendMaxRetries,
		AppendAttemptTimeout:  cfg.Commit.AppendAttemptTimeout,
		PublishMaxRetries:     cfg.Commit.PublishMaxRetries,
		PublishAttemptTimeout: cfg.Commit.PublishAttemptTimeout,
	}, store, memCache, reg, publisher, logger)
	logger.Infow("commit core ready", "lane_count", cfg.Commit.LaneCount)
	_ = core

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Infow("eventcommitd shutting down", "node_id", cfg.Server.NodeID)
}

// registerAggregates is the single place a deployment lists the
// aggregate types this node can commit events for. It is intentionally
// empty here: a concrete deployment of this core links in its own
// aggregate root implementations and calls reg.Register for each.
func registerAggregates(reg *registry.Registry) {
	_ = reg
}

func buildPublisher(cfg config.Config) (domain.Publisher, func(), error) {
	switch {
	case cfg.Publish.Kafka.Enabled:
		producer, err := kafkapub.NewProducer(kafkapub.Config{
			Enabled:      true,
			Brokers:      cfg.Publish.Kafka.Brokers,
			Topic:        cfg.Publish.Kafka.Topic,
			ClientID:     cfg.Publish.Kafka.ClientID,
			RequiredAcks: cfg.Publish.Kafka.RequiredAcks,
			TLS:          kafkapub.TLSConfig{Enabled: cfg.Publish.Kafka.TLSEnabled},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build kafka publisher: %w", err)
		}
		return producer, producer.Close, nil
	case cfg.Publish.RabbitMQ.Enabled:
		producer, err := rabbitpub.NewProducer(rabbitpub.Config{
			Enabled:    true,
			URL:        cfg.Publish.RabbitMQ.URL,
			Exchange:   cfg.Publish.RabbitMQ.Exchange,
			RoutingKey: cfg.Publish.RabbitMQ.RoutingKey,
			TLS:        rabbitpub.TLSConfig{Enabled: cfg.Publish.RabbitMQ.TLSEnabled},
			Auth:       rabbitpub.AuthConfig{Username: cfg.Publish.RabbitMQ.Username, Password: cfg.Publish.RabbitMQ.Password},
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build rabbitmq publisher: %w", err)
		}
		return producer, func() { _ = producer.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("no publisher enabled in configuration")
	}
}
