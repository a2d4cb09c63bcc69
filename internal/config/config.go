// Package config loads process configuration for cmd/eventcommitd via
// viper, grounded on the teacher's internal/config package: same
// SetConfigFile/SetEnvPrefix/AutomaticEnv/mapstructure idiom, with
// defaults and validation adapted to this domain's collaborators
// instead of the teacher's ingest-adapter toggles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Commit  CommitConfig  `mapstructure:"commit"`
	Store   StoreConfig   `mapstructure:"store"`
	Publish PublishConfig `mapstructure:"publish"`
}

type ServerConfig struct {
	NodeID string `mapstructure:"node_id"`
}

// CommitConfig configures C1/C2/C4: how many serial lanes the
// dispatcher routes aggregates across, and the retry executor's
// bounds for the append and publish I/O paths.
type CommitConfig struct {
	LaneCount             int           `mapstructure:"lane_count"`
	AppendMaxRetries      uint64        `mapstructure:"append_max_retries"`
	AppendAttemptTimeout  time.Duration `mapstructure:"append_attempt_timeout"`
	PublishMaxRetries     uint64        `mapstructure:"publish_max_retries"`
	PublishAttemptTimeout time.Duration `mapstructure:"publish_attempt_timeout"`
}

// StoreConfig configures C7, the durable SQLite event store.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// PublishConfig selects and configures C8's downstream publisher.
// Exactly one of Kafka or RabbitMQ should be enabled; see Validate.
type PublishConfig struct {
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type KafkaConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	ClientID     string   `mapstructure:"client_id"`
	RequiredAcks string   `mapstructure:"required_acks"`
	TLSEnabled   bool     `mapstructure:"tls_enabled"`
}

type RabbitMQConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Exchange   string `mapstructure:"exchange"`
	RoutingKey string `mapstructure:"routing_key"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
}

func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("eventcommit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("commit.lane_count", 8)
	v.SetDefault("commit.append_max_retries", 5)
	v.SetDefault("commit.append_attempt_timeout", "2s")
	v.SetDefault("commit.publish_max_retries", 5)
	v.SetDefault("commit.publish_attempt_timeout", "5s")
	v.SetDefault("store.path", "./data/events.db")
	v.SetDefault("publish.kafka.required_acks", "all")
	v.SetDefault("publish.kafka.topic", "domain-events")
	v.SetDefault("publish.rabbitmq.exchange", "domain-events")
}

func (c Config) Validate() error {
	if c.Server.NodeID == "" {
		return fmt.Errorf("server.node_id is required")
	}
	if c.Commit.LaneCount <= 0 {
		return fmt.Errorf("commit.lane_count must be positive")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	enabled := 0
	if c.Publish.Kafka.Enabled {
		enabled++
	}
	if c.Publish.RabbitMQ.Enabled {
		enabled++
	}
	if enabled != 1 {
		return fmt.Errorf("exactly one of publish.kafka.enabled or publish.rabbitmq.enabled must be true, got %d enabled", enabled)
	}
	return nil
}
