package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	t.Setenv("EVENTCOMMIT_PUBLISH_KAFKA_ENABLED", "true")

	path := filepath.Join(t.TempDir(), "eventcommit.yaml")
	content := []byte(`
server:
  node_id: n1
commit:
  lane_count: 16
store:
  path: ./data/events.db
publish:
  kafka:
    enabled: false
    brokers: ["127.0.0.1:9092"]
    topic: events
  rabbitmq:
    enabled: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if !cfg.Publish.Kafka.Enabled {
		t.Fatalf("expected env override to enable kafka")
	}
	if cfg.Commit.LaneCount != 16 {
		t.Fatalf("expected lane_count 16, got %d", cfg.Commit.LaneCount)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventcommit.toml")
	content := []byte(`
[server]
node_id = "n2"

[commit]
lane_count = 4

[store]
path = "./data/events.db"

[publish.kafka]
enabled = true
brokers = ["127.0.0.1:9092"]
topic = "events"

[publish.rabbitmq]
enabled = false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if cfg.Server.NodeID != "n2" {
		t.Fatalf("unexpected node id: %q", cfg.Server.NodeID)
	}
	if cfg.Commit.LaneCount != 4 {
		t.Fatalf("unexpected lane count: %d", cfg.Commit.LaneCount)
	}
}

func TestValidateRequiresExactlyOnePublisher(t *testing.T) {
	cfg := Config{
		Server: ServerConfig{NodeID: "n1"},
		Commit: CommitConfig{LaneCount: 8},
		Store:  StoreConfig{Path: "./data/events.db"},
		Publish: PublishConfig{
			Kafka:    KafkaConfig{Enabled: true},
			RabbitMQ: RabbitMQConfig{Enabled: true},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when both publishers are enabled")
	}
}

func TestValidateRequiresNodeID(t *testing.T) {
	cfg := Config{
		Commit:  CommitConfig{LaneCount: 8},
		Store:   StoreConfig{Path: "./data/events.db"},
		Publish: PublishConfig{Kafka: KafkaConfig{Enabled: true}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error when node_id is missing")
	}
}

func TestDefaultsApplyWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventcommit.yaml")
	content := []byte(`
server:
  node_id: n3
publish:
  kafka:
    enabled: true
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if cfg.Commit.LaneCount != 8 {
		t.Fatalf("expected default lane_count 8, got %d", cfg.Commit.LaneCount)
	}
	if cfg.Commit.AppendAttemptTimeout != 2*time.Second {
		t.Fatalf("expected default append attempt timeout 2s, got %s", cfg.Commit.AppendAttemptTimeout)
	}
	if cfg.Store.Path != "./data/events.db" {
		t.Fatalf("expected default store path, got %q", cfg.Store.Path)
	}
}
