package kafkapub

import "testing"

func TestConfigValidateRequiresBrokersAndTopic(t *testing.T) {
	cfg := Config{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing brokers and topic")
	}

	cfg = Config{Enabled: true, Brokers: []string{"127.0.0.1:9092"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing topic")
	}

	cfg = Config{Enabled: true, Brokers: []string{"127.0.0.1:9092"}, Topic: "events"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestConfigValidateSkippedWhenDisabled(t *testing.T) {
	cfg := Config{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled config to always validate, got %v", err)
	}
}

func TestConfigWithDefaultsSetsRequiredAcks(t *testing.T) {
	cfg := Config{Enabled: true, Brokers: []string{"b:9092"}, Topic: "events"}
	cfg.withDefaults()
	if cfg.RequiredAcks != "all" {
		t.Fatalf("expected default required_acks=all, got %q", cfg.RequiredAcks)
	}
}
