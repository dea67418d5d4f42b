package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("USE_IN_MEMORY_STORE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "cinetrack" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.PollRequireActive {
		t.Fatalf("expected active-poll guard to default on")
	}
	if cfg.OutboxPollInterval != 2*time.Second || cfg.OutboxBatchSize != 100 {
		t.Fatalf("unexpected relay defaults %s/%d", cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	}
	if len(cfg.KafkaBrokers) != 1 || cfg.KafkaBrokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadSplitsBrokersAndOverrides(t *testing.T) {
	t.Setenv("USE_IN_MEMORY_STORE", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("POLL_REQUIRE_ACTIVE", "false")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if cfg.PollRequireActive {
		t.Fatalf("expected active-poll guard to be disabled")
	}
	if cfg.OutboxPollInterval != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %s", cfg.OutboxPollInterval)
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("USE_IN_MEMORY_STORE", "false")
	t.Setenv("POSTGRES_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
