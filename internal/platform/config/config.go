package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string   `env:"SERVICE_NAME" env-default:"cinetrack"`
	HTTPPort     string   `env:"HTTP_PORT" env-default:"8080"`
	PostgresDSN  string   `env:"POSTGRES_DSN"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" env-separator:"," env-default:"localhost:9092"`
	CORSOrigins  []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`

	// UseInMemoryStore runs both modules on process-local stores. Data does
	// not survive a restart and is not shared between api and worker.
	UseInMemoryStore bool `env:"USE_IN_MEMORY_STORE" env-default:"false"`

	PollRequireActive          bool          `env:"POLL_REQUIRE_ACTIVE" env-default:"true"`
	OutboxPollInterval         time.Duration `env:"OUTBOX_POLL_INTERVAL" env-default:"2s"`
	OutboxBatchSize            int           `env:"OUTBOX_BATCH_SIZE" env-default:"100"`
	EnableRankingScoreConsumer bool          `env:"ENABLE_RANKING_SCORE_CONSUMER" env-default:"true"`
	RankingScoreConsumerGroup  string        `env:"RANKING_SCORE_CONSUMER_GROUP" env-default:"ranking-engine-score-cg"`
	RankingScoreDedupTTL       time.Duration `env:"RANKING_SCORE_DEDUP_TTL" env-default:"168h"`
}

func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env config: %w", err)
	}

	brokers := make([]string, 0, len(cfg.KafkaBrokers))
	for _, value := range cfg.KafkaBrokers {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	cfg.KafkaBrokers = brokers

	if cfg.OutboxPollInterval <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive, got %s", cfg.OutboxPollInterval)
	}
	if cfg.OutboxBatchSize <= 0 {
		return Config{}, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", cfg.OutboxBatchSize)
	}
	if !cfg.UseInMemoryStore && strings.TrimSpace(cfg.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required unless USE_IN_MEMORY_STORE is set")
	}
	return cfg, nil
}
