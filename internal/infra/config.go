package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5435"`
	PGUser      string `env:"PGUSER" envDefault:"mayday"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"mayday"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"mayday"`

	// Server
	APIPort int `env:"API_PORT" envDefault:"3100"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Relay
	RelayInterval  time.Duration `env:"RELAY_INTERVAL" envDefault:"500ms"`
	RelayBatchSize int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`

	// Gate
	EvaluateRateLimit  int           `env:"EVALUATE_RATE_LIMIT" envDefault:"100"`
	EvaluateRateWindow time.Duration `env:"EVALUATE_RATE_WINDOW" envDefault:"1h"`
	SyncTTL            time.Duration `env:"SYNC_TTL" envDefault:"24h"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for configuration values that cannot be run with.
func (c *Config) Validate() error {
	if c.RelayBatchSize <= 0 {
		return fmt.Errorf("RELAY_BATCH_SIZE must be positive, got %d", c.RelayBatchSize)
	}
	if c.EvaluateRateLimit <= 0 {
		return fmt.Errorf("EVALUATE_RATE_LIMIT must be positive, got %d", c.EvaluateRateLimit)
	}
	if c.EvaluateRateWindow <= 0 {
		return fmt.Errorf("EVALUATE_RATE_WINDOW must be positive, got %s", c.EvaluateRateWindow)
	}
	if c.SyncTTL <= 0 {
		return fmt.Errorf("SYNC_TTL must be positive, got %s", c.SyncTTL)
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
