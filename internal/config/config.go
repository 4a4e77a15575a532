// Package config loads fieldwatch configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/light-bringer/fieldwatch/internal/pkg/logging"
)

// Store backends.
const (
	BackendSQLite  = "sqlite"
	BackendSpanner = "spanner"
	BackendMongoDB = "mongodb"
)

const (
	defaultSpannerDB     = "projects/test-project/instances/dev-instance/databases/fieldwatch-db"
	defaultNATSURL       = "nats://localhost:4222"
	defaultSubjectPrefix = "CHANGES"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	Logging  logging.Config `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	NATS     NATSConfig     `yaml:"nats"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Relay    RelayConfig    `yaml:"relay"`
	Models   []ModelConfig  `yaml:"models"`
}

// StoreConfig selects the record store the query facade reads from.
type StoreConfig struct {
	Backend         string `yaml:"backend"`
	SQLitePath      string `yaml:"sqlite_path"`
	SpannerDatabase string `yaml:"spanner_database"`
	MongoURL        string `yaml:"mongodb_url"`
	MongoDatabase   string `yaml:"mongodb_database"`
}

// NATSConfig configures change notification publishing.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DispatchConfig bounds concurrent reaction invocations per operation.
type DispatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// RelayConfig configures the outbox relay loop.
type RelayConfig struct {
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int64         `yaml:"max_retries"`
	Interval   time.Duration `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: logging.DefaultConfig(),
		Store: StoreConfig{
			Backend:       BackendSQLite,
			SQLitePath:    "fieldwatch.db",
			MongoDatabase: "fieldwatch",
		},
		NATS: NATSConfig{
			URL:           defaultNATSURL,
			SubjectPrefix: defaultSubjectPrefix,
		},
		Dispatch: DispatchConfig{Concurrency: 8},
		Relay: RelayConfig{
			BatchSize:  100,
			MaxRetries: 5,
			Interval:   2 * time.Second,
		},
	}
}

// Load reads path (or $FIELDWATCH_CONFIG when path is empty) over the
// defaults, applies environment overrides and validates the result. With no
// path at all the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FIELDWATCH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills gaps left by a partial file.
func (c *Config) ApplyDefaults() {
	c.Logging.ApplyDefaults()
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQLite
	}
	if c.Store.SpannerDatabase == "" {
		c.Store.SpannerDatabase = defaultSpannerDB
	}
	if c.NATS.URL == "" {
		c.NATS.URL = defaultNATSURL
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultSubjectPrefix
	}
	if c.Relay.BatchSize == 0 {
		c.Relay.BatchSize = 100
	}
	if c.Relay.MaxRetries == 0 {
		c.Relay.MaxRetries = 5
	}
	if c.Relay.Interval == 0 {
		c.Relay.Interval = 2 * time.Second
	}
}

// ApplyEnvOverrides lets deployment environments override connection
// settings and the log level.
func (c *Config) ApplyEnvOverrides() {
	c.Store.SpannerDatabase = getEnvOrDefault("SPANNER_DATABASE", c.Store.SpannerDatabase)
	c.Store.MongoURL = getEnvOrDefault("MONGODB_URL", c.Store.MongoURL)
	c.NATS.URL = getEnvOrDefault("NATS_URL", c.NATS.URL)
	c.Logging.Level = getEnvOrDefault("FIELDWATCH_LOG_LEVEL", c.Logging.Level)
}

// Validate checks the whole configuration, including every model's watch
// list.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendSpanner:
		if c.Store.SpannerDatabase == "" {
			return fmt.Errorf("%w: store.spanner_database is required for the spanner backend", ErrInvalidConfig)
		}
	case BackendMongoDB:
		if c.Store.MongoURL == "" || c.Store.MongoDatabase == "" {
			return fmt.Errorf("%w: store.mongodb_url and store.mongodb_database are required for the mongodb backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.Dispatch.Concurrency < 0 {
		return fmt.Errorf("%w: dispatch.concurrency must not be negative", ErrInvalidConfig)
	}
	if c.Relay.BatchSize < 0 || c.Relay.MaxRetries < 0 {
		return fmt.Errorf("%w: relay limits must not be negative", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		m := &c.Models[i]
		if m.Name == "" {
			return fmt.Errorf("%w: models[%d] has no name", ErrInvalidConfig, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: model %s is configured twice", ErrInvalidConfig, m.Name)
		}
		seen[m.Name] = true
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Model returns the configuration of the named model.
func (c *Config) Model(name string) (*ModelConfig, bool) {
	for i := range c.Models {
		if c.Models[i].Name == name {
			return &c.Models[i], true
		}
	}
	return nil, false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
