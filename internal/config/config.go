package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Backend     BackendConfig
	Cache       CacheConfig
	Admin       AdminConfig
	ProofLedger ProofLedgerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"victor-smm-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// BackendConfig holds the connection settings for the remote
// backend-as-a-service. Both values are required: the application refuses
// to start without them.
type BackendConfig struct {
	BaseURL string        `envconfig:"BACKEND_URL" required:"true"`
	APIKey  string        `envconfig:"BACKEND_ANON_KEY" required:"true"`
	Timeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"15s"`
}

// CacheConfig holds session cache settings.
type CacheConfig struct {
	Type       string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// AdminConfig holds the admin console credential pair. The defaults match
// the demo deployment; override both in production.
type AdminConfig struct {
	Email    string `envconfig:"ADMIN_EMAIL" default:"123@gmail.com"`
	Password string `envconfig:"ADMIN_PASSWORD" default:"Ratking345"`
}

// ProofLedgerConfig holds settings for the local payment-proof upload
// ledger and its orphan sweep.
type ProofLedgerConfig struct {
	Path            string        `envconfig:"PROOF_LEDGER_PATH" default:"./data/proofs.db"`
	SweepInterval   time.Duration `envconfig:"PROOF_SWEEP_INTERVAL" default:"1h"`
	OrphanThreshold time.Duration `envconfig:"PROOF_ORPHAN_THRESHOLD" default:"24h"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
