package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"trusio/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	ClickHouse    ClickHouseConfig
	Kafka         KafkaConfig
	AI            AIConfig
	Agents        AgentsConfig
	Memory        MemoryConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"trusio"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port    int    `envconfig:"HTTP_PORT" default:"8080"`
	Version string `envconfig:"APP_VERSION" default:"dev"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host       string        `envconfig:"REDIS_HOST" required:"true"`
	Port       int           `envconfig:"REDIS_PORT" default:"6379"`
	Password   string        `envconfig:"REDIS_PASSWORD"`
	DB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL time.Duration `envconfig:"REDIS_SESSION_TTL" default:"24h"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ClickHouseConfig struct {
	Enabled  bool   `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host     string `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"trusio"`
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
}

type AIConfig struct {
	OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
	Model         string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout       time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	RatePerMinute float64       `envconfig:"OPENAI_RATE_PER_MINUTE" default:"300"`
	RateBurst     int           `envconfig:"OPENAI_RATE_BURST" default:"20"`
	// Provider selects the agent-execution backend: openai or static.
	Provider string `envconfig:"AI_PROVIDER" default:"openai"`
}

// AgentsConfig tunes the orchestration runtime.
type AgentsConfig struct {
	DefaultAgent     string        `envconfig:"AGENTS_DEFAULT" default:"general_assistant"`
	EscalationAgent  string        `envconfig:"AGENTS_ESCALATION" default:"escalation"`
	ExecutionTimeout time.Duration `envconfig:"AGENTS_EXECUTION_TIMEOUT" default:"45s"`
	ToolTimeout      time.Duration `envconfig:"AGENTS_TOOL_TIMEOUT" default:"10s"`
	MaxTurns         int           `envconfig:"AGENTS_MAX_TURNS" default:"8"`

	MaxHandoffDepth   int `envconfig:"AGENTS_MAX_HANDOFF_DEPTH" default:"5"`
	HandoffCarryTurns int `envconfig:"AGENTS_HANDOFF_CARRY_TURNS" default:"10"`

	ContextCacheSize   int           `envconfig:"AGENTS_CONTEXT_CACHE_SIZE" default:"256"`
	ContextTTL         time.Duration `envconfig:"AGENTS_CONTEXT_TTL" default:"5m"`
	ContextSweep       time.Duration `envconfig:"AGENTS_CONTEXT_SWEEP_INTERVAL" default:"1m"`
	ContextHistorySize int           `envconfig:"AGENTS_CONTEXT_HISTORY_SIZE" default:"20"`

	LifecycleSweep      time.Duration `envconfig:"AGENTS_LIFECYCLE_SWEEP_INTERVAL" default:"15s"`
	RouterMinConfidence float64       `envconfig:"AGENTS_ROUTER_MIN_CONFIDENCE" default:"0.4"`
}

type MemoryConfig struct {
	MaxInsights  int `envconfig:"MEMORY_MAX_INSIGHTS" default:"50"`
	FocusWindow  int `envconfig:"MEMORY_FOCUS_WINDOW" default:"10"`
	HistoryLimit int `envconfig:"MEMORY_HISTORY_LIMIT" default:"100"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables. A .env file is loaded
// first when present so local development does not need exported variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process environment config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the runtime cannot operate under.
func (c *Config) Validate() error {
	if c.Agents.MaxHandoffDepth < 1 {
		return errors.NewValidationError("AGENTS_MAX_HANDOFF_DEPTH", "must be at least 1", c.Agents.MaxHandoffDepth)
	}
	if c.Agents.ContextCacheSize < 1 {
		return errors.NewValidationError("AGENTS_CONTEXT_CACHE_SIZE", "must be at least 1", c.Agents.ContextCacheSize)
	}
	if c.Agents.RouterMinConfidence < 0 || c.Agents.RouterMinConfidence > 1 {
		return errors.NewValidationError("AGENTS_ROUTER_MIN_CONFIDENCE", "must be within [0,1]", c.Agents.RouterMinConfidence)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAIKey == "" && c.App.Env == "production" {
		return errors.NewValidationError("OPENAI_API_KEY", "required in production", "")
	}
	return nil
}
