package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hermes/pkg/errors"
)

type Config struct {
	App           AppConfig
	Broker        BrokerConfig
	AI            AIConfig
	Kafka         KafkaConfig
	Redis         RedisConfig
	Gateway       GatewayConfig
	Scenario      ScenarioConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hermes"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// BrokerConfig tunes the coordination engine itself.
type BrokerConfig struct {
	Name string `envconfig:"BROKER_NAME" default:"Hermes Securities"`

	// HopLimit caps internal message propagation per originating event.
	// Peer edges form cycles in the default topology; the hop ceiling is
	// what guarantees a cycle terminates.
	HopLimit int `envconfig:"BROKER_HOP_LIMIT" default:"3"`

	// DecisionTimeout bounds a single decision-function call. On expiry the
	// sub-agent reports a DecisionFailure opinion instead of blocking the cycle.
	DecisionTimeout time.Duration `envconfig:"BROKER_DECISION_TIMEOUT" default:"30s"`

	// Role priority weights used by the conflict resolver. The event's
	// primary owner additionally receives PrimaryOwnerBoost at resolve
	// time, which must keep the owner ahead of every non-executive desk:
	// compliance wins through the blocking veto, not through priority.
	PriorityExecutive      int `envconfig:"BROKER_PRIORITY_EXECUTIVE" default:"100"`
	PriorityRiskCompliance int `envconfig:"BROKER_PRIORITY_RISK_COMPLIANCE" default:"50"`
	PriorityDefault        int `envconfig:"BROKER_PRIORITY_DEFAULT" default:"50"`
	PrimaryOwnerBoost      int `envconfig:"BROKER_PRIMARY_OWNER_BOOST" default:"25"`

	// KeywordFallback routes events with no subscription match to the
	// executive desk instead of yielding NoAction.
	KeywordFallback bool `envconfig:"BROKER_KEYWORD_FALLBACK" default:"false"`
}

type AIConfig struct {
	// Provider selects the decision-function binding: "rules" runs the
	// deterministic department rules, "openai" binds the LLM provider.
	Provider string `envconfig:"AI_PROVIDER" default:"rules"`

	OpenAIKey         string  `envconfig:"OPENAI_API_KEY"`
	Model             string  `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	Temperature       float64 `envconfig:"AI_TEMPERATURE" default:"0.2"`
	MaxTokens         int     `envconfig:"AI_MAX_TOKENS" default:"1024"`
	RequestsPerMinute int     `envconfig:"AI_REQUESTS_PER_MINUTE" default:"60"`
}

type KafkaConfig struct {
	Brokers        []string `envconfig:"KAFKA_BROKERS"`
	GroupID        string   `envconfig:"KAFKA_GROUP_ID" default:"hermes"`
	EventsTopic    string   `envconfig:"KAFKA_EVENTS_TOPIC" default:"brokerage.events"`
	DecisionsTopic string   `envconfig:"KAFKA_DECISIONS_TOPIC" default:"brokerage.decisions"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type GatewayConfig struct {
	// Mode selects the external gateway: "none", "kafka", or "websocket".
	Mode string `envconfig:"GATEWAY_MODE" default:"none"`

	WebsocketURL string        `envconfig:"GATEWAY_WS_URL"`
	PullInterval time.Duration `envconfig:"GATEWAY_PULL_INTERVAL" default:"5s"`
}

type ScenarioConfig struct {
	Path       string `envconfig:"SCENARIO_PATH"`
	NumCycles  int    `envconfig:"SCENARIO_NUM_CYCLES" default:"1"`
	OutputPath string `envconfig:"SCENARIO_OUTPUT_PATH"`

	// PersistTrace mirrors trace records into Redis for later replay.
	PersistTrace bool `envconfig:"SCENARIO_PERSIST_TRACE" default:"false"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	Port    int  `envconfig:"METRICS_PORT" default:"9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// Best effort: running from env vars alone is fine
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "process env")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate enforces the invariants the engine depends on. Violations here are
// fatal; nothing else in the system is allowed to abort a run.
func (c *Config) Validate() error {
	if c.Broker.HopLimit < 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "hop limit must be >= 1, got %d", c.Broker.HopLimit)
	}
	if c.Broker.DecisionTimeout <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "decision timeout must be positive, got %s", c.Broker.DecisionTimeout)
	}
	if c.Scenario.NumCycles < 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "num cycles must be >= 1, got %d", c.Scenario.NumCycles)
	}
	switch c.AI.Provider {
	case "rules", "openai":
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown AI provider %q", c.AI.Provider)
	}
	switch c.Gateway.Mode {
	case "none", "kafka", "websocket":
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown gateway mode %q", c.Gateway.Mode)
	}
	if c.Gateway.Mode == "kafka" && len(c.Kafka.Brokers) == 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "kafka gateway requires KAFKA_BROKERS")
	}
	if c.Gateway.Mode == "websocket" && c.Gateway.WebsocketURL == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "websocket gateway requires GATEWAY_WS_URL")
	}
	if c.AI.Provider == "openai" && c.AI.OpenAIKey == "" {
		return errors.Wrapf(errors.ErrInvalidConfig, "openai provider requires OPENAI_API_KEY")
	}
	return nil
}
