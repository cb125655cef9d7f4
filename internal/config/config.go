package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton so helpers outside the wire graph can reach config.
var globalConfig *Config

// Config holds all environment backed configuration for jarvis-server.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	ServiceKey  string `env:"SERVICE_KEY"`

	// PostgreSQL
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Conversation context store
	ContextStoreBackend string        `env:"CONTEXT_STORE_BACKEND" envDefault:"memory"`
	ContextTTL          time.Duration `env:"CONTEXT_TTL" envDefault:"30m"`
	RedisAddr           string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword       string        `env:"REDIS_PASSWORD"`
	RedisDB             int           `env:"REDIS_DB" envDefault:"0"`

	// NLU provider (OpenAI compatible chat completions)
	NLUBaseURL     string        `env:"NLU_BASE_URL" envDefault:"https://api.openai.com/v1"`
	NLUAPIKey      string        `env:"NLU_API_KEY,notEmpty"`
	NLUModel       string        `env:"NLU_MODEL" envDefault:"gpt-4o-mini"`
	NLUTimeout     time.Duration `env:"NLU_TIMEOUT" envDefault:"30s"`
	NLUMaxRetries  int           `env:"NLU_MAX_RETRIES" envDefault:"2"`
	NLUTemperature float32       `env:"NLU_TEMPERATURE" envDefault:"0"`

	// Telegram transport; polling stays off when no token is set
	TelegramBotToken     string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramPollInterval time.Duration `env:"TELEGRAM_POLL_INTERVAL" envDefault:"2s"`
	TelegramAPIBaseURL   string        `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`

	// Limit engine
	WarningBandRatio   float64 `env:"WARNING_BAND_RATIO" envDefault:"0.9"`
	MaxClarifyAttempts int     `env:"MAX_CLARIFY_ATTEMPTS" envDefault:"3"`
	MaxMessageLength   int     `env:"MAX_MESSAGE_LENGTH" envDefault:"2000"`

	// Assistant profile bootstrap (default categories, reply texts)
	AssistantProfileFile string            `env:"ASSISTANT_PROFILE_FILE"`
	AssistantProfile     *AssistantProfile `env:"-"`

	// Maintenance
	ContextSweepSchedule string `env:"CONTEXT_SWEEP_SCHEDULE" envDefault:"*/15 * * * *"`

	// Observability / Logging
	ServiceName string `env:"SERVICE_NAME" envDefault:"jarvis-server"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.ContextStoreBackend = strings.ToLower(strings.TrimSpace(cfg.ContextStoreBackend))
	switch cfg.ContextStoreBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("unsupported CONTEXT_STORE_BACKEND %q", cfg.ContextStoreBackend)
	}

	if cfg.WarningBandRatio <= 0 || cfg.WarningBandRatio >= 1 {
		return nil, fmt.Errorf("WARNING_BAND_RATIO must be in (0, 1), got %v", cfg.WarningBandRatio)
	}

	if cfg.MaxClarifyAttempts < 1 {
		return nil, fmt.Errorf("MAX_CLARIFY_ATTEMPTS must be at least 1, got %d", cfg.MaxClarifyAttempts)
	}

	profileFile := strings.TrimSpace(cfg.AssistantProfileFile)
	if profileFile == "" {
		profileFile = DefaultAssistantProfileFile
	}
	profile, err := LoadAssistantProfile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("load assistant profile: %w", err)
	}
	cfg.AssistantProfile = profile

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// TelegramEnabled reports whether the Telegram polling loop should run.
func (c *Config) TelegramEnabled() bool {
	return strings.TrimSpace(c.TelegramBotToken) != ""
}

// GetGlobal returns the global config instance.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
