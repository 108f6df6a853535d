// Package config loads application configuration from environment variables.
//
// Configuration is constructed once at startup and passed by reference into
// every component; nothing reads ambient process state after Load returns.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidChatID indicates the monitored chat ID is not usable.
var ErrInvalidChatID = errors.New("TG_CHAT_ID must be non-zero")

type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"local"`

	// Telegram (MTProto user client)
	TGAPIID       int    `env:"TG_API_ID,required"`
	TGAPIHash     string `env:"TG_API_HASH,required"`
	TGPhone       string `env:"TG_PHONE"`
	TG2FAPassword string `env:"TG_2FA_PASSWORD"`
	TGSessionPath string `env:"TG_SESSION_PATH" envDefault:"./tg.session"`
	TGChatID      int64  `env:"TG_CHAT_ID,required"`

	// OpenAI
	OpenAIAPIKey     string `env:"OPENAI_API_KEY,required"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIImageModel string `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`

	// Moderation backend
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:5000"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	// Local processing state
	StateDBPath   string `env:"STATE_DB_PATH" envDefault:"./curator_state.db"`
	RetentionDays int    `env:"RETENTION_DAYS" envDefault:"30"`

	// Agent behavior
	MaxMessages         int           `env:"MAX_MESSAGES" envDefault:"50"`
	MaxURLs             int           `env:"MAX_URLS" envDefault:"10"`
	GenerateImages      bool          `env:"GENERATE_IMAGE_IF_NOT_FOUND" envDefault:"true"`
	LLMRateLimitRPS     int           `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	MonitorPollInterval time.Duration `env:"MONITOR_POLL_INTERVAL" envDefault:"15s"`

	// Web fetching
	WebFetchRPS      float64       `env:"WEB_FETCH_RPS" envDefault:"2"`
	WebFetchTimeout  time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"30s"`
	MaxContentLength int           `env:"MAX_CONTENT_LENGTH" envDefault:"2000"`

	HealthPort int `env:"HEALTH_PORT" envDefault:"8080"`
}

// Load reads configuration from the environment, loading a .env file first
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.TGChatID == 0 {
		return ErrInvalidChatID
	}

	if c.MaxMessages <= 0 {
		c.MaxMessages = 50
	}

	if c.MaxURLs <= 0 {
		c.MaxURLs = 10
	}

	if c.RetentionDays <= 0 {
		c.RetentionDays = 30
	}

	return nil
}
