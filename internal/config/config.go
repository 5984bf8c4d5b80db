package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"PD_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"PD_DB_MAX_CONNS" default:"8"`

	FetchIntervalMinutes  int `envconfig:"FETCH_INTERVAL_MINUTES" default:"15"`
	FillerIntervalMinutes int `envconfig:"FILLER_INTERVAL_MINUTES" default:"60"`
	MinConfirmingSources  int `envconfig:"MIN_CONFIRMING_SOURCES" default:"2"`
	PerSourceItemCap      int `envconfig:"PER_SOURCE_ITEM_CAP" default:"20"`

	FeedSourcesFile string `envconfig:"FEED_SOURCES_FILE" default:""`

	TriggerSecret string `envconfig:"TRIGGER_SECRET" default:""`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIModel    string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAIEndpoint string `envconfig:"OPENAI_ENDPOINT" default:"https://api.openai.com/v1/chat/completions"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("PD_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("PD_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("PD_DB_MIN_CONNS (%d) cannot exceed PD_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.FetchIntervalMinutes < 1 {
		return fmt.Errorf("FETCH_INTERVAL_MINUTES must be >= 1")
	}
	if c.FillerIntervalMinutes < 1 {
		return fmt.Errorf("FILLER_INTERVAL_MINUTES must be >= 1")
	}
	if c.MinConfirmingSources < 1 {
		return fmt.Errorf("MIN_CONFIRMING_SOURCES must be >= 1")
	}
	if c.PerSourceItemCap < 1 {
		return fmt.Errorf("PER_SOURCE_ITEM_CAP must be >= 1")
	}
	return nil
}
