package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                      int    `env:"PORT" envDefault:"8080"`
	SlackSigningSecret        string `env:"SLACK_SIGNING_SECRET"`
	SlackBotToken             string `env:"SLACK_BOT_TOKEN,required"`
	SlackBotUserID            string `env:"SLACK_BOT_USER_ID"`
	OpenAIAPIKey              string `env:"OPENAI_API_KEY,required"`
	OpenAIAssistantID         string `env:"OPENAI_ASSISTANT_ID,required"`
	OpenAIBaseURL             string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	ThreadMapPath             string `env:"THREAD_MAP_PATH" envDefault:"thread_memory.json"`
	RedisURL                  string `env:"REDIS_URL"`
	RunPollIntervalMS         int    `env:"RUN_POLL_INTERVAL_MS" envDefault:"1000"`
	RunWaitTimeoutSeconds     int    `env:"RUN_WAIT_TIMEOUT_SECONDS" envDefault:"60"`
	SignatureToleranceSeconds int    `env:"SIGNATURE_TOLERANCE_SECONDS" envDefault:"300"`
	WebhookRateLimitPerMin    int    `env:"WEBHOOK_RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel                  string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) RunPollInterval() time.Duration {
	return time.Duration(c.RunPollIntervalMS) * time.Millisecond
}

func (c *Config) RunWaitTimeout() time.Duration {
	return time.Duration(c.RunWaitTimeoutSeconds) * time.Second
}

func (c *Config) SignatureTolerance() time.Duration {
	return time.Duration(c.SignatureToleranceSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.RunPollIntervalMS <= 0 {
		return fmt.Errorf("RUN_POLL_INTERVAL_MS must be positive")
	}
	if c.RunWaitTimeoutSeconds <= 0 {
		return fmt.Errorf("RUN_WAIT_TIMEOUT_SECONDS must be positive")
	}
	if c.SignatureToleranceSeconds <= 0 {
		return fmt.Errorf("SIGNATURE_TOLERANCE_SECONDS must be positive")
	}

	for _, weak := range knownWeakSecrets {
		if c.SlackSigningSecret == weak {
			return fmt.Errorf("SLACK_SIGNING_SECRET is a known weak default; set the real signing secret")
		}
	}

	if isProduction {
		if c.SlackSigningSecret == "" {
			log.Warn().Msg("SLACK_SIGNING_SECRET is empty in production: webhook signature verification disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
