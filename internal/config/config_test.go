package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("RunPollInterval converts milliseconds to duration", func(t *testing.T) {
		cfg := &Config{RunPollIntervalMS: 1000}
		assert.Equal(t, time.Second, cfg.RunPollInterval())
	})

	t.Run("RunWaitTimeout converts seconds to duration", func(t *testing.T) {
		cfg := &Config{RunWaitTimeoutSeconds: 60}
		assert.Equal(t, 60*time.Second, cfg.RunWaitTimeout())
	})

	t.Run("SignatureTolerance converts seconds to duration", func(t *testing.T) {
		cfg := &Config{SignatureToleranceSeconds: 300}
		assert.Equal(t, 5*time.Minute, cfg.SignatureTolerance())
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RunPollIntervalMS:         1000,
			RunWaitTimeoutSeconds:     60,
			SignatureToleranceSeconds: 300,
		}
	}

	t.Run("accepts sane defaults", func(t *testing.T) {
		assert.NoError(t, valid().Validate(false))
	})

	t.Run("rejects non-positive poll interval", func(t *testing.T) {
		cfg := valid()
		cfg.RunPollIntervalMS = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects non-positive wait budget", func(t *testing.T) {
		cfg := valid()
		cfg.RunWaitTimeoutSeconds = -1
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects known weak signing secret", func(t *testing.T) {
		cfg := valid()
		cfg.SlackSigningSecret = "change-me"
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("allows empty signing secret with a warning", func(t *testing.T) {
		cfg := valid()
		cfg.SlackSigningSecret = ""
		assert.NoError(t, cfg.Validate(true))
	})
}

func TestLoad(t *testing.T) {
	keys := []string{
		"PORT", "SLACK_SIGNING_SECRET", "SLACK_BOT_TOKEN", "SLACK_BOT_USER_ID",
		"OPENAI_API_KEY", "OPENAI_ASSISTANT_ID", "OPENAI_BASE_URL",
		"THREAD_MAP_PATH", "REDIS_URL", "RUN_POLL_INTERVAL_MS",
		"RUN_WAIT_TIMEOUT_SECONDS", "SIGNATURE_TOLERANCE_SECONDS",
		"WEBHOOK_RATE_LIMIT_PER_MIN", "LOG_LEVEL",
	}

	originalEnv := map[string]string{}
	for _, k := range keys {
		originalEnv[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clear := func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	}

	t.Run("loads config with defaults", func(t *testing.T) {
		clear()
		os.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
		os.Setenv("OPENAI_API_KEY", "sk-test")
		os.Setenv("OPENAI_ASSISTANT_ID", "asst_test")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAIBaseURL)
		assert.Equal(t, "thread_memory.json", cfg.ThreadMapPath)
		assert.Equal(t, time.Second, cfg.RunPollInterval())
		assert.Equal(t, 60*time.Second, cfg.RunWaitTimeout())
		assert.Equal(t, 5*time.Minute, cfg.SignatureTolerance())
		assert.Equal(t, 60, cfg.WebhookRateLimitPerMin)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("fails without required variables", func(t *testing.T) {
		clear()

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("reads overrides", func(t *testing.T) {
		clear()
		os.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
		os.Setenv("OPENAI_API_KEY", "sk-test")
		os.Setenv("OPENAI_ASSISTANT_ID", "asst_test")
		os.Setenv("PORT", "9090")
		os.Setenv("RUN_POLL_INTERVAL_MS", "250")
		os.Setenv("THREAD_MAP_PATH", "/data/threads.json")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, 250*time.Millisecond, cfg.RunPollInterval())
		assert.Equal(t, "/data/threads.json", cfg.ThreadMapPath)
	})
}
