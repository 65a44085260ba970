package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points XDG lookups at empty temp dirs so a developer's own
// config.yaml never leaks into assertions.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "memory", cfg.Store.Driver)
		assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
		assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

		assert.Equal(t, 100, cfg.Quota.Threshold)
		assert.Equal(t, time.Hour, cfg.Quota.Window)
		assert.Equal(t, 10*time.Second, cfg.Dispatch.HandlerTimeout)

		assert.Equal(t, 30*time.Second, cfg.Interpreter.Timeout)
		assert.Equal(t, "interpreter", cfg.Interpreter.Role)

		assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Crypto.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Crypto.Timeout)
		assert.Equal(t, "usd", cfg.Crypto.DefaultCurrency)
		assert.InDelta(t, 0.5, cfg.Crypto.RequestsPerSecond, 1e-9)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, 9090, cfg.Metrics.Port)
		assert.Equal(t, "verifi", cfg.Agent.Name)
	})

	t.Run("LibsqlGetsDefaultPath", func(t *testing.T) {
		isolate(t)

		cfg, err := Load(ctx, map[string]any{"store": map[string]any{"driver": "libsql"}})
		require.NoError(t, err)
		assert.Equal(t, DefaultStorePath(), cfg.Store.Path)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		isolate(t)
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"quota": map[string]any{
				"threshold": 1,
				"window":    "10s",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, 1, cfg.Quota.Threshold)
		assert.Equal(t, 10*time.Second, cfg.Quota.Window)

		// untouched siblings keep defaults
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		isolate(t)
		t.Setenv("VERIFI_PORT", "3000")
		t.Setenv("VERIFI_LOG_LEVEL", "warn")
		t.Setenv("VERIFI_METRICS_ENABLED", "false")
		t.Setenv("VERIFI_QUOTA_THRESHOLD", "7")
		t.Setenv("VERIFI_HANDLER_TIMEOUT", "2s")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, 7, cfg.Quota.Threshold)
		assert.Equal(t, 2*time.Second, cfg.Dispatch.HandlerTimeout)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		isolate(t)
		t.Setenv("VERIFI_PORT", "4000")

		cfg, err := Load(ctx, map[string]any{"server": map[string]any{"port": 5000}})
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("ExplicitFile", func(t *testing.T) {
		isolate(t)
		path := filepath.Join(t.TempDir(), "verifi.yaml")
		body := "agent:\n  name: fetch-verifier\nstore:\n  driver: redis\n  redis_addr: cache:6380\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		t.Setenv("VERIFI_AGENT_NAME", "from-env")

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Agent.Name)
		assert.Equal(t, "redis", cfg.Store.Driver)
		assert.Equal(t, "cache:6380", cfg.Store.RedisAddr)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		isolate(t)
		_, err := LoadFile(ctx, filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestGetConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)
	assert.Equal(t, cfg.Agent.Name, retrieved.Agent.Name)
}

func TestEnvSpecs(t *testing.T) {
	envVarNames := make(map[string]bool)
	for _, spec := range getEnvSpecs() {
		envVarNames[spec.Name] = true
	}

	for _, name := range []string{
		"VERIFI_LOG_LEVEL",
		"VERIFI_PORT",
		"VERIFI_HOST",
		"VERIFI_METRICS_PORT",
		"VERIFI_STORE_DRIVER",
		"VERIFI_QUOTA_THRESHOLD",
		"VERIFI_QUOTA_WINDOW",
		"VERIFI_AILINK_PROMPT_FILE",
	} {
		assert.True(t, envVarNames[name], "%s must be mapped", name)
	}
}

func TestAILinkDynamicEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_ENABLED", "true")
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_AI_PROVIDER", "Gemini")
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_MODELS_DEFAULT", "gemini-2.0-flash")
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_CREDENTIALS_0_API_KEY", "k-1")
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_CREDENTIALS_0_PRIORITY", "5")
	t.Setenv("VERIFI_AILINK_PROVIDERS_VERIFI_GEMINI_ROLES", "Interpreter, chat")
	t.Setenv("VERIFI_AILINK_ROUTING_INTERPRETER", "verifi-gemini")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	provider, ok := cfg.AILink.Providers["verifi-gemini"]
	require.True(t, ok)
	assert.True(t, provider.Enabled)
	assert.Equal(t, "gemini", provider.AIProvider)
	assert.Equal(t, "gemini-2.0-flash", provider.Models["default"])
	assert.Equal(t, []string{"interpreter", "chat"}, provider.Roles)
	require.Len(t, provider.Credentials, 1)
	assert.Equal(t, "k-1", provider.Credentials[0].APIKey)
	assert.Equal(t, 5, provider.Credentials[0].Priority)
	assert.Equal(t, "verifi-gemini", cfg.AILink.Routing["interpreter"])
}

func TestDurationParsing(t *testing.T) {
	isolate(t)
	t.Setenv("VERIFI_READ_TIMEOUT", "45s")
	t.Setenv("VERIFI_SHUTDOWN_TIMEOUT", "5m")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
}

func TestConfigReload(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	cfg1, err := Load(ctx)
	require.NoError(t, err)
	initialPort := cfg1.Server.Port

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": initialPort + 1000}})
	require.NoError(t, err)
	assert.Equal(t, initialPort+1000, cfg2.Server.Port)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}
