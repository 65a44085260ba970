// Package config provides centralized configuration management for verifi.
// Defaults are registered on a viper instance, merged with the optional user
// config file, VERIFI_* environment variables and runtime overrides, then
// decoded with mapstructure.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config and data directories.
	AppName = "verifi"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "VERIFI_"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load loads configuration from defaults, the first user config file found,
// environment variables, and runtime overrides (later layers win).
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", runtimeOverrides...)
}

// LoadFile is Load with an explicit config file. An empty path searches the
// XDG config locations.
func LoadFile(ctx context.Context, path string, runtimeOverrides ...map[string]any) (*Config, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	v := viper.New()
	SetDefaults(v)

	if err := mergeConfigFile(v, path); err != nil {
		return nil, err
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs())
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	applyAILinkDynamicEnvOverrides(EnvPrefix, envOverrides)

	layers := append([]map[string]any{envOverrides}, runtimeOverrides...)
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, fmt.Errorf("failed to merge config overrides: %w", err)
		}
	}

	cfg, err := decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if cfg.Store.Driver == "libsql" && strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	setConfig(cfg)
	return cfg, nil
}

// SetDefaults registers default configuration values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.redis_password", "")

	v.SetDefault("cache.ttl", "5m")

	v.SetDefault("quota.threshold", 100)
	v.SetDefault("quota.window", "60m")

	v.SetDefault("dispatch.handler_timeout", "10s")

	v.SetDefault("interpreter.timeout", "30s")
	v.SetDefault("interpreter.role", "interpreter")
	v.SetDefault("interpreter.model", "")

	v.SetDefault("ailink.default_provider", "")
	v.SetDefault("ailink.default_timeout", "30s")
	v.SetDefault("ailink.prompt_file", "")
	v.SetDefault("ailink.debug.capture_raw_enabled", false)
	v.SetDefault("ailink.debug.capture_raw_max_bytes", 4096)

	v.SetDefault("crypto.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("crypto.requests_per_second", 0.5)
	v.SetDefault("crypto.timeout", "10s")
	v.SetDefault("crypto.default_currency", "usd")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("agent.name", "verifi")
}

func mergeConfigFile(v *viper.Viper, path string) error {
	path = strings.TrimSpace(path)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	for _, candidate := range getUserConfigPaths() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			return fmt.Errorf("failed to read config file %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

func decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// getUserConfigPaths returns the list of user config file paths to check.
func getUserConfigPaths() []string {
	dirs := gfconfig.GetAppConfigPaths(AppName)
	paths := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if filepath.Ext(dir) == "" {
			dir = filepath.Join(dir, "config.yaml")
		}
		paths = append(paths, dir)
	}
	return append(paths, filepath.Join("config", "config.yaml"))
}

// getEnvSpecs maps VERIFI_* environment variables to config paths.
func getEnvSpecs() []EnvVarSpec {
	prefix := EnvPrefix
	return []EnvVarSpec{
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		{Name: prefix + "STORE_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},
		{Name: prefix + "REDIS_ADDR", Path: []string{"store", "redis_addr"}, Type: EnvString},
		{Name: prefix + "REDIS_DB", Path: []string{"store", "redis_db"}, Type: EnvInt},
		{Name: prefix + "REDIS_PASSWORD", Path: []string{"store", "redis_password"}, Type: EnvString},

		{Name: prefix + "CACHE_TTL", Path: []string{"cache", "ttl"}, Type: EnvString},

		{Name: prefix + "QUOTA_THRESHOLD", Path: []string{"quota", "threshold"}, Type: EnvInt},
		{Name: prefix + "QUOTA_WINDOW", Path: []string{"quota", "window"}, Type: EnvString},

		{Name: prefix + "HANDLER_TIMEOUT", Path: []string{"dispatch", "handler_timeout"}, Type: EnvString},

		{Name: prefix + "INTERPRETER_TIMEOUT", Path: []string{"interpreter", "timeout"}, Type: EnvString},
		{Name: prefix + "INTERPRETER_ROLE", Path: []string{"interpreter", "role"}, Type: EnvString},
		{Name: prefix + "INTERPRETER_MODEL", Path: []string{"interpreter", "model"}, Type: EnvString},

		{Name: prefix + "AILINK_DEFAULT_PROVIDER", Path: []string{"ailink", "default_provider"}, Type: EnvString},
		{Name: prefix + "AILINK_DEFAULT_TIMEOUT", Path: []string{"ailink", "default_timeout"}, Type: EnvString},
		{Name: prefix + "AILINK_PROMPT_FILE", Path: []string{"ailink", "prompt_file"}, Type: EnvString},
		{Name: prefix + "AILINK_DEBUG_CAPTURE_RAW_ENABLED", Path: []string{"ailink", "debug", "capture_raw_enabled"}, Type: EnvBool},
		{Name: prefix + "AILINK_DEBUG_CAPTURE_RAW_MAX_BYTES", Path: []string{"ailink", "debug", "capture_raw_max_bytes"}, Type: EnvInt},

		{Name: prefix + "CRYPTO_BASE_URL", Path: []string{"crypto", "base_url"}, Type: EnvString},
		{Name: prefix + "CRYPTO_REQUESTS_PER_SECOND", Path: []string{"crypto", "requests_per_second"}, Type: EnvString},
		{Name: prefix + "CRYPTO_TIMEOUT", Path: []string{"crypto", "timeout"}, Type: EnvString},
		{Name: prefix + "CRYPTO_DEFAULT_CURRENCY", Path: []string{"crypto", "default_currency"}, Type: EnvString},

		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "AGENT_NAME", Path: []string{"agent", "name"}, Type: EnvString},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(AppName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the libsql record cache.
func DefaultStorePath() string {
	dataDir := gfconfig.GetAppDataDir(AppName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + AppName + ".db"
	}
	return filepath.Join(dataDir, AppName+".db")
}

func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(envOverrides, key[len(routingPrefix):], value)
		}
	}
}

func applyAILinkRoutingOverride(envOverrides map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	routing := ensureMap(ailink, "routing")
	routing[role] = providerID
}

func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS", "DEFAULT", "SELECTION", "ROLES":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	if providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	providers := ensureMap(ailink, "providers")
	provider := ensureMap(providers, providerID)

	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(strings.TrimSpace(value), "true")
	case len(rest) == 1 && rest[0] == "ROLES":
		roles := []any{}
		for _, role := range strings.Split(value, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, strings.ToLower(role))
			}
		}
		provider["roles"] = roles
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(strings.TrimSpace(value))
	case len(rest) == 2 && rest[0] == "DEFAULT" && rest[1] == "CREDENTIAL":
		provider["default_credential"] = strings.TrimSpace(value)
	case len(rest) == 2 && rest[0] == "SELECTION" && rest[1] == "POLICY":
		provider["selection_policy"] = strings.ToLower(strings.TrimSpace(value))
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = strings.TrimSpace(value)
	case len(rest) >= 2 && rest[0] == "MODELS":
		modelKey := strings.ToLower(strings.Join(rest[1:], "_"))
		models := ensureMap(provider, "models")
		models[modelKey] = strings.TrimSpace(value)
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		if field == "" {
			return
		}

		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		if field == "priority" {
			if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				cred[field] = parsed
			} else {
				cred[field] = strings.TrimSpace(value)
			}
			return
		}
		if field == "enabled" {
			cred[field] = strings.EqualFold(strings.TrimSpace(value), "true")
			return
		}
		cred[field] = strings.TrimSpace(value)
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
