package ailink

import "time"

// Config defines interpreter provider configuration.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptFile replaces the built-in interpretation prompt when set.
	PromptFile string `mapstructure:"prompt_file"`

	// Debug controls raw payload capture on interpretation failures.
	Debug DebugConfig `mapstructure:"debug"`

	// Providers is a set of provider instances keyed by a user-defined id (slug).
	// Each instance declares its underlying driver via AIProvider.
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing maps a role (e.g. "interpreter") to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

type DebugConfig struct {
	CaptureRawEnabled  bool `mapstructure:"capture_raw_enabled"`
	CaptureRawMaxBytes int  `mapstructure:"capture_raw_max_bytes"`
}

// ProviderInstanceConfig defines a configured provider instance (e.g. "verifi-gemini").
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider is the driver identifier: "openai" or "gemini".
	AIProvider string `mapstructure:"ai_provider"`

	BaseURL string `mapstructure:"base_url"`
	// Models maps a role, or "default", to a model name.
	Models map[string]string `mapstructure:"models"`
	Roles  []string          `mapstructure:"roles"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is a single credential for a provider instance. The
// highest priority enabled credential with a key is used.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}
