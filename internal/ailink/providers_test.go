package ailink

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver/gemini"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver/openai"
)

func geminiProvider(key string) ProviderInstanceConfig {
	return ProviderInstanceConfig{
		Enabled:     true,
		AIProvider:  "gemini",
		Models:      map[string]string{"default": "gemini-2.0-flash"},
		Credentials: []CredentialConfig{{Enabled: true, Label: "main", APIKey: key}},
	}
}

func TestSelectByRouting(t *testing.T) {
	providers := NewProviders(Config{
		Providers: map[string]ProviderInstanceConfig{
			"primary": geminiProvider("g-key"),
			"backup": {
				Enabled:     true,
				AIProvider:  "openai",
				Models:      map[string]string{"default": "gpt-4o-mini"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "o-key"}},
			},
		},
		Routing: map[string]string{DefaultRole: "primary"},
	})

	sel, err := providers.Select("", "")
	require.NoError(t, err)
	require.Equal(t, "primary", sel.ProviderID)
	require.Equal(t, "gemini", sel.AIProvider)
	require.Equal(t, "gemini-2.0-flash", sel.Model)
	_, ok := sel.Driver.(*gemini.Client)
	require.True(t, ok)

	again, err := providers.Select(DefaultRole, "")
	require.NoError(t, err)
	require.Same(t, sel.Driver, again.Driver)
}

func TestSelectByDeclaredRole(t *testing.T) {
	providers := NewProviders(Config{
		Providers: map[string]ProviderInstanceConfig{
			"oa": {
				Enabled:     true,
				AIProvider:  "openai",
				BaseURL:     "https://example.test/v1",
				Roles:       []string{"Interpreter"},
				Models:      map[string]string{"default": "gpt-4o-mini", "interpreter": "gpt-4o"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "o-key"}},
			},
			"other": geminiProvider("g-key"),
		},
	})

	sel, err := providers.Select("interpreter", "")
	require.NoError(t, err)
	require.Equal(t, "oa", sel.ProviderID)
	require.Equal(t, "gpt-4o", sel.Model)
	require.Equal(t, "https://example.test/v1", sel.BaseURL)
	_, ok := sel.Driver.(*openai.Client)
	require.True(t, ok)
}

func TestSelectModelOverride(t *testing.T) {
	providers := NewProviders(Config{Providers: map[string]ProviderInstanceConfig{"p": geminiProvider("k")}})

	sel, err := providers.Select("", "gemini-2.5-pro")
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-pro", sel.Model)
}

func TestSelectPrefersHighestPriorityCredential(t *testing.T) {
	cfg := geminiProvider("")
	cfg.Credentials = []CredentialConfig{
		{Enabled: true, Label: "low", APIKey: "k-low"},
		{Enabled: false, Label: "off", APIKey: "k-off", Priority: 20},
		{Enabled: true, Label: "keyless", Priority: 15},
		{Enabled: true, Label: "high", APIKey: "k-high", Priority: 10},
		{Enabled: true, Label: "tie", APIKey: "k-tie", Priority: 10},
	}

	cred, err := credential("p", cfg)
	require.NoError(t, err)
	require.Equal(t, "high", cred.Label)
}

func TestSelectErrors(t *testing.T) {
	cases := map[string]struct {
		cfg  Config
		want string
	}{
		"no providers": {cfg: Config{}, want: "no enabled ai providers"},
		"disabled routed provider": {
			cfg: Config{
				Providers: map[string]ProviderInstanceConfig{"p": {AIProvider: "openai"}},
				Routing:   map[string]string{DefaultRole: "p"},
			},
			want: "disabled",
		},
		"unknown default provider": {
			cfg:  Config{DefaultProvider: "missing", Providers: map[string]ProviderInstanceConfig{}},
			want: "not configured",
		},
		"ambiguous": {
			cfg: Config{Providers: map[string]ProviderInstanceConfig{
				"a": geminiProvider("k1"),
				"b": geminiProvider("k2"),
			}},
			want: "ailink.routing.interpreter",
		},
		"missing api key": {
			cfg:  Config{Providers: map[string]ProviderInstanceConfig{"p": geminiProvider("")}},
			want: "no enabled credential",
		},
		"missing model": {
			cfg: Config{Providers: map[string]ProviderInstanceConfig{"p": {
				Enabled:     true,
				AIProvider:  "gemini",
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}},
			}}},
			want: "no model",
		},
		"unsupported provider type": {
			cfg: Config{Providers: map[string]ProviderInstanceConfig{"p": {
				Enabled:     true,
				AIProvider:  "xai",
				Models:      map[string]string{"default": "m"},
				Credentials: []CredentialConfig{{Enabled: true, APIKey: "k"}},
			}}},
			want: "unsupported ai_provider",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewProviders(tc.cfg).Select("", "")
			require.ErrorContains(t, err, tc.want)
		})
	}

	var nilProviders *Providers
	_, err := nilProviders.Select("", "")
	require.Error(t, err)
}
