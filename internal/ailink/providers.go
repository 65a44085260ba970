package ailink

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver/gemini"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink/driver/openai"
)

// Providers picks the language model that backs the interpreter. Drivers are
// built on first use and reused for the life of the process.
type Providers struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]driver.Driver
}

// Selection is the provider, model and driver chosen for an interpretation call.
type Selection struct {
	ProviderID string
	AIProvider string
	Credential string
	Model      string
	BaseURL    string
	Driver     driver.Driver
}

func NewProviders(cfg Config) *Providers {
	return &Providers{cfg: cfg}
}

// Select resolves role (DefaultRole when blank) to a ready driver. A non-empty
// model overrides the provider's configured models.
func (p *Providers) Select(role, model string) (*Selection, error) {
	if p == nil {
		return nil, fmt.Errorf("no ai providers configured")
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		role = DefaultRole
	}

	id, providerCfg, err := p.provider(role)
	if err != nil {
		return nil, err
	}
	cred, err := credential(id, providerCfg)
	if err != nil {
		return nil, err
	}
	chosen := strings.TrimSpace(model)
	if chosen == "" {
		chosen = modelFor(providerCfg, role)
	}
	if chosen == "" {
		return nil, fmt.Errorf("provider %q has no model for role %q", id, role)
	}

	drv, err := p.driver(id, providerCfg, cred)
	if err != nil {
		return nil, err
	}

	sel := &Selection{
		ProviderID: id,
		AIProvider: strings.ToLower(strings.TrimSpace(providerCfg.AIProvider)),
		Credential: cred.Label,
		Model:      chosen,
		BaseURL:    strings.TrimSpace(providerCfg.BaseURL),
		Driver:     drv,
	}
	if client, ok := drv.(*openai.Client); ok {
		sel.BaseURL = client.BaseURL
	}
	return sel, nil
}

// provider applies routing, then declared roles, then default_provider, then
// the single enabled provider.
func (p *Providers) provider(role string) (string, ProviderInstanceConfig, error) {
	if id := strings.TrimSpace(p.cfg.Routing[role]); id != "" {
		return p.enabled(id, "routing for "+role)
	}

	ids := make([]string, 0, len(p.cfg.Providers))
	for id := range p.cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		providerCfg := p.cfg.Providers[id]
		if providerCfg.Enabled && hasRole(providerCfg.Roles, role) {
			return id, providerCfg, nil
		}
	}

	if id := strings.TrimSpace(p.cfg.DefaultProvider); id != "" {
		return p.enabled(id, "default_provider")
	}

	var found []string
	for _, id := range ids {
		if p.cfg.Providers[id].Enabled {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled ai providers configured")
	case 1:
		return found[0], p.cfg.Providers[found[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("%d providers enabled (%s); set ailink.routing.%s or ailink.default_provider",
			len(found), strings.Join(found, ", "), role)
	}
}

func (p *Providers) enabled(id, via string) (string, ProviderInstanceConfig, error) {
	providerCfg, ok := p.cfg.Providers[id]
	if !ok {
		return "", ProviderInstanceConfig{}, fmt.Errorf("provider %q named by %s is not configured", id, via)
	}
	if !providerCfg.Enabled {
		return "", ProviderInstanceConfig{}, fmt.Errorf("provider %q named by %s is disabled", id, via)
	}
	return id, providerCfg, nil
}

// credential returns the highest priority enabled credential that carries a
// key. Ties keep configuration order.
func credential(id string, providerCfg ProviderInstanceConfig) (CredentialConfig, error) {
	var (
		best  CredentialConfig
		found bool
	)
	for _, cred := range providerCfg.Credentials {
		if !cred.Enabled || strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		if !found || cred.Priority > best.Priority {
			best, found = cred, true
		}
	}
	if !found {
		return CredentialConfig{}, fmt.Errorf("provider %q has no enabled credential with an api key", id)
	}
	return best, nil
}

func modelFor(providerCfg ProviderInstanceConfig, role string) string {
	if m := strings.TrimSpace(providerCfg.Models[role]); m != "" {
		return m
	}
	return strings.TrimSpace(providerCfg.Models["default"])
}

func (p *Providers) driver(id string, providerCfg ProviderInstanceConfig, cred CredentialConfig) (driver.Driver, error) {
	key := id + "/" + cred.Label

	p.mu.Lock()
	defer p.mu.Unlock()
	if drv, ok := p.drivers[key]; ok {
		return drv, nil
	}

	var drv driver.Driver
	switch kind := strings.ToLower(strings.TrimSpace(providerCfg.AIProvider)); kind {
	case "openai":
		client := openai.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = p.cfg.DefaultTimeout
		drv = client
	case "gemini":
		client := gemini.NewClient(providerCfg.BaseURL, cred.APIKey)
		client.Timeout = p.cfg.DefaultTimeout
		drv = client
	default:
		return nil, fmt.Errorf("provider %q: unsupported ai_provider %q (want openai or gemini)", id, kind)
	}

	if p.drivers == nil {
		p.drivers = make(map[string]driver.Driver)
	}
	p.drivers[key] = drv
	return drv, nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(strings.TrimSpace(r), role) {
			return true
		}
	}
	return false
}
