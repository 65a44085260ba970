package cmd

import (
	"context"
	"net/http"

	"github.com/fulmenhq/gofulmen/logging"
	"golang.org/x/time/rate"

	"github.com/Hamhunter23/verifi-data-agent/internal/agent"
	"github.com/Hamhunter23/verifi-data-agent/internal/ailink"
	"github.com/Hamhunter23/verifi-data-agent/internal/config"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/engine"
	"github.com/Hamhunter23/verifi-data-agent/internal/core/source"
)

// runtimeAgent is an agent plus the resources it holds open.
type runtimeAgent struct {
	*agent.Agent
	Registry *engine.Registry
	close    func() error
}

// Close releases the record cache.
func (r *runtimeAgent) Close() error {
	if r == nil || r.close == nil {
		return nil
	}
	return r.close()
}

// buildAgent wires the configured sources, cache, quota and interpreter into an agent.
func buildAgent(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*runtimeAgent, error) {
	cache, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closeCache := func() error {
		if cache == nil {
			return nil
		}
		return cache.Close()
	}

	sources, err := buildSources(cfg)
	if err != nil {
		_ = closeCache()
		return nil, err
	}
	if cache != nil {
		policy := source.CachePolicy{TTL: cfg.Cache.TTL}
		for i, src := range sources {
			sources[i] = source.WithCache(src, cache, policy)
		}
	}

	registry, err := engine.NewRegistry(sources...)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	interp, err := ailink.NewInterpreter(cfg.AILink, cfg.Interpreter.Role, cfg.Interpreter.Model, cfg.Interpreter.Timeout)
	if err != nil {
		_ = closeCache()
		return nil, err
	}
	interp.Logger = logger

	a := &agent.Agent{
		Name:        cfg.Agent.Name,
		Interpreter: interp,
		Dispatcher: &engine.Dispatcher{
			Registry:       registry,
			HandlerTimeout: cfg.Dispatch.HandlerTimeout,
			Logger:         logger,
		},
		Quota:   engine.NewQuotaGuard(cfg.Quota.Threshold, cfg.Quota.Window),
		Catalog: registry,
		Logger:  logger,
	}

	return &runtimeAgent{Agent: a, Registry: registry, close: closeCache}, nil
}

func buildSources(cfg *config.Config) ([]source.Source, error) {
	crypto := &source.CryptoSource{
		Client:          &http.Client{Timeout: cfg.Crypto.Timeout},
		BaseURL:         cfg.Crypto.BaseURL,
		DefaultCurrency: cfg.Crypto.DefaultCurrency,
	}
	if rps := cfg.Crypto.RequestsPerSecond; rps > 0 {
		crypto.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	education, err := source.NewEducationSource()
	if err != nil {
		return nil, err
	}
	supply, err := source.NewSupplyChainSource()
	if err != nil {
		return nil, err
	}
	carbon, err := source.NewCarbonSource()
	if err != nil {
		return nil, err
	}
	reputation, err := source.NewReputationSource()
	if err != nil {
		return nil, err
	}

	return []source.Source{crypto, education, supply, carbon, reputation}, nil
}
