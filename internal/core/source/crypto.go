package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Hamhunter23/verifi-data-agent/internal/core"
)

const (
	coinGeckoBaseURL     = "https://api.coingecko.com/api/v3"
	coinGeckoSource      = "CoinGecko API (https://www.coingecko.com/en/api)"
	coinGeckoSummary     = "Data fetched live from CoinGecko API. Accuracy subject to API provider."
	defaultQuoteCurrency = "usd"
)

// CryptoSource fetches live spot prices from the CoinGecko simple price API.
type CryptoSource struct {
	Client          *http.Client
	Limiter         *rate.Limiter
	BaseURL         string
	DefaultCurrency string
}

func (s *CryptoSource) Kind() core.EntityKind { return core.KindCryptoPrice }

func (s *CryptoSource) Describe() string { return coinGeckoSource }

// Fetch returns the price of identifier quoted in the requested currency.
func (s *CryptoSource) Fetch(ctx context.Context, identifier string, params map[string]string) (*core.Record, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	currency := strings.ToLower(param(params, "currency", "vs_currency"))
	if currency == "" {
		currency = s.defaultCurrency()
	}

	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return nil, core.UpstreamError(err, "CoinGecko")
		}
	}

	endpoint := s.baseURL() + "/simple/price?" + url.Values{
		"ids":           {identifier},
		"vs_currencies": {currency},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, core.UpstreamError(err, "CoinGecko")
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, core.UpstreamError(err, "CoinGecko")
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if wait := retryAfter(resp); wait > 0 {
			return nil, core.Errorf(core.ErrUpstreamUnavailable, "CoinGecko rate limited the request (retry after %s)", wait.Round(time.Second))
		}
		return nil, core.Errorf(core.ErrUpstreamUnavailable, "CoinGecko rate limited the request")
	case resp.StatusCode == http.StatusNotFound:
		return nil, notFound("no price found for asset %q", identifier)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &core.Error{
			Kind:    core.ErrUpstreamUnavailable,
			Message: fmt.Sprintf("CoinGecko returned HTTP %d", resp.StatusCode),
			Cause:   errors.New(strings.TrimSpace(string(body))),
		}
	}

	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, core.UpstreamError(fmt.Errorf("decode price response: %w", err), "CoinGecko")
	}

	quotes, ok := prices[identifier]
	if !ok {
		return nil, notFound("no price found for asset %q", identifier)
	}
	price, ok := quotes[currency]
	if !ok {
		return nil, notFound("no %s price found for asset %q", strings.ToUpper(currency), identifier)
	}

	payload := map[string]any{
		"price":    price,
		"currency": currency,
		"asset_id": identifier,
	}
	proof, err := ProofHash(payload)
	if err != nil {
		return nil, err
	}

	return &core.Record{
		Payload:   payload,
		Source:    coinGeckoSource,
		Summary:   coinGeckoSummary,
		ProofHash: proof,
	}, nil
}

func (s *CryptoSource) baseURL() string {
	if s != nil && strings.TrimSpace(s.BaseURL) != "" {
		return strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	}
	return coinGeckoBaseURL
}

func (s *CryptoSource) defaultCurrency() string {
	if s != nil && strings.TrimSpace(s.DefaultCurrency) != "" {
		return strings.ToLower(strings.TrimSpace(s.DefaultCurrency))
	}
	return defaultQuoteCurrency
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil || resp.Header == nil {
		return 0
	}
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := time.ParseDuration(value + "s"); err == nil {
		return seconds
	}
	if parsed, err := http.ParseTime(value); err == nil {
		return time.Until(parsed)
	}
	return 0
}
