// Package rates talks to the external exchange-rate provider and keeps
// an in-process snapshot of its quote table fresh.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storefront/stores/internal/infrastructure/config"
)

// QuoteTable is one successful fetch from the provider: all quotes
// relative to Base, plus the provider's timestamp.
type QuoteTable struct {
	Base      string
	Quotes    map[string]decimal.Decimal
	FetchedAt time.Time
}

// apiResponse mirrors the exchangerate.host /live payload. Quote keys
// concatenate source and target ("USDEUR").
type apiResponse struct {
	Success   bool               `json:"success"`
	Timestamp int64              `json:"timestamp"`
	Source    string             `json:"source"`
	Quotes    map[string]float64 `json:"quotes"`
	Error     *apiError          `json:"error,omitempty"`
}

type apiError struct {
	Code int    `json:"code"`
	Info string `json:"info"`
}

// Client fetches live quote tables over HTTP.
type Client struct {
	url        string
	apiKey     string
	base       string
	httpClient *http.Client
}

// NewClient creates a Client from the rates configuration.
func NewClient(cfg *config.RatesConfig) *Client {
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		base:   cfg.BaseCurrency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchQuotes retrieves the full quote table for the configured base
// currency. The call is bounded by both ctx and the client timeout.
func (c *Client) FetchQuotes(ctx context.Context) (*QuoteTable, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid rate source url: %w", err)
	}
	q := u.Query()
	q.Set("source", c.base)
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach rate source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if !payload.Success {
		if payload.Error != nil {
			return nil, fmt.Errorf("rate source error %d: %s", payload.Error.Code, payload.Error.Info)
		}
		return nil, fmt.Errorf("rate source reported failure")
	}
	if len(payload.Quotes) == 0 {
		return nil, fmt.Errorf("rate source returned no quotes")
	}

	base := payload.Source
	if base == "" {
		base = c.base
	}

	quotes := make(map[string]decimal.Decimal, len(payload.Quotes))
	for key, rate := range payload.Quotes {
		code := strings.TrimPrefix(key, base)
		if code == "" || code == key {
			continue
		}
		quotes[code] = decimal.NewFromFloat(rate)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("rate source quotes did not match base %s", base)
	}

	fetchedAt := time.Now().UTC()
	if payload.Timestamp > 0 {
		fetchedAt = time.Unix(payload.Timestamp, 0).UTC()
	}

	return &QuoteTable{Base: base, Quotes: quotes, FetchedAt: fetchedAt}, nil
}
