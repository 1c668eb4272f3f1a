// Package ratesource fetches conversion rates from an HTTP JSON endpoint.
package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/iho/lendlog/internal/domain"
)

const maxBodyBytes = 1 << 20

// Config configures a Client.
type Config struct {
	URL        string
	Base       domain.Currency
	JSONPath   string // locates the {code: rate} object inside the payload
	Timeout    time.Duration
	MaxRetries uint64
}

// Client implements usecase.RateSource against a JSON rates endpoint such
// as open.er-api.com.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
	cfg    Config
}

// NewClient creates a Client. A nil httpClient uses one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	if cfg.JSONPath == "" {
		cfg.JSONPath = "$.rates"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{http: httpClient, logger: logger, cfg: cfg}
}

// Base returns the currency the fetched rates are relative to.
func (c *Client) Base() domain.Currency {
	return c.cfg.Base
}

// Fetch downloads the current rates. Transient failures (network errors
// and 5xx/429 responses) are retried up to MaxRetries times.
func (c *Client) Fetch(ctx context.Context) (map[domain.Currency]float64, error) {
	var rates map[domain.Currency]float64

	operation := func() error {
		r, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		rates = r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.cfg.MaxRetries),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("wait", wait).Msg("retrying rate fetch")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return rates, nil
}

func (c *Client) fetchOnce(ctx context.Context) (map[domain.Currency]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("cannot GET %s: %s", req.URL.Host, resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	rates, err := c.parse(body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return rates, nil
}

func (c *Client) parse(body []byte) (map[domain.Currency]float64, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decoding rates payload: %w", err)
	}

	val, err := jsonpath.Get(c.cfg.JSONPath, doc)
	if err != nil {
		return nil, fmt.Errorf("locating rates at %q: %w", c.cfg.JSONPath, err)
	}
	// Filter expressions return a list; keep the first match.
	if list, ok := val.([]any); ok && len(list) > 0 {
		val = list[0]
	}

	obj, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rates at %q are not an object", c.cfg.JSONPath)
	}

	rates := make(map[domain.Currency]float64, len(obj))
	for code, raw := range obj {
		rate, ok := raw.(float64)
		if !ok || rate <= 0 {
			continue
		}
		rates[domain.Currency(strings.ToUpper(code))] = rate
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no usable rates at %q", c.cfg.JSONPath)
	}

	return rates, nil
}
