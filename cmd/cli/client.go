package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iho/lendlog/internal/adapter/http/dto"
)

// apiClient talks to the lendlog HTTP API as one user.
type apiClient struct {
	http    *http.Client
	baseURL string
	userID  string
	token   string
}

func newAPIClient(baseURL, userID, token string, timeout time.Duration) *apiClient {
	return &apiClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		token:   token,
	}
}

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e dto.ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
			if e.Message != "" {
				msg += ": " + e.Message
			}
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *apiClient) ledgers(ctx context.Context) ([]dto.LedgerResponse, error) {
	var out []dto.LedgerResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/ledgers", nil, &out)
	return out, err
}

func (c *apiClient) balances(ctx context.Context, ledgerID string) (*dto.LedgerBalancesResponse, error) {
	var out dto.LedgerBalancesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledgers/"+ledgerID+"/balances", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) portfolio(ctx context.Context, currency string) (*dto.PortfolioResponse, error) {
	path := "/api/v1/portfolio"
	if currency != "" {
		path += "?currency=" + currency
	}
	var out dto.PortfolioResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) rates(ctx context.Context) (*dto.RatesResponse, error) {
	var out dto.RatesResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/rates", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) transition(ctx context.Context, entryID, action string) (*dto.EntryResponse, error) {
	var out dto.EntryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/entries/"+entryID+"/"+action, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) addEntry(ctx context.Context, req dto.CreateEntryRequest) (*dto.EntryResponse, error) {
	var out dto.EntryResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/entries", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
