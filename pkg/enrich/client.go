// Package enrich provides a client for the company enrichment API that turns
// a discovered prospect's company into research context for drafting.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the enrichment operations.
type Client interface {
	// Enrich looks up a company and returns the raw enrichment record.
	Enrich(ctx context.Context, req Request) (map[string]any, error)
}

// Request identifies the company to enrich.
type Request struct {
	CompanyName   string `json:"company_name"`
	CompanyDomain string `json:"company_domain,omitempty"`
	Email         string `json:"email,omitempty"`
}

// APIError is returned for non-2xx responses from the enrichment API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("enrich: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the enrichment client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new enrichment client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.enrich.sells.dev",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Enrich(ctx context.Context, req Request) (map[string]any, error) {
	if req.CompanyName == "" {
		return nil, eris.New("enrich: company name is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/enrich", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, eris.Wrap(err, "enrich: unmarshal response")
	}
	return record, nil
}
