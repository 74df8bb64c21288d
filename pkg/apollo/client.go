// Package apollo provides a client for the Apollo people-search scraper API
// used for prospect discovery.
package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Apollo scraper operations.
type Client interface {
	// Search runs a people search and returns the raw prospect records.
	Search(ctx context.Context, query SearchQuery) ([]map[string]any, error)
}

// SearchQuery describes the target audience for a discovery run.
type SearchQuery struct {
	CompanySize  string   `json:"company_size,omitempty"`
	Industry     string   `json:"industry,omitempty"`
	Location     string   `json:"location,omitempty"`
	JobTitles    []string `json:"job_titles,omitempty"`
	TotalRecords int      `json:"total_records"`
}

// maxRecords is the scraper's per-run record ceiling.
const maxRecords = 50000

// APIError is returned for non-2xx responses from the scraper API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apollo: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the Apollo client.
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
	apiToken string
	actorID  string
	baseURL  string
	http     *http.Client
}

// NewClient creates a new Apollo scraper client.
func NewClient(apiToken, actorID string, opts ...Option) Client {
	c := &httpClient{
		apiToken: apiToken,
		actorID:  actorID,
		baseURL:  "https://api.apify.com/v2",
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query SearchQuery) ([]map[string]any, error) {
	total := query.TotalRecords
	if total <= 0 {
		total = 10
	}
	if total > maxRecords {
		total = maxRecords
	}

	input := map[string]any{
		"url":          BuildSearchURL(query),
		"totalRecords": total,
		"fileName":     "Apollo Prospects",
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: marshal actor input")
	}

	reqURL := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items?token=%s",
		c.baseURL, url.PathEscape(c.actorID), url.QueryEscape(c.apiToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "apollo: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, eris.Wrap(err, "apollo: unmarshal dataset items")
	}
	return records, nil
}

// BuildSearchURL renders the Apollo people-search URL for a query using the
// documented parameter names.
func BuildSearchURL(query SearchQuery) string {
	base := "https://app.apollo.io/#/people"

	var params []string
	if query.CompanySize != "" {
		params = append(params, "organizationNumEmployeesRanges[]="+url.QueryEscape(query.CompanySize))
	}
	if query.Industry != "" {
		params = append(params, "qOrganizationKeywordTags[]="+url.QueryEscape(query.Industry))
	}
	if query.Location != "" {
		params = append(params, "personLocations[]="+url.QueryEscape(query.Location))
	}
	for _, title := range query.JobTitles {
		params = append(params, "personTitles[]="+url.QueryEscape(title))
	}

	if len(params) == 0 {
		return base
	}
	return base + "?" + strings.Join(params, "&")
}
