// Package dispatch pushes drafted prospects into an email sequencing
// platform where the actual sends happen.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the sequencing platform operations.
type Client interface {
	// AddToSequence imports one contact with its draft into a sequence and
	// returns the platform's contact record.
	AddToSequence(ctx context.Context, sequenceID string, contact Contact) (*Result, error)
}

// Contact is the payload imported into a sequence.
type Contact struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	CompanyName string `json:"companyName,omitempty"`
	Title       string `json:"jobTitle,omitempty"`
	Subject     string `json:"customSubject"`
	Body        string `json:"customBody"`
}

// Result is the platform's record of an imported contact.
type Result struct {
	ContactID  string `json:"contactId"`
	SequenceID string `json:"sequenceId"`
	Status     string `json:"status"`
}

// APIError is returned for non-2xx responses from the sequencing API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dispatch: status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Option configures the dispatch client.
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

// NewClient creates a new sequencing platform client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.saleshandy.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
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

func (c *httpClient) AddToSequence(ctx context.Context, sequenceID string, contact Contact) (*Result, error) {
	if sequenceID == "" {
		return nil, eris.New("dispatch: sequence id is required")
	}
	if contact.Email == "" {
		return nil, eris.New("dispatch: contact email is required")
	}

	payload, err := json.Marshal(contact)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: marshal contact")
	}

	reqURL := fmt.Sprintf("%s/v1/sequences/%s/contacts", c.baseURL, url.PathEscape(sequenceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: create request")
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dispatch: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "dispatch: unmarshal response")
	}
	return &result, nil
}
