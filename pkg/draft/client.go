// Package draft generates personalized outreach email drafts with the
// Anthropic API.
package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the drafting operations.
type Client interface {
	// Draft generates an email draft for one prospect.
	Draft(ctx context.Context, req Request) (*Draft, error)
}

// Request carries the prospect and company context the prompt is built from.
type Request struct {
	FirstName   string
	LastName    string
	Title       string
	CompanyName string
	Enrichment  map[string]any
}

// Draft is a generated email.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Model   string `json:"model,omitempty"`
}

// Option configures the drafting client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) {
		c.model = model
	}
}

// WithMaxTokens overrides the default output token limit.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		c.maxTokens = n
	}
}

type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// NewClient creates a drafting client backed by the official SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     "claude-sonnet-4-5-20250929",
		maxTokens: 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const systemPrompt = `You write short, specific cold outreach emails for a B2B
research firm. Respond with a single JSON object: {"subject": "...", "body":
"..."}. The subject is under 60 characters. The body is under 120 words,
references one concrete fact about the company, and ends with a low-friction
question. No placeholders, no markdown.`

func (c *sdkClient) Draft(ctx context.Context, req Request) (*Draft, error) {
	if req.FirstName == "" || req.CompanyName == "" {
		return nil, eris.New("draft: first name and company name are required")
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(buildPrompt(req))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "draft: create message")
	}

	text := collectText(msg)
	if text == "" {
		return nil, eris.New("draft: empty model response")
	}

	d, err := parseDraft(text)
	if err != nil {
		return nil, err
	}
	d.Model = string(msg.Model)

	zap.L().Debug("draft generated",
		zap.String("company", req.CompanyName),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return d, nil
}

// buildPrompt renders the prospect context passed to the model.
func buildPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prospect: %s %s", req.FirstName, req.LastName)
	if req.Title != "" {
		fmt.Fprintf(&b, ", %s", req.Title)
	}
	fmt.Fprintf(&b, "\nCompany: %s\n", req.CompanyName)

	if len(req.Enrichment) > 0 {
		b.WriteString("Company research:\n")
		if enrichJSON, err := json.MarshalIndent(req.Enrichment, "", "  "); err == nil {
			b.Write(enrichJSON)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nWrite the email now.")
	return b.String()
}

// collectText concatenates the text blocks of a response.
func collectText(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// parseDraft extracts the JSON draft from model output, tolerating prose or
// code fences around the object.
func parseDraft(text string) (*Draft, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.Errorf("draft: no JSON object in model response: %.80s", text)
	}

	var d Draft
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return nil, eris.Wrap(err, "draft: parse model response")
	}
	if d.Subject == "" || d.Body == "" {
		return nil, eris.New("draft: model response missing subject or body")
	}
	return &d, nil
}
