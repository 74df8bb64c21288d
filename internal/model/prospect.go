// Package model defines the core entities of the outreach pipeline: the
// prospect record, the uniform result envelope, and batch run outcomes.
package model

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Prospect is the central entity: an outreach target tracked through the
// pipeline's phases. The natural key (normalized email) is unique and
// immutable once assigned; everything else is mutated only by the
// orchestrator during phase execution. Prospects are never deleted:
// failures are terminal-but-visible rows.
type Prospect struct {
	NaturalKey  string         `json:"natural_key"`
	ID          string         `json:"id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Email       string         `json:"email"`
	CompanyName string         `json:"company_name"`
	Title       string         `json:"title,omitempty"`
	LinkedInURL string         `json:"linkedin_url,omitempty"`
	Discovery   map[string]any `json:"discovery,omitempty"`
	Enrichment  map[string]any `json:"enrichment,omitempty"`
	Draft       map[string]any `json:"draft,omitempty"`
	Phase       string         `json:"phase"`
	LastError   *FailureReason `json:"last_error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FailureReason is the structured error persisted on a failed prospect.
type FailureReason struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NaturalKey derives the stable natural key for a contact email:
// NFKC-normalized, trimmed, lowercased. The same contact discovered twice
// always maps to the same key, which is what makes reruns idempotent.
func NaturalKey(email string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(email)))
}
