package sheet

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Column names of the prospects table. The column set is fixed by the
// declared schema, not invented per write.
const (
	ColKey         = "key"
	ColID          = "id"
	ColFirstName   = "first_name"
	ColLastName    = "last_name"
	ColEmail       = "email"
	ColCompanyName = "company_name"
	ColTitle       = "title"
	ColLinkedInURL = "linkedin_url"
	ColDiscovery   = "discovery"
	ColEnrichment  = "enrichment"
	ColDraft       = "draft"
	ColPhase       = "phase"
	ColLastError   = "last_error"
	ColCreatedAt   = "created_at"
	ColUpdatedAt   = "updated_at"
)

// ProspectFields flattens a prospect into tabular column values. Structured
// payloads are JSON-encoded so every column holds a scalar.
func ProspectFields(p *model.Prospect) (map[string]any, error) {
	fields := map[string]any{
		ColKey:         p.NaturalKey,
		ColID:          p.ID,
		ColFirstName:   p.FirstName,
		ColLastName:    p.LastName,
		ColEmail:       p.Email,
		ColCompanyName: p.CompanyName,
		ColTitle:       p.Title,
		ColLinkedInURL: p.LinkedInURL,
		ColPhase:       p.Phase,
	}
	if !p.CreatedAt.IsZero() {
		fields[ColCreatedAt] = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !p.UpdatedAt.IsZero() {
		fields[ColUpdatedAt] = p.UpdatedAt.UTC().Format(time.RFC3339)
	}

	for col, payload := range map[string]map[string]any{
		ColDiscovery:  p.Discovery,
		ColEnrichment: p.Enrichment,
		ColDraft:      p.Draft,
	} {
		if payload == nil {
			continue
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrapf(err, "sheet: encode %s payload", col)
		}
		fields[col] = string(encoded)
	}

	// An empty string clears a stale error on merge, which is how a
	// requeued prospect sheds its failure record.
	fields[ColLastError] = ""
	if p.LastError != nil {
		encoded, err := json.Marshal(p.LastError)
		if err != nil {
			return nil, eris.Wrap(err, "sheet: encode last_error")
		}
		fields[ColLastError] = string(encoded)
	}
	return fields, nil
}

// RowProspect reconstructs a prospect from a stored row.
func RowProspect(row *Row) (*model.Prospect, error) {
	if row == nil {
		return nil, eris.New("sheet: nil row")
	}
	p := &model.Prospect{
		NaturalKey:  row.Key,
		ID:          str(row.Fields[ColID]),
		FirstName:   str(row.Fields[ColFirstName]),
		LastName:    str(row.Fields[ColLastName]),
		Email:       str(row.Fields[ColEmail]),
		CompanyName: str(row.Fields[ColCompanyName]),
		Title:       str(row.Fields[ColTitle]),
		LinkedInURL: str(row.Fields[ColLinkedInURL]),
		Phase:       str(row.Fields[ColPhase]),
	}

	for col, target := range map[string]*map[string]any{
		ColDiscovery:  &p.Discovery,
		ColEnrichment: &p.Enrichment,
		ColDraft:      &p.Draft,
	} {
		raw := str(row.Fields[col])
		if raw == "" {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, eris.Wrapf(err, "sheet: decode %s payload for %s", col, row.Key)
		}
		*target = payload
	}

	if raw := str(row.Fields[ColLastError]); raw != "" {
		var reason model.FailureReason
		if err := json.Unmarshal([]byte(raw), &reason); err != nil {
			return nil, eris.Wrapf(err, "sheet: decode last_error for %s", row.Key)
		}
		p.LastError = &reason
	}

	if raw := str(row.Fields[ColCreatedAt]); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.CreatedAt = t
		}
	}
	if raw := str(row.Fields[ColUpdatedAt]); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			p.UpdatedAt = t
		}
	} else {
		p.UpdatedAt = row.UpdatedAt
	}
	return p, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
