package schema

import (
	"fmt"
	"strings"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Record is a payload that passed validation: required fields confirmed
// present and correctly typed, string normalizers applied, unknown fields
// dropped.
type Record map[string]any

// Validate checks a raw external payload against the declared schema. It is
// a pure function of its inputs: no side effects, never panics. On failure
// the envelope carries VALIDATION_ERROR with per-field details; callers skip
// the record and continue their batch.
func (r *Registry) Validate(raw map[string]any, schemaID string) model.Envelope[Record] {
	s, ok := r.Get(schemaID)
	if !ok {
		return model.Failf[Record](model.CodeValidationError, "unknown schema %q", schemaID)
	}
	if raw == nil {
		return model.Fail[Record](model.CodeValidationError, "payload is empty").
			WithDetails(map[string]any{"schema": schemaID})
	}

	out := make(Record, len(s.Fields))
	problems := make(map[string]any)

	for _, f := range s.Fields {
		val, present := raw[f.Name]
		if !present || val == nil {
			if f.Required {
				problems[f.Name] = "required field missing"
			}
			continue
		}

		coerced, err := coerce(val, f.Type)
		if err != nil {
			problems[f.Name] = err.Error()
			continue
		}

		if str, isStr := coerced.(string); isStr {
			normalized, err := normalize(str, f)
			if err != nil {
				problems[f.Name] = err.Error()
				continue
			}
			if normalized == "" && f.Required {
				problems[f.Name] = "required field empty"
				continue
			}
			coerced = normalized
		}

		out[f.Name] = coerced
	}

	if len(problems) > 0 {
		return model.Failf[Record](model.CodeValidationError, "%d invalid field(s) for schema %s", len(problems), schemaID).
			WithDetails(map[string]any{"schema": schemaID, "fields": problems})
	}
	return model.Ok(out)
}

func coerce(val any, t FieldType) (any, error) {
	switch t {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", val)
		}
		return strings.TrimSpace(s), nil
	case TypeNumber:
		switch v := val.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
		return nil, fmt.Errorf("expected number, got %T", val)
	case TypeBool:
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", val)
		}
		return b, nil
	case TypeObject:
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", val)
		}
		return m, nil
	case TypeList:
		l, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list, got %T", val)
		}
		return l, nil
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}

func normalize(s string, f Field) (string, error) {
	switch f.Normalize {
	case NormEmail:
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" && !f.Required {
			return "", nil
		}
		if !model.ValidEmail(s) {
			return "", fmt.Errorf("invalid email format")
		}
		return s, nil
	case NormDomain:
		s = strings.TrimPrefix(s, "http://")
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "www.")
		return strings.TrimSuffix(s, "/"), nil
	case NormURL:
		if s != "" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			return "https://" + s, nil
		}
		return s, nil
	}
	return s, nil
}
