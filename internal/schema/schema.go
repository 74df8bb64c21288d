// Package schema declares the named, versioned record definitions consumed
// by the record validator. Schemas are configuration: the embedded defaults
// can be replaced wholesale from a YAML file.
package schema

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Schema identifiers for the built-in record definitions.
const (
	DiscoveryProspect = "discovery_prospect"
	EnrichmentRecord  = "enrichment_record"
	DraftRecord       = "draft_record"
)

// FieldType enumerates the value types a schema field may declare.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeObject FieldType = "object"
	TypeList   FieldType = "list"
)

// Normalizers applied to string fields after type checking.
const (
	NormEmail  = "email"
	NormDomain = "domain"
	NormURL    = "url"
)

// Field declares one column of a record schema.
type Field struct {
	Name      string    `yaml:"name"`
	Type      FieldType `yaml:"type"`
	Required  bool      `yaml:"required"`
	Normalize string    `yaml:"normalize,omitempty"`
}

// Schema is a named, versioned record definition.
type Schema struct {
	ID      string  `yaml:"id"`
	Version int     `yaml:"version"`
	Fields  []Field `yaml:"fields"`
}

// Registry holds the declared schemas, keyed by id.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry builds a registry from the given schemas.
func NewRegistry(schemas ...Schema) *Registry {
	r := &Registry{schemas: make(map[string]Schema, len(schemas))}
	for _, s := range schemas {
		r.schemas[s.ID] = s
	}
	return r
}

// Get returns the schema with the given id.
func (r *Registry) Get(id string) (Schema, bool) {
	s, ok := r.schemas[id]
	return s, ok
}

// LoadFile reads a schema set from a YAML file, replacing the defaults.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read %s", path)
	}
	var doc struct {
		Schemas []Schema `yaml:"schemas"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "schema: parse %s", path)
	}
	if len(doc.Schemas) == 0 {
		return nil, eris.Errorf("schema: %s declares no schemas", path)
	}
	return NewRegistry(doc.Schemas...), nil
}

// Defaults returns the built-in schema set: the discovery prospect record,
// the enrichment record, and the drafted message record.
func Defaults() *Registry {
	return NewRegistry(
		Schema{
			ID:      DiscoveryProspect,
			Version: 1,
			Fields: []Field{
				{Name: "first_name", Type: TypeString, Required: true},
				{Name: "last_name", Type: TypeString, Required: true},
				{Name: "email", Type: TypeString, Required: true, Normalize: NormEmail},
				{Name: "company_name", Type: TypeString, Required: true},
				{Name: "title", Type: TypeString},
				{Name: "linkedin_url", Type: TypeString, Normalize: NormURL},
				{Name: "company_domain", Type: TypeString, Normalize: NormDomain},
				{Name: "company_industry", Type: TypeString},
				{Name: "company_size", Type: TypeString},
				{Name: "location", Type: TypeString},
			},
		},
		Schema{
			ID:      EnrichmentRecord,
			Version: 1,
			Fields: []Field{
				{Name: "company_description", Type: TypeString, Required: true},
				{Name: "industry", Type: TypeString},
				{Name: "employee_count", Type: TypeNumber},
				{Name: "technologies", Type: TypeList},
				{Name: "website", Type: TypeString, Normalize: NormURL},
				{Name: "headquarters", Type: TypeString},
				{Name: "founded_year", Type: TypeNumber},
			},
		},
		Schema{
			ID:      DraftRecord,
			Version: 1,
			Fields: []Field{
				{Name: "subject", Type: TypeString, Required: true},
				{Name: "body", Type: TypeString, Required: true},
				{Name: "personalization", Type: TypeObject},
			},
		},
	)
}
