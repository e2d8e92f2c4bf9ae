package importer

import (
	"fmt"
	"strings"

	"tmsops/core/tms"
)

// Record is one normalized input row: header names lower-cased and
// trimmed, values trimmed. The reserved "type" field selects the schema.
type Record map[string]string

// Kind returns the entity kind the row targets.
func (r Record) Kind() string {
	return strings.ToLower(r["type"])
}

// Schema binds an entity kind to its creation endpoint and required
// fields. Each kind carries its own URL template; rows supply path
// parameters through named fields.
type Schema struct {
	Kind     string
	Endpoint tms.Endpoint
	// Required lists the row fields that must be present and non-empty.
	Required []string
	// PathParams maps endpoint placeholders to the row field that fills
	// them (e.g. {domainId} from parent_domain_id).
	PathParams map[string]string
}

// Schemas routes the reserved "type" column to the target entity schema.
var Schemas = map[string]Schema{
	"domain": {
		Kind:     "domain",
		Endpoint: tms.CreateDomain,
		Required: []string{"name", "timezone"},
	},
	"subdomain": {
		Kind:       "subdomain",
		Endpoint:   tms.CreateSubDomain,
		Required:   []string{"name", "parent_domain_id"},
		PathParams: map[string]string{"domainId": "parent_domain_id"},
	},
	"client": {
		Kind:     "client",
		Endpoint: tms.CreateClient,
		Required: []string{"name"},
	},
	"business_unit": {
		Kind:     "business_unit",
		Endpoint: tms.CreateBusinessUnit,
		Required: []string{"name", "client_id"},
	},
}

// Validate checks the row against the schema's required fields.
func (s Schema) Validate(r Record) error {
	var missing []string
	for _, field := range s.Required {
		if r[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Params extracts the endpoint path parameters from the row.
func (s Schema) Params(r Record) map[string]string {
	if len(s.PathParams) == 0 {
		return nil
	}
	params := make(map[string]string, len(s.PathParams))
	for placeholder, field := range s.PathParams {
		params[placeholder] = r[field]
	}
	return params
}

// Payload builds the creation body: every row field except the routing
// "type" column.
func (s Schema) Payload(r Record) map[string]string {
	payload := make(map[string]string, len(r))
	for k, v := range r {
		if k == "type" {
			continue
		}
		payload[k] = v
	}
	return payload
}
