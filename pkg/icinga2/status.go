package icinga2

import (
	"context"
	"encoding/json"
	"fmt"
)

// StatusEntry is one component's status and statistics block.
type StatusEntry struct {
	Name     string         `json:"name"`
	Status   map[string]any `json:"status"`
	Perfdata []any          `json:"perfdata,omitempty"`
}

// QueryStatus retrieves status information and statistics for the daemon.
// statusType narrows the output to one component, e.g. "IcingaApplication";
// leave it empty for the complete status.
func (c *Client) QueryStatus(ctx context.Context, statusType string) ([]StatusEntry, error) {
	path := "status"
	if statusType != "" {
		path += "/" + normalizeName(statusType)
	}

	results, err := c.call(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var entry StatusEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode status entry: %w", err))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Template is a configuration template as reported by the templates
// endpoint.
type Template struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Location map[string]any `json:"location,omitempty"`
}

// ListTemplates queries the configuration templates of one object type,
// optionally narrowed by a filter over the "tmpl" variable.
func (c *Client) ListTemplates(ctx context.Context, objectType, filter string) ([]Template, error) {
	if objectType == "" {
		return nil, newValidationError("object_type", "object type must not be empty")
	}

	payload := map[string]any{}
	if filter != "" {
		payload["filter"] = filter
	}

	results, err := c.call(ctx, "GET", "templates/"+pluralTypeName(objectType), payload)
	if err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var tmpl Template
		if err := json.Unmarshal(raw, &tmpl); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode template: %w", err))
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// Variable is a global constant as reported by the variables endpoint.
type Variable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// ListVariables queries the global variables of the daemon.
func (c *Client) ListVariables(ctx context.Context) ([]Variable, error) {
	results, err := c.call(ctx, "GET", "variables", nil)
	if err != nil {
		return nil, err
	}

	variables := make([]Variable, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var variable Variable
		if err := json.Unmarshal(raw, &variable); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode variable: %w", err))
		}
		variables = append(variables, variable)
	}
	return variables, nil
}

// TypeDescription describes a configuration object type.
type TypeDescription struct {
	Name          string         `json:"name"`
	PluralName    string         `json:"plural_name,omitempty"`
	Abstract      bool           `json:"abstract"`
	BaseType      string         `json:"base,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
	PrototypeKeys []string       `json:"prototype_keys,omitempty"`
}

// ListTypes retrieves the configuration object types known to the daemon,
// optionally narrowed to a single type name.
func (c *Client) ListTypes(ctx context.Context, objectType string) ([]TypeDescription, error) {
	path := "types"
	if objectType != "" {
		path += "/" + normalizeName(objectType)
	}

	results, err := c.call(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	types := make([]TypeDescription, 0, len(results))
	for _, raw := range results {
		if err := requireFields(raw, "name"); err != nil {
			return nil, err
		}
		var desc TypeDescription
		if err := json.Unmarshal(raw, &desc); err != nil {
			return nil, newMalformedResponseError(0, fmt.Errorf("decode type description: %w", err))
		}
		types = append(types, desc)
	}
	return types, nil
}
