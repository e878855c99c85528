// pkg/catalog/catalog.go
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk activity catalog shared by the workers and the
// registry-updater tool.
type Document struct {
	Version  string             `yaml:"version,omitempty" json:"version,omitempty"`
	Services map[string]Service `yaml:"services" json:"services"`
}

type Service struct {
	TaskQueue  string              `yaml:"task_queue,omitempty" json:"task_queue,omitempty"`
	Activities map[string]Activity `yaml:"activities" json:"activities"`
}

type Activity struct {
	Description    string      `yaml:"description,omitempty" json:"description,omitempty"`
	TaskQueue      string      `yaml:"task_queue,omitempty" json:"task_queue,omitempty"`
	TimeoutSeconds int         `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	RetryAttempts  int         `yaml:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	Parameters     []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// documentSchema constrains the raw YAML shape before it is decoded into
// typed structs, so a malformed catalog fails with field-level messages.
const documentSchema = `{
	"type": "object",
	"required": ["services"],
	"properties": {
		"version": {"type": "string"},
		"services": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"required": ["activities"],
				"properties": {
					"task_queue": {"type": "string"},
					"activities": {
						"type": "object",
						"additionalProperties": {
							"type": "object",
							"properties": {
								"description": {"type": "string"},
								"task_queue": {"type": "string"},
								"timeout_seconds": {"type": "integer", "minimum": 1},
								"retry_attempts": {"type": "integer", "minimum": 0},
								"parameters": {
									"type": "array",
									"items": {
										"type": "object",
										"required": ["name"],
										"properties": {
											"name": {"type": "string", "minLength": 1},
											"type": {"type": "string"},
											"required": {"type": "boolean"}
										}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`

// Load reads and validates a catalog document from a YAML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates raw YAML against the document schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}

	if err := validateRaw(raw); err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	return &doc, nil
}

func validateRaw(raw interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewGoLoader(normalizeKeys(raw)),
	)
	if err != nil {
		return fmt.Errorf("catalog schema validation failed: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		sort.Strings(msgs)
		return fmt.Errorf("invalid catalog document: %v", msgs)
	}

	return nil
}

// normalizeKeys converts yaml map[interface{}]interface{} values into
// map[string]interface{} so the JSON schema loader accepts them.
func normalizeKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[fmt.Sprintf("%v", k)] = normalizeKeys(item)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, item := range val {
			m[k] = normalizeKeys(item)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeKeys(item)
		}
		return out
	default:
		return v
	}
}

// Save writes the document back to disk as YAML.
func Save(doc *Document, path string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}

// ServiceNames returns the service names in sorted order.
func (d *Document) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
