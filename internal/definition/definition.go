// internal/definition/definition.go
package definition

import (
	"fmt"

	"pipeline-composer/internal/common/errors"
)

// Definition is a declarative pipeline: an ordered list of activity steps.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Steps       []Step `yaml:"activities"`
}

// Step binds one activity invocation inside a pipeline.
type Step struct {
	ActivityID string                 `yaml:"id"`
	ResultKey  string                 `yaml:"result_key"`
	Transform  string                 `yaml:"transform,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters,omitempty"`
}

// Validate checks structural invariants of a definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return errors.NewDefinitionInvalidError("definition name is required")
	}
	if len(d.Steps) == 0 {
		return errors.NewDefinitionInvalidError(
			fmt.Sprintf("definition %q has no activities", d.Name))
	}

	seen := make(map[string]int, len(d.Steps))
	for i, step := range d.Steps {
		if step.ActivityID == "" {
			return errors.NewDefinitionInvalidError(
				fmt.Sprintf("definition %q: step %d has no activity id", d.Name, i))
		}
		if step.ResultKey == "" {
			return errors.NewDefinitionInvalidError(
				fmt.Sprintf("definition %q: step %d (%s) has no result_key", d.Name, i, step.ActivityID))
		}
		if prev, dup := seen[step.ResultKey]; dup {
			return errors.NewDefinitionInvalidError(
				fmt.Sprintf("definition %q: result_key %q used by steps %d and %d",
					d.Name, step.ResultKey, prev, i))
		}
		seen[step.ResultKey] = i
	}

	return nil
}
