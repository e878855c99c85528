// internal/pipeline/context.go
package pipeline

import (
	"pipeline-composer/internal/common/errors"
)

// ExecutionContext accumulates step results under their result keys.
// Keys are write-once: a collision is a definition error, never a silent
// overwrite. The workflow input seeds the context so downstream steps can
// reference it the same way they reference step outputs.
type ExecutionContext struct {
	values map[string]interface{}
}

func NewExecutionContext(workflowInput map[string]interface{}) *ExecutionContext {
	values := make(map[string]interface{}, len(workflowInput)+4)
	for k, v := range workflowInput {
		values[k] = v
	}
	return &ExecutionContext{values: values}
}

// Set writes a step result. Returns an error if the key is already
// present, whether from the workflow input or an earlier step.
func (c *ExecutionContext) Set(key string, value interface{}) error {
	if _, exists := c.values[key]; exists {
		return errors.NewResultKeyConflictError(key)
	}
	c.values[key] = value
	return nil
}

// Get returns the value stored under key.
func (c *ExecutionContext) Get(key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Snapshot returns a shallow copy of all stored values.
func (c *ExecutionContext) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
