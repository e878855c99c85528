// internal/composer/models.go
package composer

import (
	"pipeline-composer/internal/definition"
)

// Composition statuses.
const (
	StatusComplete   = "COMPLETE"
	StatusIncomplete = "INCOMPLETE"
	StatusFailed     = "FAILED"
)

// Request describes the workflow a caller wants composed.
type Request struct {
	WorkflowName        string   `json:"workflow_name"`
	WorkflowDescription string   `json:"workflow_description"`
	Requirements        []string `json:"requirements"`
}

// DiscoveredActivity is one catalog entry flattened for analysis.
type DiscoveredActivity struct {
	ID             string   `json:"id"`
	Service        string   `json:"service"`
	Activity       string   `json:"activity"`
	Description    string   `json:"description"`
	TaskQueue      string   `json:"task_queue"`
	ParameterNames []string `json:"parameter_names"`
}

// DiscoveryReport is the outcome of the discovery stage.
type DiscoveryReport struct {
	Activities []DiscoveredActivity `json:"activities"`
	Services   []string             `json:"services"`
}

// AnalysisResult maps requirements to candidate activity ids.
type AnalysisResult struct {
	WorkflowName string   `json:"workflow_name"`
	ActivityIDs  []string `json:"activity_ids"`
	Method       string   `json:"method"`
}

// ValidationResult is the outcome of checking the analysis against the
// discovery report.
type ValidationResult struct {
	IsComplete bool     `json:"is_complete"`
	Missing    []string `json:"missing,omitempty"`
}

// CompositionResult is the final outcome of a composition request.
type CompositionResult struct {
	WorkflowName   string                 `json:"workflow_name"`
	Status         string                 `json:"status"`
	Discovery      *DiscoveryReport       `json:"discovery,omitempty"`
	Analysis       *AnalysisResult        `json:"analysis,omitempty"`
	Validation     *ValidationResult      `json:"validation,omitempty"`
	Definition     *definition.Definition `json:"definition,omitempty"`
	DefinitionPath string                 `json:"definition_path,omitempty"`
	Error          string                 `json:"error,omitempty"`
}
