// internal/workers/composition/compose-workflow/models.go
package composeworkflow

// Input is the job variable payload for a composition request.
type Input struct {
	WorkflowName        string   `json:"workflowName"`
	WorkflowDescription string   `json:"workflowDescription,omitempty"`
	Requirements        []string `json:"requirements"`
}

// Output reports the composition outcome to the process instance.
type Output struct {
	WorkflowName   string   `json:"workflowName"`
	Status         string   `json:"status"`
	StepCount      int      `json:"stepCount"`
	ActivityIDs    []string `json:"activityIds,omitempty"`
	DefinitionPath string   `json:"definitionPath,omitempty"`
	Missing        []string `json:"missing,omitempty"`
}
