// internal/workers/pipeline/execute-pipeline/models.go
package executepipeline

// Input is the job variable payload for a pipeline execution request.
type Input struct {
	WorkflowName  string                 `json:"workflowName"`
	WorkflowInput map[string]interface{} `json:"workflowInput"`
	RunID         string                 `json:"runId,omitempty"`
}

// Output summarizes the finished run for the process instance.
type Output struct {
	RunID          string                 `json:"runId"`
	WorkflowName   string                 `json:"workflowName"`
	Status         string                 `json:"status"`
	StepsCompleted int                    `json:"stepsCompleted"`
	FinalResult    interface{}            `json:"finalResult,omitempty"`
	Outputs        map[string]interface{} `json:"outputs,omitempty"`
}
