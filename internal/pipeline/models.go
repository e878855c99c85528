// internal/pipeline/models.go
package pipeline

// Run statuses reported by the executor.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusRunning   = "RUNNING"
)

// StepOutcome records one executed step.
type StepOutcome struct {
	Index      int         `json:"index"`
	ActivityID string      `json:"activityId"`
	ResultKey  string      `json:"resultKey"`
	Transform  string      `json:"transform,omitempty"`
	DurationMS int64       `json:"durationMs"`
	Result     interface{} `json:"result,omitempty"`
}

// Result summarizes a full pipeline run.
type Result struct {
	PipelineName   string                 `json:"pipelineName"`
	RunID          string                 `json:"runId"`
	Status         string                 `json:"status"`
	StepsCompleted int                    `json:"stepsCompleted"`
	StepOutcomes   []StepOutcome          `json:"stepOutcomes"`
	Outputs        map[string]interface{} `json:"outputs,omitempty"`
	FinalResult    interface{}            `json:"finalResult,omitempty"`
	Error          string                 `json:"error,omitempty"`
}
