// Package errors provides standardized error handling for the pipeline
// execution and composition components, including conversion to BPMN errors
// for the workflow engine boundary.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Pipeline execution errors
	ErrCodeUnknownActivity          ErrorCode = "UNKNOWN_ACTIVITY"
	ErrCodeTransformShapeMismatch   ErrorCode = "TRANSFORM_SHAPE_MISMATCH"
	ErrCodeActivityInvocationFailed ErrorCode = "ACTIVITY_INVOCATION_FAILED"
	ErrCodeResultKeyConflict        ErrorCode = "RESULT_KEY_CONFLICT"

	// Definition errors
	ErrCodeDefinitionInvalid  ErrorCode = "DEFINITION_INVALID"
	ErrCodeDefinitionNotFound ErrorCode = "DEFINITION_NOT_FOUND"

	// Composition errors
	ErrCodeIncompleteComposition  ErrorCode = "INCOMPLETE_COMPOSITION"
	ErrCodeCompositionStageFailed ErrorCode = "COMPOSITION_STAGE_FAILED"

	// Invocation-layer / infrastructure errors
	ErrCodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeoutError         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeRegistryLoadFailed   ErrorCode = "REGISTRY_LOAD_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUnknownActivityError signals that a step references an activity id absent
// from the registry. Hard contract violation, never retried.
func NewUnknownActivityError(activityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownActivity,
		Message:   "Activity not found in registry",
		Details:   fmt.Sprintf("activityId: %s", activityID),
		Retryable: false,
		Metadata:  map[string]interface{}{"activityId": activityID},
		Timestamp: time.Now().UTC(),
	}
}

// NewTransformShapeMismatchError signals that the input to a transform does
// not match any handled shape.
func NewTransformShapeMismatchError(transform, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransformShapeMismatch,
		Message:   fmt.Sprintf("Transform '%s' cannot handle input shape", transform),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewActivityInvocationError wraps a failure reported by the invocation
// boundary. Retryability follows the substrate's classification.
func NewActivityInvocationError(activityID string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeActivityInvocationFailed,
		Message:   fmt.Sprintf("Activity '%s' invocation failed", activityID),
		Details:   err.Error(),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"activityId": activityID},
		Timestamp: time.Now().UTC(),
	}
}

// NewResultKeyConflictError signals a later step reusing an already-written
// result key. This is a definition error, never a silent overwrite.
func NewResultKeyConflictError(resultKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultKeyConflict,
		Message:   "Result key already written by an earlier step",
		Details:   fmt.Sprintf("resultKey: %s", resultKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDefinitionInvalidError signals a malformed workflow definition (zero
// steps, duplicate names, missing fields).
func NewDefinitionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDefinitionInvalid,
		Message:   "Workflow definition is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDefinitionNotFoundError signals a definition name absent from the store.
func NewDefinitionNotFoundError(name string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDefinitionNotFound,
		Message:   "Workflow definition not found",
		Details:   fmt.Sprintf("name: %s", name),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompleteCompositionError signals that the validate stage found required
// activities missing from the discovery report.
func NewIncompleteCompositionError(workflowName string, missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteComposition,
		Message:   fmt.Sprintf("Cannot compose workflow '%s', required activities are missing", workflowName),
		Details:   fmt.Sprintf("missing: %s", strings.Join(missing, ", ")),
		Retryable: false,
		Metadata:  map[string]interface{}{"missingActivities": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewCompositionStageFailedError wraps a stage exception with the stage name
// and requested workflow name for traceability.
func NewCompositionStageFailedError(stage, workflowName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompositionStageFailed,
		Message:   fmt.Sprintf("Composition stage '%s' failed for workflow '%s'", stage, workflowName),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"stage": stage, "workflowName": workflowName},
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalServiceError,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeoutError,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewRegistryLoadFailedError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRegistryLoadFailed,
		Message:   "Activity registry source could not be loaded",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeExternalServiceError,
		ErrCodeActivityInvocationFailed:
		return 3 // Retryable technical errors

	case ErrCodeTimeoutError:
		return 2 // Partial retry for timeouts

	default:
		return 0 // Contract violations: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for the engine.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// AsStandard extracts a *StandardError from err's chain, if present.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable classification.
// Unclassified errors are treated as terminal.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Retryable
	}
	return false
}

// CodeOf returns the error code carried by err, or empty if unclassified.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ""
}
