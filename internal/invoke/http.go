// internal/invoke/http.go
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pipeline-composer/internal/common/errors"
)

// HTTPDispatcher posts activity calls to the owning service over HTTP.
// Each task queue maps to a service base URL; the activity name selects
// the endpoint.
type HTTPDispatcher struct {
	client   *http.Client
	services map[string]string
}

type taskRequest struct {
	Activity string        `json:"activity"`
	Args     []interface{} `json:"args"`
}

type taskResponse struct {
	Result interface{} `json:"result"`
	Error  string      `json:"error,omitempty"`
}

// NewHTTPDispatcher builds a dispatcher from a task-queue to base-URL map.
func NewHTTPDispatcher(services map[string]string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		client:   &http.Client{Timeout: timeout},
		services: services,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, ref Reference, args []interface{}) (interface{}, error) {
	baseURL, ok := d.services[ref.TaskQueue]
	if !ok {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("no service registered for task queue %q", ref.TaskQueue), false)
	}

	body, err := json.Marshal(taskRequest{Activity: ref.Activity, Args: args})
	if err != nil {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("failed to encode arguments: %w", err), false)
	}

	url := fmt.Sprintf("%s/tasks/%s", baseURL, ref.Activity)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewActivityInvocationError(ref.ActivityID, err, false)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.NewActivityInvocationError(ref.ActivityID, err, true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewActivityInvocationError(ref.ActivityID, err, true)
	}

	if resp.StatusCode >= 500 {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("service returned %d: %s", resp.StatusCode, respBody), true)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("service returned %d: %s", resp.StatusCode, respBody), false)
	}

	var tr taskResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("failed to decode response: %w", err), false)
	}
	if tr.Error != "" {
		return nil, errors.NewActivityInvocationError(ref.ActivityID,
			fmt.Errorf("activity reported error: %s", tr.Error), false)
	}

	return tr.Result, nil
}
