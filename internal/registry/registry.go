// internal/registry/registry.go
package registry

import (
	"fmt"
	"sync"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/pkg/catalog"
)

const (
	DefaultTimeoutSeconds = 300
	DefaultRetryAttempts  = 3
)

// ActivityMetadata describes one remotely invokable activity.
type ActivityMetadata struct {
	Service        string
	Activity       string
	Description    string
	TaskQueue      string
	TimeoutSeconds int
	RetryAttempts  int
	Parameters     []catalog.Parameter
}

// ID returns the qualified activity identifier.
func (m ActivityMetadata) ID() string {
	return m.Service + "." + m.Activity
}

// Registry holds activity metadata keyed by qualified id. Safe for
// concurrent use.
type Registry struct {
	mu          sync.RWMutex
	activities  map[string]ActivityMetadata
	initialized bool
	logger      logger.Logger
}

func New(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Registry{
		activities: make(map[string]ActivityMetadata),
		logger:     log,
	}
}

// Register adds one activity, applying defaults for missing fields.
// Registering the same qualified id again overwrites the previous entry.
func (r *Registry) Register(meta ActivityMetadata) (ActivityMetadata, error) {
	if meta.Service == "" || meta.Activity == "" {
		return ActivityMetadata{}, fmt.Errorf("service and activity names are required")
	}

	applyDefaults(&meta)

	r.mu.Lock()
	defer r.mu.Unlock()

	id := meta.ID()
	if _, exists := r.activities[id]; exists {
		r.logger.Debug("overwriting registered activity", map[string]interface{}{
			"activity_id": id,
		})
	}
	r.activities[id] = meta

	return meta, nil
}

func applyDefaults(meta *ActivityMetadata) {
	if meta.TaskQueue == "" {
		meta.TaskQueue = meta.Service + "-queue"
	}
	if meta.TimeoutSeconds <= 0 {
		meta.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if meta.RetryAttempts <= 0 {
		meta.RetryAttempts = DefaultRetryAttempts
	}
}

// InitFromFile populates the registry from a catalog file exactly once.
// Subsequent calls are no-ops until Reset.
func (r *Registry) InitFromFile(path string) error {
	r.mu.RLock()
	done := r.initialized
	r.mu.RUnlock()
	if done {
		return nil
	}

	doc, err := catalog.Load(path)
	if err != nil {
		return errors.NewRegistryLoadFailedError(path, err)
	}

	return r.InitFromDocument(doc)
}

// InitFromDocument populates the registry from an in-memory catalog
// document exactly once.
func (r *Registry) InitFromDocument(doc *catalog.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return nil
	}

	count := 0
	for serviceName, svc := range doc.Services {
		for activityName, act := range svc.Activities {
			meta := ActivityMetadata{
				Service:        serviceName,
				Activity:       activityName,
				Description:    act.Description,
				TaskQueue:      act.TaskQueue,
				TimeoutSeconds: act.TimeoutSeconds,
				RetryAttempts:  act.RetryAttempts,
				Parameters:     act.Parameters,
			}
			if meta.TaskQueue == "" {
				meta.TaskQueue = svc.TaskQueue
			}
			applyDefaults(&meta)
			r.activities[meta.ID()] = meta
			count++
		}
	}

	r.initialized = true
	r.logger.Info("activity registry initialized", map[string]interface{}{
		"activities": count,
		"services":   len(doc.Services),
	})

	return nil
}

// Get looks up an activity by its qualified id.
func (r *Registry) Get(activityID string) (ActivityMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.activities[activityID]
	if !ok {
		return ActivityMetadata{}, errors.NewUnknownActivityError(activityID)
	}
	return meta, nil
}

// Export returns the registry as a nested catalog document, suitable for
// composition discovery and for persisting back to disk.
func (r *Registry) Export() *catalog.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := &catalog.Document{Services: make(map[string]catalog.Service)}
	for _, meta := range r.activities {
		svc, ok := doc.Services[meta.Service]
		if !ok {
			svc = catalog.Service{Activities: make(map[string]catalog.Activity)}
		}
		svc.Activities[meta.Activity] = catalog.Activity{
			Description:    meta.Description,
			TaskQueue:      meta.TaskQueue,
			TimeoutSeconds: meta.TimeoutSeconds,
			RetryAttempts:  meta.RetryAttempts,
			Parameters:     meta.Parameters,
		}
		doc.Services[meta.Service] = svc
	}
	return doc
}

// Len reports how many activities are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.activities)
}

// Initialized reports whether a catalog has been loaded.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Reset clears all entries and the initialized flag. Intended for tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = make(map[string]ActivityMetadata)
	r.initialized = false
}
