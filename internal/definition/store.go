// internal/definition/store.go
package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
)

// file is the on-disk shape: a document holding a list of workflows.
type file struct {
	Workflows []Definition `yaml:"workflows"`
}

// Store caches pipeline definitions loaded from YAML files and persists
// newly composed ones. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	definitions map[string]Definition
	savePath    string
	initialized bool
	logger      logger.Logger
}

// NewStore creates a store that saves generated definitions under savePath.
func NewStore(savePath string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{
		definitions: make(map[string]Definition),
		savePath:    savePath,
		logger:      log,
	}
}

// LoadDir reads every .yaml/.yml file in the given directories exactly
// once. Each file must parse and every definition must validate, otherwise
// the whole load fails. A definition name appearing twice is an error.
func (s *Store) LoadDir(dirs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	loaded := make(map[string]Definition)
	sources := make(map[string]string)

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read definitions dir %s: %w", dir, err)
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(entry.Name()))
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(dir, name)
			defs, err := parseFile(path)
			if err != nil {
				return err
			}
			for _, def := range defs {
				if prev, dup := sources[def.Name]; dup {
					return errors.NewDefinitionInvalidError(
						fmt.Sprintf("definition %q defined in both %s and %s", def.Name, prev, path))
				}
				loaded[def.Name] = def
				sources[def.Name] = path
			}
		}
	}

	s.definitions = loaded
	s.initialized = true
	s.logger.Info("workflow definitions loaded", map[string]interface{}{
		"count": len(loaded),
		"dirs":  dirs,
	})

	return nil
}

func parseFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewDefinitionInvalidError(
			fmt.Sprintf("failed to parse %s: %v", path, err))
	}

	for i := range f.Workflows {
		if err := f.Workflows[i].Validate(); err != nil {
			return nil, err
		}
	}

	return f.Workflows, nil
}

// Get returns a definition by name.
func (s *Store) Get(name string) (Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.definitions[name]
	if !ok {
		return Definition{}, errors.NewDefinitionNotFoundError(name)
	}
	return def, nil
}

// Names returns all known definition names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Put validates and caches a definition without persisting it.
func (s *Store) Put(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions[def.Name] = def
	return nil
}

// Save validates, persists, and caches a definition. The file is written
// as a one-element workflows list so saved output stays loadable by
// LoadDir. Returns the path written.
func (s *Store) Save(def Definition) (string, error) {
	if err := def.Validate(); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(file{Workflows: []Definition{def}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal definition %q: %w", def.Name, err)
	}

	if err := os.MkdirAll(s.savePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create save dir %s: %w", s.savePath, err)
	}

	path := filepath.Join(s.savePath, def.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write definition %s: %w", path, err)
	}

	s.mu.Lock()
	s.definitions[def.Name] = def
	s.mu.Unlock()

	s.logger.Info("workflow definition saved", map[string]interface{}{
		"workflow": def.Name,
		"path":     path,
	})

	return path, nil
}

// Initialized reports whether LoadDir has completed.
func (s *Store) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Reset clears the cache and the initialized flag. Intended for tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.definitions = make(map[string]Definition)
	s.initialized = false
}
