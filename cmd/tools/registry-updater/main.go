// cmd/tools/registry-updater/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pipeline-composer/pkg/catalog"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)

	// Add command flags
	serviceAdd := addCmd.String("service", "", "Service name (e.g., retriever_service)")
	activityAdd := addCmd.String("activity", "", "Activity name (e.g., semantic_search_activity)")
	description := addCmd.String("description", "", "Description")
	taskQueue := addCmd.String("taskQueue", "", "Task queue (defaults to <service>-queue)")
	timeoutSec := addCmd.Int("timeout", 300, "Timeout in seconds")
	retries := addCmd.Int("retries", 3, "Retry attempts")
	params := addCmd.String("params", "", "Comma-separated parameter names (e.g., query,top_k)")
	addCmd.StringVar(&registryPath, "path", "configs/registry.yaml", "Path to registry file")

	// Update command flags
	serviceUpdate := updateCmd.String("service", "", "Service name")
	activityUpdate := updateCmd.String("activity", "", "Activity name to update")
	field := updateCmd.String("field", "", "Field to update (description, taskQueue, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")
	updateCmd.StringVar(&registryPath, "path", "configs/registry.yaml", "Path to registry file")

	validateCmd.StringVar(&registryPath, "path", "configs/registry.yaml", "Path to registry file")
	listCmd.StringVar(&registryPath, "path", "configs/registry.yaml", "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *serviceAdd == "" || *activityAdd == "" {
			fmt.Println("Error: service and activity are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		activity := catalog.Activity{
			Description:    *description,
			TaskQueue:      *taskQueue,
			TimeoutSeconds: *timeoutSec,
			RetryAttempts:  *retries,
			Parameters:     parseParams(*params),
		}
		if err := addActivity(*serviceAdd, *activityAdd, activity); err != nil {
			fmt.Printf("Error adding activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added activity: %s.%s\n", *serviceAdd, *activityAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *serviceUpdate == "" || *activityUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: service, activity, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*serviceUpdate, *activityUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s.%s, field %s to %s\n", *serviceUpdate, *activityUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "list":
		listCmd.Parse(os.Args[2:])
		if err := listActivities(); err != nil {
			fmt.Printf("Error listing activities: %v\n", err)
			os.Exit(1)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func parseParams(s string) []catalog.Parameter {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	params := make([]catalog.Parameter, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		params = append(params, catalog.Parameter{Name: name, Required: true})
	}
	return params
}

func addActivity(service, activity string, entry catalog.Activity) error {
	doc, err := catalog.Load(registryPath)
	if err != nil {
		// If file doesn't exist, create new registry
		if errors.Is(err, os.ErrNotExist) {
			doc = &catalog.Document{
				Version:  "1.0.0",
				Services: map[string]catalog.Service{},
			}
		} else {
			return fmt.Errorf("failed to load registry: %w", err)
		}
	}

	svc, ok := doc.Services[service]
	if !ok {
		svc = catalog.Service{
			TaskQueue:  fmt.Sprintf("%s-queue", service),
			Activities: map[string]catalog.Activity{},
		}
	}
	if svc.Activities == nil {
		svc.Activities = map[string]catalog.Activity{}
	}

	if _, exists := svc.Activities[activity]; exists {
		return fmt.Errorf("activity %s.%s already exists", service, activity)
	}

	svc.Activities[activity] = entry
	doc.Services[service] = svc

	return saveRegistry(doc, registryPath)
}

func updateActivity(service, activity, field, value string) error {
	doc, err := catalog.Load(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	svc, ok := doc.Services[service]
	if !ok {
		return fmt.Errorf("service %s not found", service)
	}
	entry, ok := svc.Activities[activity]
	if !ok {
		return fmt.Errorf("activity %s.%s not found", service, activity)
	}

	switch field {
	case "description":
		entry.Description = value
	case "taskQueue":
		entry.TaskQueue = value
	case "timeout":
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		entry.TimeoutSeconds = seconds
	case "retries":
		attempts, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		entry.RetryAttempts = attempts
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	svc.Activities[activity] = entry
	doc.Services[service] = svc

	return saveRegistry(doc, registryPath)
}

func validateRegistry() error {
	doc, err := catalog.Load(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	if len(doc.Services) == 0 {
		return fmt.Errorf("registry contains no services")
	}

	total := 0
	for _, name := range doc.ServiceNames() {
		svc := doc.Services[name]
		if len(svc.Activities) == 0 {
			return fmt.Errorf("service %s has no activities", name)
		}
		for activity, entry := range svc.Activities {
			if svc.TaskQueue == "" && entry.TaskQueue == "" {
				return fmt.Errorf("activity %s.%s has no task queue", name, activity)
			}
			total++
		}
	}

	fmt.Printf("Registry validation passed. Found %d activities across %d services.\n", total, len(doc.Services))
	return nil
}

func listActivities() error {
	doc, err := catalog.Load(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	for _, name := range doc.ServiceNames() {
		svc := doc.Services[name]
		fmt.Printf("%s (queue: %s)\n", name, svc.TaskQueue)
		for activity, entry := range svc.Activities {
			fmt.Printf("  %s.%s", name, activity)
			if entry.Description != "" {
				fmt.Printf(" - %s", entry.Description)
			}
			fmt.Println()
		}
	}
	return nil
}

// saveRegistry handles saving the registry to file
func saveRegistry(doc *catalog.Document, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return catalog.Save(doc, path)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new activity to the registry
  update   Update an existing activity's field
  validate Validate the registry file
  list     List registered activities
  help     Show this help message

Examples:
  registry-updater add -service retriever_service -activity semantic_search_activity -description "Semantic search over a vector collection" -params query,top_k
  registry-updater update -service retriever_service -activity semantic_search_activity -field timeout -value 120
  registry-updater validate -path configs/registry.yaml

Use 'registry-updater <command> -h' for more information about a command.`)
}
