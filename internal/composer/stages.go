// internal/composer/stages.go
package composer

import (
	"sort"
	"strings"

	"pipeline-composer/internal/definition"
	"pipeline-composer/internal/transform"
	"pipeline-composer/pkg/catalog"
)

// Introspector exposes the known activity catalog. The live registry
// satisfies this.
type Introspector interface {
	Export() *catalog.Document
}

// keywordRule maps a requirement keyword to the activity that fulfils it.
// Rule order decides the step order when one requirement matches several
// keywords.
type keywordRule struct {
	keyword    string
	activityID string
}

var keywordRules = []keywordRule{
	{"validate", "utility_service.validate_inputs_activity"},
	{"process", "ai_service.generate_recommendations_activity"},
	{"store", "storage_service.store_results_activity"},
	{"notification", "notification_service.send_notification_activity"},
	{"search", "retriever_service.semantic_search_activity"},
	{"embed", "embedding_service.generate_embeddings_activity"},
	{"format", "utility_service.format_response_activity"},
}

// discover flattens the catalog into a deterministic report.
func discover(source Introspector) *DiscoveryReport {
	doc := source.Export()

	report := &DiscoveryReport{}
	for _, serviceName := range doc.ServiceNames() {
		svc := doc.Services[serviceName]
		report.Services = append(report.Services, serviceName)

		activityNames := make([]string, 0, len(svc.Activities))
		for name := range svc.Activities {
			activityNames = append(activityNames, name)
		}
		sort.Strings(activityNames)

		for _, activityName := range activityNames {
			act := svc.Activities[activityName]
			params := make([]string, 0, len(act.Parameters))
			for _, p := range act.Parameters {
				params = append(params, p.Name)
			}
			report.Activities = append(report.Activities, DiscoveredActivity{
				ID:             serviceName + "." + activityName,
				Service:        serviceName,
				Activity:       activityName,
				Description:    act.Description,
				TaskQueue:      act.TaskQueue,
				ParameterNames: params,
			})
		}
	}

	return report
}

// analyze maps requirement phrases onto activity ids by keyword lookup.
// Requirement order and rule order fix the step order; duplicates keep
// their first occurrence.
func analyze(req Request) *AnalysisResult {
	var ids []string
	seen := make(map[string]bool)

	for _, requirement := range req.Requirements {
		lower := strings.ToLower(requirement)
		for _, rule := range keywordRules {
			if !strings.Contains(lower, rule.keyword) {
				continue
			}
			if seen[rule.activityID] {
				continue
			}
			seen[rule.activityID] = true
			ids = append(ids, rule.activityID)
		}
	}

	return &AnalysisResult{
		WorkflowName: req.WorkflowName,
		ActivityIDs:  ids,
		Method:       "keyword_based",
	}
}

// validate checks every analyzed activity id against the discovery report.
func validate(analysis *AnalysisResult, discovery *DiscoveryReport) *ValidationResult {
	known := make(map[string]bool, len(discovery.Activities))
	for _, act := range discovery.Activities {
		known[act.ID] = true
	}

	var missing []string
	for _, id := range analysis.ActivityIDs {
		if !known[id] {
			missing = append(missing, id)
		}
	}

	return &ValidationResult{
		IsComplete: len(missing) == 0,
		Missing:    missing,
	}
}

// generate builds the pipeline definition for a validated analysis.
func generate(req Request, analysis *AnalysisResult, discovery *DiscoveryReport) definition.Definition {
	byID := make(map[string]DiscoveredActivity, len(discovery.Activities))
	for _, act := range discovery.Activities {
		byID[act.ID] = act
	}

	steps := make([]definition.Step, 0, len(analysis.ActivityIDs))
	for _, id := range analysis.ActivityIDs {
		act := byID[id]
		steps = append(steps, definition.Step{
			ActivityID: id,
			ResultKey:  resultKeyFor(act.Activity),
			Transform:  inferTransform(act.ParameterNames),
		})
	}

	return definition.Definition{
		Name:        req.WorkflowName,
		Description: req.WorkflowDescription,
		Version:     generatedVersion,
		Steps:       steps,
	}
}

// resultKeyFor derives the context key a step writes its result under.
func resultKeyFor(activityName string) string {
	return strings.TrimSuffix(activityName, "_activity") + "_result"
}

// inferTransform picks the input transform from the activity's first
// declared parameter.
func inferTransform(paramNames []string) string {
	if len(paramNames) == 0 {
		return transform.TransformPassthrough
	}

	switch paramNames[0] {
	case "documents":
		return transform.TransformDocuments
	case "query":
		return transform.TransformQueryCollection
	case "chunked_documents":
		return transform.TransformChunkedDocs
	default:
		return transform.TransformPassthrough
	}
}
