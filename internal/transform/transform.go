// internal/transform/transform.go
package transform

import (
	"fmt"
	"reflect"
	"sort"

	"pipeline-composer/internal/definition"
)

// Func adapts the value flowing into a step to the positional argument
// list its activity expects. workflowInput is the original pipeline input,
// available for out-of-band values like the collection name.
type Func func(data interface{}, step definition.Step, workflowInput map[string]interface{}, defaultCollection string) ([]interface{}, error)

const (
	TransformPassthrough     = "passthrough"
	TransformDocuments       = "documents"
	TransformChunkedDocs     = "chunked_docs_with_collection"
	TransformQueryCollection = "query_with_collection"
)

var builtins = map[string]Func{
	TransformPassthrough:     Passthrough,
	TransformDocuments:       Documents,
	TransformChunkedDocs:     ChunkedDocsWithCollection,
	TransformQueryCollection: QueryWithCollection,
}

// Get resolves a transform by name. Unknown or empty names fall back to
// passthrough so a definition never fails to resolve at this layer.
func Get(name string) Func {
	if fn, ok := builtins[name]; ok {
		return fn
	}
	return Passthrough
}

// Known reports whether name resolves to a registered transform.
func Known(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Names returns the registered transform names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// asList converts any slice or array value into []interface{}. The second
// return is false for non-list values.
func asList(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if list, ok := v.([]interface{}); ok {
		return list, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isList(v interface{}) bool {
	_, ok := asList(v)
	return ok
}

// collectionFor picks the target collection from the workflow input,
// falling back to the configured default.
func collectionFor(workflowInput map[string]interface{}, defaultCollection string) string {
	if workflowInput != nil {
		if c, ok := workflowInput["collection"].(string); ok && c != "" {
			return c
		}
	}
	return defaultCollection
}

func shapeOf(v interface{}) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}
