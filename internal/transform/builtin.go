// internal/transform/builtin.go
package transform

import (
	"fmt"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/definition"
)

const defaultTopK = 10

// Passthrough forwards a list as the positional arguments unchanged and
// wraps any other value as a single argument.
func Passthrough(data interface{}, _ definition.Step, _ map[string]interface{}, _ string) ([]interface{}, error) {
	if list, ok := asList(data); ok {
		return list, nil
	}
	return []interface{}{data}, nil
}

// Documents extracts a document list for activities taking one positional
// documents argument. Accepts a raw list, a map carrying the list under
// "documents" or "retrieved_documents", or a single document which gets
// wrapped.
func Documents(data interface{}, _ definition.Step, _ map[string]interface{}, _ string) ([]interface{}, error) {
	if m, ok := data.(map[string]interface{}); ok {
		if docs, ok := asList(m["documents"]); ok {
			return []interface{}{docs}, nil
		}
		if docs, ok := asList(m["retrieved_documents"]); ok {
			return []interface{}{docs}, nil
		}
		// A map without a document list is treated as a single document.
		return []interface{}{[]interface{}{data}}, nil
	}

	if docs, ok := asList(data); ok {
		return []interface{}{docs}, nil
	}

	return []interface{}{[]interface{}{data}}, nil
}

// ChunkedDocsWithCollection prepares (chunked_documents, collection)
// arguments. A list of lists passes through unchanged; a flat chunk list
// is wrapped in one outer list. Deeper or mixed nesting is rejected.
func ChunkedDocsWithCollection(data interface{}, _ definition.Step, workflowInput map[string]interface{}, defaultCollection string) ([]interface{}, error) {
	collection := collectionFor(workflowInput, defaultCollection)

	list, ok := asList(data)
	if !ok {
		return nil, errors.NewTransformShapeMismatchError(TransformChunkedDocs,
			fmt.Sprintf("expected a list of chunks, got %s", shapeOf(data)))
	}

	if len(list) == 0 {
		return []interface{}{list, collection}, nil
	}

	nested := 0
	for _, elem := range list {
		if isList(elem) {
			nested++
		}
	}

	switch nested {
	case 0:
		// Flat chunk list for a single document.
		return []interface{}{[]interface{}{list}, collection}, nil
	case len(list):
		// Already one chunk list per document. Anything nested deeper
		// means an upstream step produced the wrong shape.
		for i, elem := range list {
			inner, _ := asList(elem)
			for _, chunk := range inner {
				if isList(chunk) {
					return nil, errors.NewTransformShapeMismatchError(TransformChunkedDocs,
						fmt.Sprintf("element %d is nested more than one level deep", i))
				}
			}
		}
		return []interface{}{list, collection}, nil
	default:
		return nil, errors.NewTransformShapeMismatchError(TransformChunkedDocs,
			fmt.Sprintf("mixed nesting: %d of %d elements are lists", nested, len(list)))
	}
}

// QueryWithCollection prepares (query, collection, top_k) arguments for
// search activities. The query may arrive as a string, a map with a
// "query" key, or a non-empty list whose first element is used. A map
// input may carry its own "collection", which wins over the workflow
// input and the default.
func QueryWithCollection(data interface{}, _ definition.Step, workflowInput map[string]interface{}, defaultCollection string) ([]interface{}, error) {
	collection := collectionFor(workflowInput, defaultCollection)
	topK := defaultTopK

	var query string
	switch v := data.(type) {
	case string:
		query = v
	case map[string]interface{}:
		q, ok := v["query"].(string)
		if !ok || q == "" {
			return nil, errors.NewTransformShapeMismatchError(TransformQueryCollection,
				"map input has no string 'query' field")
		}
		query = q
		if c, ok := v["collection"].(string); ok && c != "" {
			collection = c
		}
		if k, ok := intValue(v["top_k"]); ok && k > 0 {
			topK = k
		}
	default:
		list, ok := asList(data)
		if !ok {
			return nil, errors.NewTransformShapeMismatchError(TransformQueryCollection,
				fmt.Sprintf("cannot derive a query from %s", shapeOf(data)))
		}
		if len(list) == 0 {
			return nil, errors.NewTransformShapeMismatchError(TransformQueryCollection,
				"cannot derive a query from an empty list")
		}
		query = fmt.Sprintf("%v", list[0])
	}

	return []interface{}{query, collection, topK}, nil
}

// intValue accepts the numeric types JSON and YAML decoding produce.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
