// Package decode is the Format Decoder (C3): turning a fetched payload
// (JSON or CSV bytes) into a flat sequence of string-keyed records, ready
// for the Schema Resolver.
package decode

import (
	"fmt"
	"strconv"
	"strings"
)

// Navigate walks a dotted path through a decoded JSON value (as produced
// by encoding/json's any-typed decoding): a path segment that parses as a
// non-negative integer indexes into a []any, otherwise it looks up a key
// in a map[string]any. This hand-rolled walk, rather than a JSONPath
// library, is what §4.3's json_data_path actually needs: a plain dotted
// path with optional numeric array indices, nothing more — no filters,
// wildcards or JSONPath script expressions, nothing the examples' JSON
// libraries offer a closer match for.
func Navigate(root any, path string) (any, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := cur.([]any)
			if !ok {
				return nil, fmt.Errorf("decode: path segment %q: not an array", seg)
			}
			if idx < 0 || idx >= len(arr) {
				return nil, fmt.Errorf("decode: path segment %q: index out of range", seg)
			}
			cur = arr[idx]
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("decode: path segment %q: not an object", seg)
		}
		v, ok := m[seg]
		if !ok {
			return nil, fmt.Errorf("decode: path segment %q: key not found", seg)
		}
		cur = v
	}
	return cur, nil
}
