package decode

import (
	"encoding/json"
	"fmt"

	"github.com/listforge/listforge/internal/model"
)

// JSONResult is one decoded page: its flattened records plus, if
// pagination is configured, the next-page cursor extracted from
// JSONNextPagePath.
type JSONResult struct {
	Records  []model.Record
	NextPage string
}

// DecodeJSON parses body, navigates to dataPath (the array of items to
// import), and flattens each item to a model.Record. When selected is
// non-empty, only those keys are projected; otherwise every scalar field
// found at the top level of each item is kept — nested objects/arrays
// inside an item are JSON-re-encoded into the cell value rather than
// silently dropped, since the original importer preserved them as raw
// JSON strings for manual inspection.
//
// When dataPath is empty and autoCreateColumns is true, a top-level
// sequence whose first element is a map containing exactly one
// sequence-of-maps value is auto-descended into, per §4.3's
// nested-array auto-detection.
func DecodeJSON(body []byte, dataPath string, selected []model.SelectedColumn, nextPagePath string, autoCreateColumns bool) (JSONResult, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return JSONResult{}, fmt.Errorf("decode: invalid json: %w", err)
	}

	data := root
	if dataPath != "" {
		v, err := Navigate(root, dataPath)
		if err != nil {
			return JSONResult{}, fmt.Errorf("decode: json_data_path: %w", err)
		}
		data = v
	} else if autoCreateColumns {
		if nested, ok := detectNestedArray(data); ok {
			data = nested
		}
	}

	items, ok := data.([]any)
	if !ok {
		// A single object at the data path is treated as a one-row result,
		// matching the original importer's leniency for APIs that return a
		// bare object instead of a one-element array.
		if obj, ok := data.(map[string]any); ok {
			items = []any{obj}
		} else {
			return JSONResult{}, fmt.Errorf("decode: json_data_path did not resolve to an array or object")
		}
	}

	records := make([]model.Record, 0, len(items))
	for _, item := range items {
		rec, err := flattenItem(item, selected)
		if err != nil {
			return JSONResult{}, err
		}
		records = append(records, rec)
	}

	var next string
	if nextPagePath != "" {
		if v, err := Navigate(root, nextPagePath); err == nil {
			if s, ok := v.(string); ok {
				next = s
			}
		}
	}

	return JSONResult{Records: records, NextPage: next}, nil
}

// detectNestedArray implements §4.3's nested-array auto-detection: if data
// is itself a sequence whose first element is a map containing exactly one
// key whose value is a sequence-of-maps, that nested sequence is what the
// caller actually wanted to import (common for APIs that wrap their rows
// in an envelope object, e.g. {"meta": {...}, "results": [...]}).
func detectNestedArray(data any) ([]any, bool) {
	arr, ok := data.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}
	first, ok := arr[0].(map[string]any)
	if !ok {
		return nil, false
	}
	var nested []any
	found := 0
	for _, v := range first {
		candidate, ok := v.([]any)
		if !ok || len(candidate) == 0 {
			continue
		}
		if _, ok := candidate[0].(map[string]any); !ok {
			continue
		}
		found++
		nested = candidate
	}
	if found != 1 {
		return nil, false
	}
	return nested, true
}

func flattenItem(item any, selected []model.SelectedColumn) (model.Record, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode: item is not a json object")
	}
	rec := model.Record{}
	if len(selected) > 0 {
		for _, sc := range selected {
			v, ok := obj[sc.Name]
			if !ok {
				continue
			}
			rec[sc.Name] = scalarize(v)
		}
		return rec, nil
	}
	for k, v := range obj {
		rec[k] = scalarize(v)
	}
	return rec, nil
}

func scalarize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
