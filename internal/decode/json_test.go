package decode

import (
	"testing"

	"github.com/listforge/listforge/internal/model"
)

func TestDecodeJSON_ArrayAtDataPath(t *testing.T) {
	body := []byte(`{"results":[{"ip":"1.1.1.1","tag":"a"},{"ip":"2.2.2.2","tag":"b"}],"next":"page2"}`)
	res, err := DecodeJSON(body, "results", nil, "next", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0]["ip"] != "1.1.1.1" || res.Records[1]["tag"] != "b" {
		t.Fatalf("unexpected records: %+v", res.Records)
	}
	if res.NextPage != "page2" {
		t.Fatalf("expected next page cursor, got %q", res.NextPage)
	}
}

func TestDecodeJSON_BareObjectBecomesOneRow(t *testing.T) {
	body := []byte(`{"item":{"id":"1","name":"only one"}}`)
	res, err := DecodeJSON(body, "item", nil, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	if res.Records[0]["name"] != "only one" {
		t.Fatalf("unexpected record: %+v", res.Records[0])
	}
}

func TestDecodeJSON_SelectedColumnsProjects(t *testing.T) {
	body := []byte(`[{"a":"1","b":"2","c":"3"}]`)
	selected := []model.SelectedColumn{{Name: "a", Type: model.ColText}, {Name: "c", Type: model.ColText}}
	res, err := DecodeJSON(body, "", selected, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := res.Records[0]
	if _, ok := rec["b"]; ok {
		t.Fatalf("unselected column leaked through: %+v", rec)
	}
	if rec["a"] != "1" || rec["c"] != "3" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDecodeJSON_NestedValuesScalarized(t *testing.T) {
	body := []byte(`[{"meta":{"x":1},"tags":["a","b"],"n":null,"num":3.5}]`)
	res, err := DecodeJSON(body, "", nil, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := res.Records[0]
	if rec["meta"] != `{"x":1}` {
		t.Fatalf("expected re-encoded object, got %q", rec["meta"])
	}
	if rec["tags"] != `["a","b"]` {
		t.Fatalf("expected re-encoded array, got %q", rec["tags"])
	}
	if rec["n"] != "" {
		t.Fatalf("expected null to scalarize to empty string, got %q", rec["n"])
	}
	if rec["num"] != "3.5" {
		t.Fatalf("expected number scalarized, got %q", rec["num"])
	}
}

func TestDecodeJSON_InvalidJSON(t *testing.T) {
	if _, err := DecodeJSON([]byte(`not json`), "", nil, "", false); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestDecodeJSON_DataPathNotArrayOrObject(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"data":"a string"}`), "data", nil, "", false); err == nil {
		t.Fatal("expected error when data path resolves to a scalar")
	}
}

func TestDecodeJSON_NestedArrayAutoDetection(t *testing.T) {
	body := []byte(`[{"meta":{"count":2},"results":[{"ip":"1.1.1.1"},{"ip":"2.2.2.2"}]}]`)
	res, err := DecodeJSON(body, "", nil, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected nested array to be auto-detected, got %d records: %+v", len(res.Records), res.Records)
	}
	if res.Records[0]["ip"] != "1.1.1.1" {
		t.Fatalf("unexpected record: %+v", res.Records[0])
	}
}

func TestDecodeJSON_NestedArrayAutoDetectionDisabled(t *testing.T) {
	body := []byte(`[{"meta":{"count":2},"results":[{"ip":"1.1.1.1"},{"ip":"2.2.2.2"}]}]`)
	res, err := DecodeJSON(body, "", nil, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected auto-detection disabled to keep the top-level array as-is, got %d records", len(res.Records))
	}
}

func TestDecodeJSON_NestedArrayAutoDetectionAmbiguousSkipped(t *testing.T) {
	body := []byte(`[{"a":[{"x":"1"}],"b":[{"y":"2"}]}]`)
	res, err := DecodeJSON(body, "", nil, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected ambiguous (two candidate) nested arrays to leave the top level alone, got %d records", len(res.Records))
	}
}
