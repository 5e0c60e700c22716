package publish

import (
	"strings"
	"testing"

	"github.com/listforge/listforge/internal/model"
)

func sampleList(token string) model.List {
	return model.List{
		ID:                      1,
		PublicCSVEnabled:        true,
		PublicJSONEnabled:       true,
		PublicTXTEnabled:        true,
		PublicTXTColumn:         "ip",
		PublicCSVIncludeHeaders: true,
		PublicAccessToken:       token,
	}
}

func sampleColumnsAndRows() ([]model.Column, []model.Row) {
	cols := []model.Column{
		{Name: "id", Position: 0, Type: model.ColNumber},
		{Name: "ip", Position: 1, Type: model.ColIP},
	}
	rows := []model.Row{
		{RowID: 1, Values: map[string]string{"id": "1", "ip": "1.1.1.1"}},
		{RowID: 2, Values: map[string]string{"id": "2", "ip": "2.2.2.2"}},
	}
	return cols, rows
}

func TestGenerate_ExcludesIDColumnFromCSV(t *testing.T) {
	p := New(t.TempDir())
	list := sampleList("tok-csv")
	cols, rows := sampleColumnsAndRows()
	if err := p.Generate(list, cols, rows); err != nil {
		t.Fatalf("generate: %v", err)
	}
	body, ct, found, err := p.Lookup("csv", "tok-csv")
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	if ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	text := string(body)
	if strings.Contains(text, "id") {
		t.Fatalf("expected id pseudo-column excluded, got %q", text)
	}
	if !strings.Contains(text, "1.1.1.1") {
		t.Fatalf("expected ip values present, got %q", text)
	}
}

func TestGenerate_JSONArtifact(t *testing.T) {
	p := New(t.TempDir())
	list := sampleList("tok-json")
	cols, rows := sampleColumnsAndRows()
	if err := p.Generate(list, cols, rows); err != nil {
		t.Fatalf("generate: %v", err)
	}
	body, ct, found, err := p.Lookup("json", "tok-json")
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	if ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if strings.Contains(string(body), `"id"`) {
		t.Fatalf("expected id excluded from json, got %s", body)
	}
}

func TestGenerate_TXTSingleColumn(t *testing.T) {
	p := New(t.TempDir())
	list := sampleList("tok-txt")
	cols, rows := sampleColumnsAndRows()
	if err := p.Generate(list, cols, rows); err != nil {
		t.Fatalf("generate: %v", err)
	}
	body, _, found, err := p.Lookup("txt", "tok-txt")
	if err != nil || !found {
		t.Fatalf("lookup: found=%v err=%v", found, err)
	}
	want := "1.1.1.1\n2.2.2.2\n"
	if string(body) != want {
		t.Fatalf("got %q want %q", body, want)
	}
}

func TestGenerate_NoopWhenNothingEnabled(t *testing.T) {
	p := New(t.TempDir())
	list := model.List{ID: 1, PublicAccessToken: "unused"}
	cols, rows := sampleColumnsAndRows()
	if err := p.Generate(list, cols, rows); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, found, _ := p.Lookup("csv", "unused"); found {
		t.Fatal("expected no artifact written when nothing is enabled")
	}
}

func TestLookup_NotFound(t *testing.T) {
	p := New(t.TempDir())
	_, _, found, err := p.Lookup("csv", "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
}

func TestRemove_DeletesAllKinds(t *testing.T) {
	p := New(t.TempDir())
	list := sampleList("tok-remove")
	cols, rows := sampleColumnsAndRows()
	if err := p.Generate(list, cols, rows); err != nil {
		t.Fatalf("generate: %v", err)
	}
	p.Remove("tok-remove")
	for _, kind := range []string{"csv", "json", "txt"} {
		if _, _, found, _ := p.Lookup(kind, "tok-remove"); found {
			t.Fatalf("expected %s artifact removed", kind)
		}
	}
}
