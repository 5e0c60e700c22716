package decode

import (
	"testing"

	"github.com/listforge/listforge/internal/model"
)

func TestDecodeCSV_IPListFastPath(t *testing.T) {
	body := []byte("1.1.1.1\n8.8.8.8\n10.0.0.0/8\n")
	records, err := DecodeCSV(body, model.CSVConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0]["Column1"] != "1.1.1.1" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestDecodeCSV_IPListFastPathHonorsColumnNames(t *testing.T) {
	body := []byte("1.1.1.1\n8.8.8.8\n")
	records, err := DecodeCSV(body, model.CSVConfig{ColumnNames: []string{"ip"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["ip"] != "1.1.1.1" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestDecodeCSV_WithHeader(t *testing.T) {
	body := []byte("name,age\nalice,30\nbob,40\n")
	records, err := DecodeCSV(body, model.CSVConfig{HasHeader: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0]["name"] != "alice" || records[1]["age"] != "40" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestDecodeCSV_ExplicitColumnNames(t *testing.T) {
	body := []byte("alice,30\nbob,40\n")
	records, err := DecodeCSV(body, model.CSVConfig{ColumnNames: []string{"name", "age"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["name"] != "alice" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestDecodeCSV_ColumnsToImport(t *testing.T) {
	body := []byte("a,b,c\n1,2,3\n")
	records, err := DecodeCSV(body, model.CSVConfig{HasHeader: true, ColumnsToImport: []int{0, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := records[0]
	if _, ok := rec["b"]; ok {
		t.Fatalf("excluded column leaked through: %+v", rec)
	}
	if rec["a"] != "1" || rec["c"] != "3" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestDecodeCSV_CustomSeparator(t *testing.T) {
	body := []byte("a;b\n1;2\n")
	records, err := DecodeCSV(body, model.CSVConfig{HasHeader: true, Separator: ";"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["a"] != "1" || records[0]["b"] != "2" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestDecodeCSV_DefaultColumnNames(t *testing.T) {
	body := []byte("x,y,z\n")
	records, err := DecodeCSV(body, model.CSVConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records[0]["Column1"] != "x" || records[0]["Column3"] != "z" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
}

func TestDecodeCSV_Empty(t *testing.T) {
	records, err := DecodeCSV([]byte(""), model.CSVConfig{HasHeader: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
