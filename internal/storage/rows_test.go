package storage

import (
	"context"
	"testing"

	"github.com/listforge/listforge/internal/model"
)

func TestReplaceData_WritesAndOrdersRows(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateList(context.Background(), sampleList("rows-a"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cols := []model.Column{
		{Name: "ip", Position: 0, Type: model.ColIP},
		{Name: "tag", Position: 1, Type: model.ColText},
	}
	records := []model.Record{
		{"ip": "1.1.1.1", "tag": "a"},
		{"ip": "2.2.2.2", "tag": "b"},
		{"ip": "3.3.3.3", "tag": "c"},
	}
	if err := s.ReplaceData(context.Background(), id, cols, records); err != nil {
		t.Fatalf("replace data: %v", err)
	}

	rows, err := s.ReadRows(context.Background(), id)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, r := range rows {
		if r.RowID != int64(i+1) {
			t.Fatalf("expected ascending row ids, got %d at index %d", r.RowID, i)
		}
	}
	if rows[1].Values["ip"] != "2.2.2.2" || rows[1].Values["tag"] != "b" {
		t.Fatalf("unexpected row 2 values: %+v", rows[1].Values)
	}
}

func TestReplaceData_IsAtomic_FullReplace(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateList(context.Background(), sampleList("rows-b"), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cols := []model.Column{{Name: "v", Position: 0, Type: model.ColText}}

	if err := s.ReplaceData(context.Background(), id, cols, []model.Record{{"v": "one"}, {"v": "two"}}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := s.ReplaceData(context.Background(), id, cols, []model.Record{{"v": "only"}}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	rows, err := s.ReadRows(context.Background(), id)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the old rows fully truncated, got %d rows", len(rows))
	}
	if rows[0].Values["v"] != "only" {
		t.Fatalf("unexpected surviving row: %+v", rows[0].Values)
	}
}

func TestReplaceData_ReconcilesColumnSet(t *testing.T) {
	s := newTestStore(t)
	initialCols := []model.Column{
		{Name: "a", Position: 0, Type: model.ColText},
		{Name: "b", Position: 1, Type: model.ColText},
	}
	id, err := s.CreateList(context.Background(), sampleList("rows-c"), initialCols)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.ReplaceData(context.Background(), id, initialCols, []model.Record{{"a": "1", "b": "2"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	// Next import drops "b" and introduces "c".
	newCols := []model.Column{
		{Name: "a", Position: 0, Type: model.ColText},
		{Name: "c", Position: 1, Type: model.ColNumber},
	}
	if err := s.ReplaceData(context.Background(), id, newCols, []model.Record{{"a": "1", "c": "99"}}); err != nil {
		t.Fatalf("reconcile replace: %v", err)
	}

	_, cols, err := s.GetList(context.Background(), id)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	names := map[string]model.Column{}
	for _, c := range cols {
		names[c.Name] = c
	}
	if _, ok := names["b"]; ok {
		t.Fatalf("expected column b dropped, got %+v", cols)
	}
	if names["c"].Type != model.ColNumber {
		t.Fatalf("expected column c typed as number, got %+v", names["c"])
	}

	rows, err := s.ReadRows(context.Background(), id)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if rows[0].Values["c"] != "99" {
		t.Fatalf("unexpected row values: %+v", rows[0].Values)
	}
}

func TestReadRows_FilterEnabledKeepsOnlyMatchingRows(t *testing.T) {
	s := newTestStore(t)
	l := sampleList("rows-filter")
	l.FilterEnabled = true
	l.FilterRules = []string{"paris"}
	cols := []model.Column{{Name: "city", Position: 0, Type: model.ColText}}
	id, err := s.CreateList(context.Background(), l, cols)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	records := []model.Record{
		{"city": "Paris"},
		{"city": "Lyon"},
		{"city": "Parisian"},
	}
	if err := s.ReplaceData(context.Background(), id, cols, records); err != nil {
		t.Fatalf("replace data: %v", err)
	}

	rows, err := s.ReadRows(context.Background(), id)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 matching rows, got %d: %+v", len(rows), rows)
	}
	for _, r := range rows {
		if r.Values["city"] != "Paris" && r.Values["city"] != "Parisian" {
			t.Fatalf("unexpected row surviving filter: %+v", r.Values)
		}
	}
}
