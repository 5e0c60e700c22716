package jobs

import (
	"testing"
	"time"
)

type fakePersist struct {
	saved []Record
}

func (f *fakePersist) SaveRun(rec Record) error {
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakePersist) ListRuns(listID int64, limit int) ([]Record, error) {
	var out []Record
	for _, r := range f.saved {
		if r.ListID == listID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestHistory_RecordSuccess(t *testing.T) {
	fp := &fakePersist{}
	h := NewHistory(fp)
	h.RecordSuccess(1, 10, time.Now())
	if len(fp.saved) != 1 {
		t.Fatalf("expected 1 saved record, got %d", len(fp.saved))
	}
	r := fp.saved[0]
	if r.Status != Succeeded || r.Rows != 10 || r.ID == "" {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestHistory_RecordSkippedAndFailed(t *testing.T) {
	fp := &fakePersist{}
	h := NewHistory(fp)
	h.RecordSkipped(1, "too recent", time.Now())
	h.RecordFailed(1, "transport", "connection refused", "log output", time.Now())

	if len(fp.saved) != 2 {
		t.Fatalf("expected 2 saved records, got %d", len(fp.saved))
	}
	if fp.saved[0].Status != Skipped || fp.saved[0].Reason != "too recent" {
		t.Fatalf("unexpected skip record: %+v", fp.saved[0])
	}
	if fp.saved[1].Status != Failed || fp.saved[1].ErrorKind != "transport" || fp.saved[1].Error != "connection refused" {
		t.Fatalf("unexpected failed record: %+v", fp.saved[1])
	}
}

func TestHistory_Recent(t *testing.T) {
	fp := &fakePersist{}
	h := NewHistory(fp)
	h.RecordSuccess(1, 1, time.Now())
	h.RecordSuccess(2, 2, time.Now())
	h.RecordSuccess(1, 3, time.Now())

	runs, err := h.Recent(1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs for list 1, got %d", len(runs))
	}
}

func TestHistory_NilSafeNoStore(t *testing.T) {
	h := NewHistory(nil)
	h.RecordSuccess(1, 1, time.Now()) // must not panic
	runs, err := h.Recent(1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runs != nil {
		t.Fatalf("expected nil runs when no store configured, got %+v", runs)
	}
}

func TestHistory_NilHistoryIsSafe(t *testing.T) {
	var h *History
	h.RecordSuccess(1, 1, time.Now()) // must not panic on nil receiver
	if _, err := h.Recent(1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
