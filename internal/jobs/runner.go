// Package jobs records the outcome of every import run (C5) so the admin
// API can show recent history per list. It is deliberately simpler than
// a general job queue: the Scheduler and Importer already own run
// orchestration and concurrency, so this package's only job is
// durably remembering what happened.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Status mirrors importer.ImportResult's three outcomes, kept as a
// separate string type here so this package doesn't need to import
// internal/importer.
type Status string

const (
	Succeeded Status = "succeeded"
	Skipped   Status = "skipped"
	Failed    Status = "failed"
)

// Record is one completed import attempt.
type Record struct {
	ID        string    `json:"id"`
	ListID    int64     `json:"list_id"`
	Status    Status    `json:"status"`
	Rows      int       `json:"rows,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	Logs      string    `json:"logs,omitempty"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Persist abstracts durable storage for Records.
type Persist interface {
	SaveRun(rec Record) error
	ListRuns(listID int64, limit int) ([]Record, error)
}

// History records import run outcomes and serves recent history per list.
type History struct {
	store Persist
}

// NewHistory wraps a Persist implementation (normally *LocalPersist).
func NewHistory(store Persist) *History {
	return &History{store: store}
}

// RecordSuccess saves a successful run.
func (h *History) RecordSuccess(listID int64, rows int, started time.Time) {
	h.save(Record{ID: uuid.NewString(), ListID: listID, Status: Succeeded, Rows: rows, Started: started, Finished: time.Now()})
}

// RecordSkipped saves a skipped run.
func (h *History) RecordSkipped(listID int64, reason string, started time.Time) {
	h.save(Record{ID: uuid.NewString(), ListID: listID, Status: Skipped, Reason: reason, Started: started, Finished: time.Now()})
}

// RecordFailed saves a failed run.
func (h *History) RecordFailed(listID int64, errorKind, errMsg, logs string, started time.Time) {
	h.save(Record{ID: uuid.NewString(), ListID: listID, Status: Failed, ErrorKind: errorKind, Error: errMsg, Logs: logs, Started: started, Finished: time.Now()})
}

func (h *History) save(rec Record) {
	if h == nil || h.store == nil {
		return
	}
	_ = h.store.SaveRun(rec)
}

// Recent returns up to limit most recent runs for listID, newest first.
func (h *History) Recent(listID int64, limit int) ([]Record, error) {
	if h == nil || h.store == nil {
		return nil, nil
	}
	return h.store.ListRuns(listID, limit)
}
