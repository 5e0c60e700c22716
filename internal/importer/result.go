package importer

import "fmt"

// ImportResult is the sum type every import run produces, per the
// REDESIGN FLAGS note in §9: a run either wrote data (Success), was
// skipped without attempting a fetch (Skipped, e.g. too-recent or
// inactive-not-forced), or attempted and failed (Failed). Exactly one of
// the three accessors below is meaningful for a given result; callers
// switch on Kind() rather than probing fields directly.
type ImportResult struct {
	kind    resultKind
	success SuccessResult
	skipped SkippedResult
	failed  FailedResult
}

type resultKind int

const (
	kindSuccess resultKind = iota
	kindSkipped
	kindFailed
)

// SuccessResult carries the row count written by a completed import, plus
// any non-fatal warnings (e.g. a SchemaConflictError from auto_create_columns
// being false) that didn't stop the run.
type SuccessResult struct {
	Rows     int
	Warnings []string
}

// SkippedResult carries why a run was skipped without fetching.
type SkippedResult struct {
	Reason string
}

// FailedResult carries the classified failure and any logs the adapter
// captured (stderr for shell sources, print output for script sources;
// url sources capture none).
type FailedResult struct {
	Kind ErrorKind
	Err  error
	Logs string
}

func Success(rows int) ImportResult {
	return ImportResult{kind: kindSuccess, success: SuccessResult{Rows: rows}}
}

// SuccessWithWarnings builds a Success result that also carries non-fatal
// schema warnings (see SuccessResult.Warnings).
func SuccessWithWarnings(rows int, warnings []string) ImportResult {
	return ImportResult{kind: kindSuccess, success: SuccessResult{Rows: rows, Warnings: warnings}}
}

func Skipped(reason string) ImportResult {
	return ImportResult{kind: kindSkipped, skipped: SkippedResult{Reason: reason}}
}

func Failed(kind ErrorKind, err error, logs string) ImportResult {
	return ImportResult{kind: kindFailed, failed: FailedResult{Kind: kind, Err: err, Logs: logs}}
}

func (r ImportResult) IsSuccess() bool { return r.kind == kindSuccess }
func (r ImportResult) IsSkipped() bool { return r.kind == kindSkipped }
func (r ImportResult) IsFailed() bool  { return r.kind == kindFailed }

// Success returns the success payload and true if r is a Success result.
func (r ImportResult) SuccessValue() (SuccessResult, bool) {
	return r.success, r.kind == kindSuccess
}

// Skipped returns the skip payload and true if r is a Skipped result.
func (r ImportResult) SkippedValue() (SkippedResult, bool) {
	return r.skipped, r.kind == kindSkipped
}

// Failed returns the failure payload and true if r is a Failed result.
func (r ImportResult) FailedValue() (FailedResult, bool) {
	return r.failed, r.kind == kindFailed
}

func (r ImportResult) String() string {
	switch r.kind {
	case kindSuccess:
		return fmt.Sprintf("success(rows=%d)", r.success.Rows)
	case kindSkipped:
		return fmt.Sprintf("skipped(%s)", r.skipped.Reason)
	case kindFailed:
		return fmt.Sprintf("failed(%s: %v)", r.failed.Kind, r.failed.Err)
	default:
		return "unknown"
	}
}
