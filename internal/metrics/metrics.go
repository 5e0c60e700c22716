// Package metrics is simple in-memory instrumentation for import runs:
// per-list/operation counters plus a gauge for imports currently in
// flight, exported as a JSON snapshot for the admin API. It follows the
// teacher's atomic copy-on-write counter map pattern rather than reaching
// for a metrics library, since nothing in the pack wires a Prometheus
// client for a process this size — see DESIGN.md for that call.
package metrics

import (
	"strconv"
	"sync/atomic"
	"time"
)

type key struct {
	listID int64
	op     string
}

var (
	opCounts     syncMap[key, uint64]
	activeImport atomic.Int64
)

// syncMap is a tiny generic wrapper using atomic.Value for copy-on-write maps.
type syncMap[K comparable, V any] struct{ m atomic.Value } // stores map[K]V

func (s *syncMap[K, V]) load() map[K]V {
	if v := s.m.Load(); v != nil {
		return v.(map[K]V)
	}
	return map[K]V{}
}
func (s *syncMap[K, V]) swap(m map[K]V) { s.m.Store(m) }

// IncOp increments the counter for (listID, op) by 1 — e.g. op="fetch",
// "decode", "write", "publish", "success", "failed", "skipped".
func IncOp(listID int64, op string) {
	cur := opCounts.load()
	next := make(map[key]uint64, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	k := key{listID: listID, op: op}
	next[k] = next[k] + 1
	opCounts.swap(next)
}

// ImportStarted/ImportFinished track the in-flight import gauge.
func ImportStarted()  { activeImport.Add(1) }
func ImportFinished() { activeImport.Add(-1) }

// Snapshot is the exported shape of Export().
type Snapshot struct {
	Timestamp     time.Time         `json:"ts"`
	Ops           map[string]uint64 `json:"ops"`
	ActiveImports int64             `json:"active_imports"`
}

// Export flattens the current counters into a JSON-friendly snapshot.
func Export() Snapshot {
	cur := opCounts.load()
	flat := make(map[string]uint64, len(cur))
	for k, v := range cur {
		flat[strconv.FormatInt(k.listID, 10)+"/"+k.op] = v
	}
	return Snapshot{Timestamp: time.Now(), Ops: flat, ActiveImports: activeImport.Load()}
}
