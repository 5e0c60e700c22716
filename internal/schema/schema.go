// Package schema is the Schema Resolver (C4): deciding, for one import
// run, the column set a list's incoming records should be projected onto
// — reusing existing columns where names match, creating new ones for
// unseen keys, and inferring a type for anything not already typed.
package schema

import (
	"net"
	"regexp"
	"sort"
	"strconv"

	"github.com/listforge/listforge/internal/model"
)

// ResolveOptions controls how aggressively Resolve creates/drops columns.
type ResolveOptions struct {
	// RemoveUnusedColumns drops existing columns that no incoming record
	// references, mirroring CSVConfig.RemoveUnused's default of true.
	RemoveUnusedColumns bool
	// Selected, when non-empty, pins the column set and types exactly
	// (used by the JSON wizard's json_selected_columns), skipping
	// inference entirely.
	Selected []model.SelectedColumn
	// AutoCreate controls what happens to an incoming key with no
	// matching existing column: true creates it, false drops its values
	// silently and records a Warning (a non-fatal SchemaConflictError
	// condition — the refresh still proceeds for the remaining keys).
	AutoCreate bool
	// Declared overrides inference for newly created columns (from
	// csv_config.column_types), keyed by column name.
	Declared map[string]model.ColumnType
}

// Warning records a non-fatal schema decision worth surfacing to the
// caller's logs (e.g. an incoming key dropped because AutoCreate is false).
type Warning struct {
	Column  string
	Message string
}

// Resolve computes the column set incoming should be imported against,
// given the list's existing columns. Columns are returned in a stable
// order: existing columns keep their relative order (positions are
// renumbered from 0), new columns are appended in first-seen order across
// incoming. Records carry no field order, so keys first seen in the same
// record are appended in name order.
func Resolve(existing []model.Column, incoming []model.Record, opts ResolveOptions) ([]model.Column, []Warning) {
	if len(opts.Selected) > 0 {
		cols := make([]model.Column, len(opts.Selected))
		for i, sc := range opts.Selected {
			cols[i] = model.Column{Name: sc.Name, Position: i, Type: sc.Type}
		}
		return cols, nil
	}

	byName := map[string]model.Column{}
	for _, c := range existing {
		byName[c.Name] = c
	}

	seen := map[string]bool{}
	var firstSeenOrder []string
	for _, rec := range incoming {
		var newKeys []string
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				newKeys = append(newKeys, k)
			}
		}
		sort.Strings(newKeys)
		firstSeenOrder = append(firstSeenOrder, newKeys...)
	}

	var warnings []Warning
	var result []model.Column
	nextPos := 0

	// Keep existing columns in their original relative order, dropping
	// ones that aren't referenced when RemoveUnusedColumns is set.
	existingOrdered := make([]model.Column, len(existing))
	copy(existingOrdered, existing)
	sort.Slice(existingOrdered, func(i, j int) bool { return existingOrdered[i].Position < existingOrdered[j].Position })

	for _, c := range existingOrdered {
		if !seen[c.Name] {
			if opts.RemoveUnusedColumns {
				continue
			}
		}
		c.Position = nextPos
		nextPos++
		result = append(result, c)
	}

	for _, name := range firstSeenOrder {
		if _, ok := byName[name]; ok {
			continue // already carried over above
		}
		if !opts.AutoCreate {
			warnings = append(warnings, Warning{
				Column:  name,
				Message: "auto_create_columns is false: incoming key has no matching column, its values are dropped",
			})
			continue
		}
		t, ok := opts.Declared[name]
		if !ok {
			t = inferColumnType(name, incoming)
		}
		result = append(result, model.Column{Name: name, Position: nextPos, Type: t})
		nextPos++
	}

	return result, warnings
}

var numberRe = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2})?(\.\d+)?(Z|[+-]\d{2}:?\d{2})?)?$`)

// inferColumnType scans every non-empty value seen for name and infers
// the most specific type all of them agree on, falling back to text, when
// no explicit column_types mapping is configured for the column.
func inferColumnType(name string, incoming []model.Record) model.ColumnType {
	sawAny := false
	allIP, allNumber, allBool, allDate := true, true, true, true
	for _, rec := range incoming {
		v, ok := rec[name]
		if !ok || v == "" {
			continue
		}
		sawAny = true
		if allIP && net.ParseIP(v) == nil && !isCIDR(v) {
			allIP = false
		}
		if allNumber && !numberRe.MatchString(v) {
			allNumber = false
		}
		if allBool && !isBool(v) {
			allBool = false
		}
		if allDate && !dateRe.MatchString(v) {
			allDate = false
		}
	}
	if !sawAny {
		return model.ColText
	}
	switch {
	case allIP:
		return model.ColIP
	case allBool:
		return model.ColBoolean
	case allNumber:
		return model.ColNumber
	case allDate:
		return model.ColDate
	default:
		return model.ColText
	}
}

func isCIDR(s string) bool {
	_, _, err := net.ParseCIDR(s)
	return err == nil
}

func isBool(s string) bool {
	switch s {
	case "true", "false", "True", "False", "0", "1":
		return true
	}
	return false
}

// InferType exposes single-value type inference for callers that already
// have a representative sample (e.g. tests).
func InferType(value string) model.ColumnType {
	if value == "" {
		return model.ColText
	}
	if net.ParseIP(value) != nil || isCIDR(value) {
		return model.ColIP
	}
	if isBool(value) {
		return model.ColBoolean
	}
	if numberRe.MatchString(value) {
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return model.ColNumber
		}
	}
	if dateRe.MatchString(value) {
		return model.ColDate
	}
	return model.ColText
}
