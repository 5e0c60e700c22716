package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/listforge/listforge/internal/model"
)

// ReplaceData performs the transactional bulk-replace at the heart of the
// import pipeline (§4.1): it reconciles the declared column set, truncates
// every existing cell for listID, bulk-inserts the new rows, and advances
// last_update — all inside one transaction, so a failure at any step
// leaves the previous data intact.
//
// rows must already be projected onto desiredColumns (column name -> cell
// value); row order is preserved as ascending row_id.
func (s *Store) ReplaceData(ctx context.Context, listID int64, desiredColumns []model.Column, rows []model.Record) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin replace: %w", err)
	}
	defer tx.Rollback()

	if err := reconcileColumns(ctx, tx, listID, desiredColumns); err != nil {
		return fmt.Errorf("storage: reconcile columns: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE list_id=?`, listID); err != nil {
		return fmt.Errorf("storage: truncate cells: %w", err)
	}

	cols := make([]model.Column, len(desiredColumns))
	copy(cols, desiredColumns)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cells (list_id, row_id, column_position, value) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare cell insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range rows {
		rowID := int64(i + 1)
		for _, c := range cols {
			v, ok := rec[c.Name]
			if !ok {
				continue
			}
			if _, err := stmt.ExecContext(ctx, listID, rowID, c.Position, v); err != nil {
				return fmt.Errorf("storage: insert cell row=%d col=%s: %w", rowID, c.Name, err)
			}
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE lists SET last_update=? WHERE id=?`, now.Format(time.RFC3339Nano), listID); err != nil {
		return fmt.Errorf("storage: update last_update: %w", err)
	}

	return tx.Commit()
}

// reconcileColumns makes the columns table for listID match desired exactly:
// existing columns not present in desired are dropped (cascading to their
// cells would already have happened via the truncate in ReplaceData, but
// reconcile runs first so it also handles the case where a column is
// renamed/retyped between imports), columns present in both are updated in
// place (position/type), and new columns are inserted.
func reconcileColumns(ctx context.Context, tx *sql.Tx, listID int64, desired []model.Column) error {
	existing := map[string]model.Column{}
	rows, err := tx.QueryContext(ctx, `SELECT name, position, column_type FROM columns WHERE list_id=?`, listID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var c model.Column
		var ct string
		if err := rows.Scan(&c.Name, &c.Position, &ct); err != nil {
			rows.Close()
			return err
		}
		c.ListID = listID
		c.Type = model.ColumnType(ct)
		existing[c.Name] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	wanted := map[string]model.Column{}
	for _, c := range desired {
		wanted[c.Name] = c
	}

	for name := range existing {
		if _, ok := wanted[name]; !ok {
			if _, err := tx.ExecContext(ctx, `DELETE FROM columns WHERE list_id=? AND name=?`, listID, name); err != nil {
				return fmt.Errorf("drop column %q: %w", name, err)
			}
		}
	}

	for _, c := range desired {
		if old, ok := existing[c.Name]; ok {
			if old.Position == c.Position && old.Type == c.Type {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE columns SET position=?, column_type=? WHERE list_id=? AND name=?`,
				c.Position, string(c.Type), listID, c.Name); err != nil {
				return fmt.Errorf("update column %q: %w", c.Name, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO columns (list_id, name, position, column_type) VALUES (?,?,?,?)`,
			listID, c.Name, c.Position, string(c.Type)); err != nil {
			return fmt.Errorf("insert column %q: %w", c.Name, err)
		}
	}
	return nil
}

// ReadRows returns every row for listID as an ordered sequence of
// (row_id, column name -> value), columns ordered by their declared
// position, rows ordered by ascending row_id, per §4.1. When the list
// has row filtering enabled, a row is kept iff any non-id cell's string
// value contains any configured rule, case-insensitively.
func (s *Store) ReadRows(ctx context.Context, listID int64) ([]model.Row, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cols, err := s.getColumns(ctx, listID)
	if err != nil {
		return nil, err
	}
	names := make(map[int]string, len(cols))
	for _, c := range cols {
		names[c.Position] = c.Name
	}

	filterEnabled, filterRules, err := s.getFilter(ctx, listID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT row_id, column_position, value FROM cells
		WHERE list_id=? ORDER BY row_id, column_position`, listID)
	if err != nil {
		return nil, fmt.Errorf("storage: read rows: %w", err)
	}
	defer rows.Close()

	var out []model.Row
	var cur *model.Row
	flush := func() {
		if cur == nil {
			return
		}
		if !filterEnabled || rowMatchesFilter(*cur, filterRules) {
			out = append(out, *cur)
		}
	}
	for rows.Next() {
		var rowID int64
		var pos int
		var val string
		if err := rows.Scan(&rowID, &pos, &val); err != nil {
			return nil, err
		}
		if cur == nil || cur.RowID != rowID {
			flush()
			cur = &model.Row{RowID: rowID, Values: map[string]string{}}
		}
		if name, ok := names[pos]; ok {
			cur.Values[name] = val
		}
	}
	flush()
	return out, rows.Err()
}

// getFilter loads a list's row-filter configuration.
func (s *Store) getFilter(ctx context.Context, listID int64) (bool, []string, error) {
	var enabled int
	var rulesRaw string
	err := s.db.QueryRowContext(ctx, `SELECT filter_enabled, filter_rules FROM lists WHERE id=?`, listID).
		Scan(&enabled, &rulesRaw)
	if err == sql.ErrNoRows {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("storage: read filter: %w", err)
	}
	var rules []string
	_ = json.Unmarshal([]byte(rulesRaw), &rules)
	return enabled != 0, rules, nil
}

// rowMatchesFilter reports whether any non-id cell of row contains any
// rule as a case-insensitive substring.
func rowMatchesFilter(row model.Row, rules []string) bool {
	if len(rules) == 0 {
		return true
	}
	for name, val := range row.Values {
		if name == "id" {
			continue
		}
		lower := strings.ToLower(val)
		for _, rule := range rules {
			if rule == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(rule)) {
				return true
			}
		}
	}
	return false
}
