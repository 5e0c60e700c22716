package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/listforge/listforge/internal/model"
)

// ListFilter narrows ListLists; zero value returns every list.
type ListFilter struct {
	ActiveOnly    bool
	AutomaticOnly bool
}

func marshalList(l model.List) (updateConfig, filterRules, allowedIPs, selectedCols string, err error) {
	b, err := json.Marshal(l.UpdateConfig)
	if err != nil {
		return
	}
	updateConfig = string(b)
	b, err = json.Marshal(l.FilterRules)
	if err != nil {
		return
	}
	filterRules = string(b)
	b, err = json.Marshal(l.AllowedIPs)
	if err != nil {
		return
	}
	allowedIPs = string(b)
	b, err = json.Marshal(l.JSONSelectedColumns)
	if err != nil {
		return
	}
	selectedCols = string(b)
	return
}

// CreateList inserts a new list with its initial columns.
func (s *Store) CreateList(ctx context.Context, l model.List, columns []model.Column) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	updateConfig, filterRules, allowedIPs, selectedCols, err := marshalList(l)
	if err != nil {
		return 0, fmt.Errorf("storage: marshal list: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO lists (
		name, description, update_type, update_schedule, update_config,
		data_source_format, max_results, filter_enabled, filter_rules,
		ip_restriction_enabled, allowed_ips, is_active, is_published,
		json_config_status, json_data_path, json_pagination_enabled,
		json_next_page_path, json_max_pages, json_selected_columns,
		public_csv_enabled, public_json_enabled, public_txt_enabled,
		public_txt_column, public_csv_include_headers, public_txt_include_headers,
		public_access_token
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.Name, l.Description, string(l.UpdateType), l.UpdateSchedule, updateConfig,
		string(l.DataSourceFormat), l.MaxResults, boolToInt(l.FilterEnabled), filterRules,
		boolToInt(l.IPRestrictionEnabled), allowedIPs, boolToInt(l.IsActive), boolToInt(l.IsPublished),
		string(l.JSONConfigStatus), l.JSONDataPath, boolToInt(l.JSONPaginationEnabled),
		l.JSONNextPagePath, l.JSONMaxPages, selectedCols,
		boolToInt(l.PublicCSVEnabled), boolToInt(l.PublicJSONEnabled), boolToInt(l.PublicTXTEnabled),
		l.PublicTXTColumn, boolToInt(l.PublicCSVIncludeHeaders), boolToInt(l.PublicTXTIncludeHeaders),
		nullableString(l.PublicAccessToken),
	)
	if err != nil {
		return 0, fmt.Errorf("storage: insert list: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, c := range columns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO columns (list_id, name, position, column_type) VALUES (?,?,?,?)`,
			id, c.Name, c.Position, string(c.Type)); err != nil {
			return 0, fmt.Errorf("storage: insert column %q: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// GetList loads a list and its columns by id.
func (s *Store) GetList(ctx context.Context, id int64) (model.List, []model.Column, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, update_type, update_schedule,
		update_config, data_source_format, max_results, last_update, filter_enabled, filter_rules,
		ip_restriction_enabled, allowed_ips, is_active, is_published, json_config_status,
		json_data_path, json_pagination_enabled, json_next_page_path, json_max_pages,
		json_selected_columns, public_csv_enabled, public_json_enabled, public_txt_enabled,
		public_txt_column, public_csv_include_headers, public_txt_include_headers, public_access_token
		FROM lists WHERE id=?`, id)
	l, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.List{}, nil, ErrNotFound
		}
		return model.List{}, nil, fmt.Errorf("storage: get list %d: %w", id, err)
	}
	cols, err := s.getColumns(ctx, id)
	if err != nil {
		return model.List{}, nil, err
	}
	return l, cols, nil
}

// GetListByToken looks up a list by its public access token, used by the
// Access Gate (C8). The index scan is by exact token match; callers are
// expected to additionally compare token bytes in constant time before
// trusting the result, since the SQL lookup itself is not timing-safe.
func (s *Store) GetListByToken(ctx context.Context, token string) (model.List, []model.Column, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, update_type, update_schedule,
		update_config, data_source_format, max_results, last_update, filter_enabled, filter_rules,
		ip_restriction_enabled, allowed_ips, is_active, is_published, json_config_status,
		json_data_path, json_pagination_enabled, json_next_page_path, json_max_pages,
		json_selected_columns, public_csv_enabled, public_json_enabled, public_txt_enabled,
		public_txt_column, public_csv_include_headers, public_txt_include_headers, public_access_token
		FROM lists WHERE public_access_token=?`, token)
	l, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.List{}, nil, ErrNotFound
		}
		return model.List{}, nil, err
	}
	cols, err := s.getColumns(ctx, l.ID)
	if err != nil {
		return model.List{}, nil, err
	}
	return l, cols, nil
}

// ListLists returns all lists matching filter, ordered by id.
func (s *Store) ListLists(ctx context.Context, filter ListFilter) ([]model.List, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	q := `SELECT id, name, description, update_type, update_schedule,
		update_config, data_source_format, max_results, last_update, filter_enabled, filter_rules,
		ip_restriction_enabled, allowed_ips, is_active, is_published, json_config_status,
		json_data_path, json_pagination_enabled, json_next_page_path, json_max_pages,
		json_selected_columns, public_csv_enabled, public_json_enabled, public_txt_enabled,
		public_txt_column, public_csv_include_headers, public_txt_include_headers, public_access_token
		FROM lists WHERE 1=1`
	var args []any
	if filter.ActiveOnly {
		q += ` AND is_active=1`
	}
	if filter.AutomaticOnly {
		q += ` AND update_type='automatic'`
	}
	q += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list lists: %w", err)
	}
	defer rows.Close()
	var out []model.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpdateList applies a full rewrite of the list's mutable metadata fields
// (not its columns/cells, which go through ReplaceData).
func (s *Store) UpdateList(ctx context.Context, l model.List) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	updateConfig, filterRules, allowedIPs, selectedCols, err := marshalList(l)
	if err != nil {
		return fmt.Errorf("storage: marshal list: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE lists SET
		name=?, description=?, update_type=?, update_schedule=?, update_config=?,
		data_source_format=?, max_results=?, filter_enabled=?, filter_rules=?,
		ip_restriction_enabled=?, allowed_ips=?, is_active=?, is_published=?,
		json_config_status=?, json_data_path=?, json_pagination_enabled=?,
		json_next_page_path=?, json_max_pages=?, json_selected_columns=?,
		public_csv_enabled=?, public_json_enabled=?, public_txt_enabled=?,
		public_txt_column=?, public_csv_include_headers=?, public_txt_include_headers=?,
		public_access_token=?
		WHERE id=?`,
		l.Name, l.Description, string(l.UpdateType), l.UpdateSchedule, updateConfig,
		string(l.DataSourceFormat), l.MaxResults, boolToInt(l.FilterEnabled), filterRules,
		boolToInt(l.IPRestrictionEnabled), allowedIPs, boolToInt(l.IsActive), boolToInt(l.IsPublished),
		string(l.JSONConfigStatus), l.JSONDataPath, boolToInt(l.JSONPaginationEnabled),
		l.JSONNextPagePath, l.JSONMaxPages, selectedCols,
		boolToInt(l.PublicCSVEnabled), boolToInt(l.PublicJSONEnabled), boolToInt(l.PublicTXTEnabled),
		l.PublicTXTColumn, boolToInt(l.PublicCSVIncludeHeaders), boolToInt(l.PublicTXTIncludeHeaders),
		nullableString(l.PublicAccessToken), l.ID,
	)
	if err != nil {
		return fmt.Errorf("storage: update list %d: %w", l.ID, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetLastUpdate advances last_update monotonically: it is a no-op if the
// stored value is already >= ts, preserving the §3 monotonicity invariant.
func (s *Store) SetLastUpdate(ctx context.Context, listID int64, ts time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	_, err := s.db.ExecContext(ctx, `UPDATE lists SET last_update=?
		WHERE id=? AND (last_update IS NULL OR last_update < ?)`,
		ts.UTC().Format(time.RFC3339Nano), listID, ts.UTC().Format(time.RFC3339Nano))
	return err
}

// DeleteList cascades to columns and cells via the foreign key
// ON DELETE CASCADE declared in the schema; callers are responsible for
// removing on-disk public artifacts (Publisher's concern, not Storage's).
func (s *Store) DeleteList(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("storage: delete list %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getColumns(ctx context.Context, listID int64) ([]model.Column, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT list_id, name, position, column_type FROM columns WHERE list_id=? ORDER BY position`, listID)
	if err != nil {
		return nil, fmt.Errorf("storage: get columns: %w", err)
	}
	defer rows.Close()
	var out []model.Column
	for rows.Next() {
		var c model.Column
		var ct string
		if err := rows.Scan(&c.ListID, &c.Name, &c.Position, &ct); err != nil {
			return nil, err
		}
		c.Type = model.ColumnType(ct)
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanList(row scanner) (model.List, error) {
	var l model.List
	var updateType, format, jsonStatus string
	var updateConfigRaw, filterRulesRaw, allowedIPsRaw, selectedColsRaw string
	var lastUpdate sql.NullString
	var token sql.NullString
	var filterEnabled, ipRestrictionEnabled, isActive, isPublished int
	var jsonPaginationEnabled, publicCSV, publicJSON, publicTXT, publicCSVHeaders, publicTXTHeaders int

	if err := row.Scan(&l.ID, &l.Name, &l.Description, &updateType, &l.UpdateSchedule,
		&updateConfigRaw, &format, &l.MaxResults, &lastUpdate, &filterEnabled, &filterRulesRaw,
		&ipRestrictionEnabled, &allowedIPsRaw, &isActive, &isPublished, &jsonStatus,
		&l.JSONDataPath, &jsonPaginationEnabled, &l.JSONNextPagePath, &l.JSONMaxPages,
		&selectedColsRaw, &publicCSV, &publicJSON, &publicTXT,
		&l.PublicTXTColumn, &publicCSVHeaders, &publicTXTHeaders, &token,
	); err != nil {
		return model.List{}, err
	}

	l.UpdateType = model.UpdateType(updateType)
	l.DataSourceFormat = model.DataFormat(format)
	l.JSONConfigStatus = model.JSONConfigStatus(jsonStatus)
	l.FilterEnabled = filterEnabled != 0
	l.IPRestrictionEnabled = ipRestrictionEnabled != 0
	l.IsActive = isActive != 0
	l.IsPublished = isPublished != 0
	l.JSONPaginationEnabled = jsonPaginationEnabled != 0
	l.PublicCSVEnabled = publicCSV != 0
	l.PublicJSONEnabled = publicJSON != 0
	l.PublicTXTEnabled = publicTXT != 0
	l.PublicCSVIncludeHeaders = publicCSVHeaders != 0
	l.PublicTXTIncludeHeaders = publicTXTHeaders != 0
	if token.Valid {
		l.PublicAccessToken = token.String
	}
	if lastUpdate.Valid && lastUpdate.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, lastUpdate.String); err == nil {
			l.LastUpdate = &t
		}
	}
	_ = json.Unmarshal([]byte(updateConfigRaw), &l.UpdateConfig)
	_ = json.Unmarshal([]byte(filterRulesRaw), &l.FilterRules)
	_ = json.Unmarshal([]byte(allowedIPsRaw), &l.AllowedIPs)
	_ = json.Unmarshal([]byte(selectedColsRaw), &l.JSONSelectedColumns)
	return l, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
