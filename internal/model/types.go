// Package model holds the core data types shared across the importer,
// scheduler, storage and publication layers: List, Column, Cell and the
// discriminated UpdateConfig variants.
package model

import "time"

// UpdateType controls whether a list refreshes on a cron schedule or
// only when explicitly triggered.
type UpdateType string

const (
	UpdateManual    UpdateType = "manual"
	UpdateAutomatic UpdateType = "automatic"
)

// DataFormat is the declared payload shape for a list's source.
type DataFormat string

const (
	FormatCSV  DataFormat = "csv"
	FormatJSON DataFormat = "json"
)

// ColumnType is the declared/inferred type of a column's values.
type ColumnType string

const (
	ColText    ColumnType = "text"
	ColNumber  ColumnType = "number"
	ColDate    ColumnType = "date"
	ColIP      ColumnType = "ip"
	ColBoolean ColumnType = "boolean"
)

// JSONConfigStatus tracks the admin-facing wizard state for JSON sources.
type JSONConfigStatus string

const (
	JSONNotConfigured JSONConfigStatus = "not_configured"
	JSONConfigured    JSONConfigStatus = "configured"
	JSONInProgress    JSONConfigStatus = "in_progress"
)

// SelectedColumn names a column the user has chosen to import from a JSON
// payload, along with the type it should be created as if missing.
type SelectedColumn struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// List is the top-level entity: a named, scheduled, schema'd dataset.
type List struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	UpdateType     UpdateType   `json:"update_type"`
	UpdateSchedule string       `json:"update_schedule"` // cron expression, required iff automatic
	UpdateConfig   UpdateConfig `json:"update_config"`

	DataSourceFormat DataFormat `json:"data_source_format"`
	MaxResults       int        `json:"max_results"` // 0 = unlimited

	LastUpdate *time.Time `json:"last_update,omitempty"`

	FilterEnabled bool     `json:"filter_enabled"`
	FilterRules   []string `json:"filter_rules"`

	IPRestrictionEnabled bool     `json:"ip_restriction_enabled"`
	AllowedIPs           []string `json:"allowed_ips"`

	IsActive    bool `json:"is_active"`
	IsPublished bool `json:"is_published"`

	JSONConfigStatus      JSONConfigStatus `json:"json_config_status"`
	JSONDataPath          string           `json:"json_data_path"`
	JSONPaginationEnabled bool             `json:"json_pagination_enabled"`
	JSONNextPagePath      string           `json:"json_next_page_path"`
	JSONMaxPages          int              `json:"json_max_pages"`
	JSONSelectedColumns   []SelectedColumn `json:"json_selected_columns"`

	PublicCSVEnabled        bool   `json:"public_csv_enabled"`
	PublicJSONEnabled       bool   `json:"public_json_enabled"`
	PublicTXTEnabled        bool   `json:"public_txt_enabled"`
	PublicTXTColumn         string `json:"public_txt_column"`
	PublicCSVIncludeHeaders bool   `json:"public_csv_include_headers"`
	PublicTXTIncludeHeaders bool   `json:"public_txt_include_headers"`
	PublicAccessToken       string `json:"public_access_token,omitempty"`
}

// AnyPublicEnabled reports whether any public artifact is enabled, which
// per the data model's invariant determines whether a token must exist.
func (l *List) AnyPublicEnabled() bool {
	return l.PublicCSVEnabled || l.PublicJSONEnabled || l.PublicTXTEnabled
}

// Column is a single typed, positioned attribute of a list.
type Column struct {
	ListID   int64      `json:"list_id"`
	Name     string     `json:"name"`
	Position int        `json:"position"`
	Type     ColumnType `json:"column_type"`
}

// Row is one ordered set of cell values, keyed by column name.
type Row struct {
	RowID  int64             `json:"row_id"`
	Values map[string]string `json:"values"`
}

// Record is one incoming, not-yet-projected piece of data from a source
// adapter or decoder: a flat string-keyed map.
type Record map[string]string
