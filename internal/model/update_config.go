package model

import (
	"fmt"
	"strings"
	"time"
)

// Source selects which adapter an UpdateConfig targets.
type Source string

const (
	SourceURL    Source = "url"
	SourceCurl   Source = "curl"
	SourceAPI    Source = "api"
	SourceScript Source = "script"
)

// APIType disambiguates the legacy "api" source alias: api+api_type=curl
// behaves exactly like curl, api+api_type=script exactly like script.
type APIType string

const (
	APITypeCurl   APIType = "curl"
	APITypeScript APIType = "script"
)

// CSVConfig carries CSV dialect and column-selection options.
type CSVConfig struct {
	Separator           string            `json:"separator,omitempty"`
	HasHeader           bool              `json:"has_header"`
	ColumnNames         []string          `json:"column_names,omitempty"`
	ColumnsToImport     []int             `json:"columns_to_import,omitempty"`
	ColumnTypes         map[string]string `json:"column_types,omitempty"` // index (as string) -> type
	RemoveUnusedColumns *bool             `json:"remove_unused_columns,omitempty"`
}

// RemoveUnused returns the effective remove_unused_columns policy: CSV
// defaults to true when unset.
func (c CSVConfig) RemoveUnused() bool {
	if c.RemoveUnusedColumns == nil {
		return true
	}
	return *c.RemoveUnusedColumns
}

// UpdateConfig is the discriminated variant describing how to refresh a
// list. Exactly one group of the source-specific fields below is
// meaningful, selected by Source (after resolving the `api`+api_type alias).
type UpdateConfig struct {
	Source  Source  `json:"source"`
	APIType APIType `json:"api_type,omitempty"`

	// URL adapter
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Shell adapter
	CurlCommand string `json:"curl_command,omitempty"`

	// Script adapter
	Code     string `json:"code,omitempty"`
	Language string `json:"language,omitempty"`

	TimeoutSeconds int `json:"timeout,omitempty"`

	Format DataFormat `json:"format,omitempty"`
	IsJSON *bool      `json:"is_json,omitempty"`

	CSV CSVConfig `json:"csv_config,omitempty"`

	JSONDataPath string `json:"json_data_path,omitempty"`

	MinUpdateIntervalSeconds int `json:"min_update_interval,omitempty"`

	// AutoCreateColumns controls the Schema Resolver's handling of an
	// incoming key with no matching column: true creates it (the
	// default), false drops its values silently and logs a warning.
	AutoCreateColumns *bool `json:"auto_create_columns,omitempty"`
}

// AutoCreate returns the effective auto_create_columns policy: unset
// defaults to true, preserving the behavior of lists saved before this
// flag existed.
func (c UpdateConfig) AutoCreate() bool {
	if c.AutoCreateColumns == nil {
		return true
	}
	return *c.AutoCreateColumns
}

// ResolvedSource applies the `api`+api_type alias described in §6: api with
// api_type=curl is equivalent to curl, api with api_type=script to script.
func (c UpdateConfig) ResolvedSource() Source {
	if c.Source == SourceAPI {
		switch c.APIType {
		case APITypeCurl:
			return SourceCurl
		case APITypeScript:
			return SourceScript
		}
	}
	return c.Source
}

// ResolvedFormat applies the is_json boolean alias: when set, it overrides
// Format entirely.
func (c UpdateConfig) ResolvedFormat() DataFormat {
	if c.IsJSON != nil {
		if *c.IsJSON {
			return FormatJSON
		}
		return FormatCSV
	}
	if c.Format != "" {
		return c.Format
	}
	return FormatJSON
}

// Timeout returns the configured per-request/run timeout, defaulting per
// adapter when unset (30s for url, 60s for shell).
func (c UpdateConfig) Timeout(def time.Duration) time.Duration {
	if c.TimeoutSeconds <= 0 {
		return def
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MinUpdateInterval returns the configured minimum re-fetch interval,
// defaulting to 300s per §4.5.
func (c UpdateConfig) MinUpdateInterval() time.Duration {
	if c.MinUpdateIntervalSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.MinUpdateIntervalSeconds) * time.Second
}

// Validate checks an UpdateConfig's required fields for its resolved
// source at load/save time, per the REDESIGN FLAGS note that validation
// belongs at load, not at use.
func Validate(c UpdateConfig, updateType UpdateType, schedule string) error {
	switch c.ResolvedSource() {
	case SourceURL:
		if strings.TrimSpace(c.URL) == "" {
			return fmt.Errorf("configuration error: url is required for source=url")
		}
	case SourceCurl:
		if strings.TrimSpace(c.CurlCommand) == "" {
			return fmt.Errorf("configuration error: curl_command is required for source=curl")
		}
	case SourceScript:
		if strings.TrimSpace(c.Code) == "" {
			return fmt.Errorf("configuration error: code is required for source=script")
		}
	default:
		return fmt.Errorf("configuration error: unsupported source %q", c.Source)
	}
	if c.CSV.Separator != "" && len([]rune(c.CSV.Separator)) != 1 {
		return fmt.Errorf("configuration error: csv_config.separator must be a single character, got %q", c.CSV.Separator)
	}
	if updateType == UpdateAutomatic && strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("configuration error: update_schedule is required when update_type=automatic")
	}
	return nil
}
