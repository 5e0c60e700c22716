// Package publish is the Publisher (C7): rendering a list's current rows
// into the public CSV/JSON/TXT artifacts served by the public endpoints,
// written atomically (temp file + rename) so a concurrent reader never
// sees a half-written file.
package publish

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/listforge/listforge/internal/model"
)

// Publisher renders and serves on-disk artifacts under a single
// directory, one subdirectory per kind.
type Publisher struct {
	dir string
}

// New returns a Publisher rooted at filepath.Join(stateDir, "public").
func New(stateDir string) *Publisher {
	return &Publisher{dir: filepath.Join(stateDir, "public")}
}

func (p *Publisher) pathFor(kind, token string) string {
	return filepath.Join(p.dir, kind, token+".out")
}

// Generate (re)writes every enabled artifact kind for list from rows. The
// "id" pseudo-column (row identity) is never included in public output —
// it exists only for internal row tracking.
func (p *Publisher) Generate(list model.List, columns []model.Column, rows []model.Row) error {
	if !list.AnyPublicEnabled() || list.PublicAccessToken == "" {
		return nil
	}
	names := projectedColumnNames(columns)

	if list.PublicCSVEnabled {
		if err := p.writeCSV(list.PublicAccessToken, names, rows, list.PublicCSVIncludeHeaders); err != nil {
			return fmt.Errorf("publish: csv: %w", err)
		}
	}
	if list.PublicJSONEnabled {
		if err := p.writeJSON(list.PublicAccessToken, names, rows); err != nil {
			return fmt.Errorf("publish: json: %w", err)
		}
	}
	if list.PublicTXTEnabled {
		if err := p.writeTXT(list.PublicAccessToken, list.PublicTXTColumn, rows, list.PublicTXTIncludeHeaders); err != nil {
			return fmt.Errorf("publish: txt: %w", err)
		}
	}
	return nil
}

func projectedColumnNames(columns []model.Column) []string {
	cols := make([]model.Column, len(columns))
	copy(cols, columns)
	sort.Slice(cols, func(i, j int) bool { return cols[i].Position < cols[j].Position })
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		if c.Name == "id" {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

func (p *Publisher) writeCSV(token string, names []string, rows []model.Row, headers bool) error {
	return p.writeAtomic("csv", token, func(f *os.File) error {
		w := csv.NewWriter(f)
		if headers {
			if err := w.Write(names); err != nil {
				return err
			}
		}
		for _, r := range rows {
			rec := make([]string, len(names))
			for i, n := range names {
				rec[i] = r.Values[n]
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func (p *Publisher) writeJSON(token string, names []string, rows []model.Row) error {
	return p.writeAtomic("json", token, func(f *os.File) error {
		out := make([]map[string]string, 0, len(rows))
		for _, r := range rows {
			obj := make(map[string]string, len(names))
			for _, n := range names {
				obj[n] = r.Values[n]
			}
			out = append(out, obj)
		}
		enc := json.NewEncoder(f)
		return enc.Encode(out)
	})
}

func (p *Publisher) writeTXT(token, column string, rows []model.Row, headers bool) error {
	return p.writeAtomic("txt", token, func(f *os.File) error {
		if headers && column != "" {
			if _, err := fmt.Fprintln(f, column); err != nil {
				return err
			}
		}
		for _, r := range rows {
			if _, err := fmt.Fprintln(f, r.Values[column]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Publisher) writeAtomic(kind, token string, write func(*os.File) error) error {
	dir := filepath.Join(p.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, token+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, p.pathFor(kind, token))
}

// Lookup reads a previously generated artifact, for both the public HTTP
// handlers and the Internal-Loop Shortcut (C9). found is false if the
// artifact hasn't been generated yet.
func (p *Publisher) Lookup(kind, token string) (body []byte, contentType string, found bool, err error) {
	b, err := os.ReadFile(p.pathFor(kind, token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", false, nil
		}
		return nil, "", false, err
	}
	return b, contentTypeFor(kind), true, nil
}

func contentTypeFor(kind string) string {
	switch kind {
	case "csv":
		return "text/csv; charset=utf-8"
	case "json":
		return "application/json; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Remove deletes every artifact for token, used when a list is deleted.
func (p *Publisher) Remove(token string) {
	for _, kind := range []string{"csv", "json", "txt"} {
		_ = os.Remove(p.pathFor(kind, token))
	}
}
