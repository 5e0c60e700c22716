package decode

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/listforge/listforge/internal/model"
)

// DecodeCSV parses body per cfg's dialect. When cfg.HasHeader is false, it
// takes a fast path recognizing a bare newline-delimited list of IP
// addresses/CIDRs — the single most common shape of the plain-text feeds
// this importer ingests — and synthesizes one column (named per
// cfg.ColumnNames, or "Column1" by default) rather than running the CSV
// reader. Otherwise the reader splits on the first rune of cfg.Separator,
// or ',' when none is configured; the delimiter is not sniffed from body.
func DecodeCSV(body []byte, cfg model.CSVConfig) ([]model.Record, error) {
	if !cfg.HasHeader && looksLikeIPList(body) {
		return decodeIPList(body, cfg.ColumnNames), nil
	}

	sep := ','
	if cfg.Separator != "" {
		r := []rune(cfg.Separator)
		sep = r[0]
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode: invalid csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var header []string
	start := 0
	if cfg.HasHeader {
		header = rows[0]
		start = 1
	} else if len(cfg.ColumnNames) > 0 {
		header = cfg.ColumnNames
	} else {
		header = make([]string, len(rows[0]))
		for i := range header {
			header[i] = fmt.Sprintf("Column%d", i+1)
		}
	}

	include := map[int]bool{}
	if len(cfg.ColumnsToImport) > 0 {
		for _, i := range cfg.ColumnsToImport {
			include[i] = true
		}
	}

	records := make([]model.Record, 0, len(rows)-start)
	for _, row := range rows[start:] {
		rec := model.Record{}
		for i, v := range row {
			if len(include) > 0 && !include[i] {
				continue
			}
			name := fmt.Sprintf("Column%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			rec[name] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func looksLikeIPList(body []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	checked, matched := 0, 0
	for scanner.Scan() && checked < 20 {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		checked++
		host := line
		if idx := strings.IndexByte(line, '/'); idx >= 0 {
			host = line[:idx]
			if _, err := strconv.Atoi(line[idx+1:]); err != nil {
				continue
			}
		}
		if net.ParseIP(host) != nil {
			matched++
		}
	}
	return checked > 0 && matched == checked
}

func decodeIPList(body []byte, columnNames []string) []model.Record {
	name := "Column1"
	if len(columnNames) > 0 {
		name = columnNames[0]
	}
	var records []model.Record
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		records = append(records, model.Record{name: line})
	}
	return records
}
