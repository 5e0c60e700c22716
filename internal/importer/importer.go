package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/adapter"
	"github.com/listforge/listforge/internal/decode"
	"github.com/listforge/listforge/internal/jobs"
	"github.com/listforge/listforge/internal/metrics"
	"github.com/listforge/listforge/internal/model"
	"github.com/listforge/listforge/internal/publish"
	"github.com/listforge/listforge/internal/schema"
	"github.com/listforge/listforge/internal/storage"
)

// Importer runs the full refresh pipeline for one list at a time: fetch,
// decode, resolve schema, write transactionally, publish.
type Importer struct {
	store    *storage.Store
	internal *adapter.InternalResolver
	pub      *publish.Publisher
	history  *jobs.History
	log      *zap.SugaredLogger

	maxPagesDefault int
}

// New builds an Importer wired to the given storage, internal-loop
// resolver (may be nil if C9 is disabled), publisher and run-history
// recorder (may be nil to skip history tracking).
func New(store *storage.Store, internal *adapter.InternalResolver, pub *publish.Publisher, history *jobs.History, log *zap.SugaredLogger) *Importer {
	return &Importer{store: store, internal: internal, pub: pub, history: history, log: log, maxPagesDefault: 20}
}

// Run executes one import attempt for listID. force bypasses the
// too-recent skip and the inactive-list skip (an explicit trigger).
func (im *Importer) Run(ctx context.Context, listID int64, force bool) ImportResult {
	metrics.ImportStarted()
	defer metrics.ImportFinished()

	started := time.Now()
	result := im.run(ctx, listID, force)
	im.recordHistory(listID, result, started)

	switch {
	case result.IsSuccess():
		metrics.IncOp(listID, "success")
	case result.IsSkipped():
		metrics.IncOp(listID, "skipped")
	case result.IsFailed():
		metrics.IncOp(listID, "failed")
	}
	return result
}

func (im *Importer) recordHistory(listID int64, result ImportResult, started time.Time) {
	if im.history == nil {
		return
	}
	if s, ok := result.SuccessValue(); ok {
		im.history.RecordSuccess(listID, s.Rows, started)
		return
	}
	if s, ok := result.SkippedValue(); ok {
		im.history.RecordSkipped(listID, s.Reason, started)
		return
	}
	if f, ok := result.FailedValue(); ok {
		im.history.RecordFailed(listID, string(f.Kind), f.Err.Error(), f.Logs, started)
	}
}

func (im *Importer) run(ctx context.Context, listID int64, force bool) ImportResult {
	list, columns, err := im.store.GetList(ctx, listID)
	if err != nil {
		return Failed(KindValidation, fmt.Errorf("%w: load list: %v", ErrValidation, err), "")
	}

	if !list.IsActive && !force {
		return Skipped("list is inactive")
	}

	if err := model.Validate(list.UpdateConfig, list.UpdateType, list.UpdateSchedule); err != nil {
		return Failed(KindValidation, fmt.Errorf("%w: %v", ErrValidation, err), "")
	}

	if !force && list.LastUpdate != nil {
		minInterval := list.UpdateConfig.MinUpdateInterval()
		if time.Since(*list.LastUpdate) < minInterval {
			return Skipped("updated too recently")
		}
	}

	records, logs, correctedFormat, err := im.fetchAll(ctx, list)
	if err != nil {
		kind := classifyFetchErr(err)
		return Failed(kind, fmt.Errorf("%w: %w", kind.Sentinel(), err), logs)
	}

	if correctedFormat != "" && correctedFormat != list.DataSourceFormat {
		list.DataSourceFormat = correctedFormat
		list.UpdateConfig.Format = correctedFormat
		if err := im.store.UpdateList(ctx, list); err != nil {
			im.logf("list %d: failed to persist format correction to %s: %v", listID, correctedFormat, err)
		}
	}

	if list.MaxResults > 0 && len(records) > list.MaxResults {
		records = records[:list.MaxResults]
	}

	opts := schema.ResolveOptions{
		RemoveUnusedColumns: list.UpdateConfig.CSV.RemoveUnused(),
		Selected:            list.JSONSelectedColumns,
		AutoCreate:          list.UpdateConfig.AutoCreate(),
		Declared:            declaredColumnTypes(list.UpdateConfig.CSV),
	}
	resolved, warnings := schema.Resolve(columns, records, opts)

	projected := coerceRecords(resolved, records)

	if err := im.store.ReplaceData(ctx, listID, resolved, projected); err != nil {
		return Failed(KindStorage, fmt.Errorf("%w: %v", ErrStorage, err), logs)
	}

	if im.pub != nil && list.AnyPublicEnabled() {
		rows, err := im.store.ReadRows(ctx, listID)
		if err != nil {
			im.logf("publish: reload rows for list %d: %v", listID, err)
		} else if err := im.pub.Generate(list, resolved, rows); err != nil {
			// Publication failures never fail the import itself: the data
			// is already durably stored, only the served artifact is stale.
			im.logf("publish: generate artifacts for list %d: %v", listID, err)
		}
	}

	if len(warnings) == 0 {
		return Success(len(records))
	}
	warnMsgs := make([]string, len(warnings))
	for i, w := range warnings {
		warnMsgs[i] = fmt.Sprintf("%s: %s", w.Column, w.Message)
		im.logf("list %d: %s", listID, warnMsgs[i])
	}
	return SuccessWithWarnings(len(records), warnMsgs)
}

// declaredColumnTypes resolves csv_config.column_types (index-as-string ->
// type) into a name-keyed map, using the same index-to-name convention
// decode.DecodeCSV uses: cfg.ColumnNames when configured, else
// Column1..ColumnN.
func declaredColumnTypes(cfg model.CSVConfig) map[string]model.ColumnType {
	if len(cfg.ColumnTypes) == 0 {
		return nil
	}
	out := make(map[string]model.ColumnType, len(cfg.ColumnTypes))
	for idxStr, t := range cfg.ColumnTypes {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 {
			continue
		}
		name := fmt.Sprintf("Column%d", idx+1)
		if idx < len(cfg.ColumnNames) {
			name = cfg.ColumnNames[idx]
		}
		out[name] = model.ColumnType(t)
	}
	return out
}

func (im *Importer) logf(format string, args ...any) {
	if im.log != nil {
		im.log.Infof(format, args...)
	}
}

// fetchAll resolves the configured adapter and retrieves every page,
// decoding each into records. For CSV sources this is always a single
// fetch; for JSON sources with pagination enabled it follows
// json_next_page_path up to JSONMaxPages (or maxPagesDefault). It also
// returns the format decodePayload actually had to fall back to, if the
// configured format disagreed with the payload (empty string if none did),
// so run can persist the correction.
func (im *Importer) fetchAll(ctx context.Context, list model.List) ([]model.Record, string, model.DataFormat, error) {
	cfg := list.UpdateConfig
	a := adapter.Resolve(cfg, im.internal)

	format := list.DataSourceFormat
	if format == "" {
		format = cfg.ResolvedFormat()
	}

	maxPages := list.JSONMaxPages
	if maxPages <= 0 {
		maxPages = im.maxPagesDefault
	}

	var all []model.Record
	var logs string
	var corrected model.DataFormat
	nextURL := ""
	for page := 0; page < maxPages; page++ {
		payload, err := a.Fetch(ctx, adapter.FetchRequest{Config: cfg, URLOverride: nextURL})
		if err != nil {
			return nil, payload.Logs, "", err
		}
		logs = payload.Logs
		if len(payload.Body) == 0 {
			return nil, logs, "", fmt.Errorf("%w", ErrEmptyOutput)
		}

		records, next, usedFormat, err := decodePayload(payload, format, list)
		if err != nil {
			return nil, logs, "", err
		}
		if usedFormat != format {
			corrected = usedFormat
		}
		all = append(all, records...)

		if !list.JSONPaginationEnabled || next == "" {
			break
		}
		nextURL = next
	}
	return all, logs, corrected, nil
}

// decodePayload decodes payload per format, returning the format actually
// used to decode it: ordinarily the same as format, but if format disagreed
// with the payload's real shape, the other decoder's format is returned
// instead so the caller can persist the correction (§4.5 step 5).
func decodePayload(payload adapter.Payload, format model.DataFormat, list model.List) ([]model.Record, string, model.DataFormat, error) {
	autoCreate := list.UpdateConfig.AutoCreate()
	switch format {
	case model.FormatCSV:
		// Format-mismatch auto-correction: a source declared CSV that
		// actually returned JSON is a common misconfiguration; a body that
		// is valid JSON is tried with the JSON decoder first, rather than
		// forcing a manual fix for data that's perfectly decodable.
		if json.Valid(payload.Body) {
			if res, jerr := decode.DecodeJSON(payload.Body, list.JSONDataPath, list.JSONSelectedColumns, list.JSONNextPagePath, autoCreate); jerr == nil {
				return res.Records, res.NextPage, model.FormatJSON, nil
			}
		}
		records, err := decode.DecodeCSV(payload.Body, list.UpdateConfig.CSV)
		if err != nil {
			return nil, "", "", fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return records, "", model.FormatCSV, nil
	default:
		res, err := decode.DecodeJSON(payload.Body, list.JSONDataPath, list.JSONSelectedColumns, list.JSONNextPagePath, autoCreate)
		if err != nil {
			if records, cerr := decode.DecodeCSV(payload.Body, list.UpdateConfig.CSV); cerr == nil {
				return records, "", model.FormatCSV, nil
			}
			return nil, "", "", fmt.Errorf("%w: %v", ErrFormat, err)
		}
		return res.Records, res.NextPage, model.FormatJSON, nil
	}
}

// coerceRecords projects every record onto the resolved column set,
// coercing each cell per its column's declared/inferred type (§4.5 step 7):
// a number that fails to parse is dropped (null cell); a recognizable date
// is normalized to ISO YYYY-MM-DD; booleans and text pass through as-is.
// IP values are validated on read, not on import, so they also pass
// through unchanged here.
func coerceRecords(columns []model.Column, records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, rec := range records {
		row := model.Record{}
		for _, c := range columns {
			v, ok := rec[c.Name]
			if !ok {
				continue
			}
			cv, keep := coerceCell(c.Type, v)
			if keep {
				row[c.Name] = cv
			}
		}
		out[i] = row
	}
	return out
}

// dateLayouts are the formats coerceCell recognizes when normalizing a
// date-typed cell to ISO YYYY-MM-DD.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

// coerceCell applies typ's coercion rule to v, returning the coerced value
// and whether the cell should be kept at all (false means drop it as a
// null cell, per a numeric value that fails to parse).
func coerceCell(typ model.ColumnType, v string) (string, bool) {
	if v == "" {
		return v, true
	}
	switch typ {
	case model.ColNumber:
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return "", false
		}
		return v, true
	case model.ColDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Format("2006-01-02"), true
			}
		}
		return v, true
	default:
		return v, true
	}
}

func classifyFetchErr(err error) ErrorKind {
	switch {
	case errors.Is(err, adapter.ErrEmptyOutput), errors.Is(err, ErrEmptyOutput):
		return KindEmptyOutput
	case errors.Is(err, ErrFormat):
		return KindFormat
	default:
		return KindTransport
	}
}
