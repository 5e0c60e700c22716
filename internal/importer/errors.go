// Package importer is the Importer pipeline (C5): orchestrating a single
// list's refresh from source fetch through schema resolution to the
// transactional storage write, and producing one ImportResult per run.
package importer

import "errors"

// ErrorKind classifies why an import attempt failed, per §7. Kinds map
// 1:1 onto the sentinel errors below; importer.Run never returns a bare
// sentinel, it always wraps one so %w/errors.Is still matches.
type ErrorKind string

const (
	KindTransport      ErrorKind = "transport"
	KindTLS            ErrorKind = "tls"
	KindProxy          ErrorKind = "proxy"
	KindHTTPStatus     ErrorKind = "http_status"
	KindCommand        ErrorKind = "command"
	KindEmptyOutput    ErrorKind = "empty_output"
	KindFormat         ErrorKind = "format"
	KindPath           ErrorKind = "path"
	KindSchemaConflict ErrorKind = "schema_conflict"
	KindValidation     ErrorKind = "validation"
	KindDenied         ErrorKind = "denied"
	KindStorage        ErrorKind = "storage"
)

// Sentinel errors, one per ErrorKind, checked with errors.Is per the
// teacher's errors.Is(err, sql.ErrNoRows) idiom throughout its codebase.
var (
	ErrTransport      = errors.New("importer: transport error")
	ErrTLS            = errors.New("importer: tls verification failed")
	ErrProxy          = errors.New("importer: proxy rejected or unreachable")
	ErrHTTPStatus     = errors.New("importer: non-2xx http status")
	ErrCommand        = errors.New("importer: command exited non-zero")
	ErrEmptyOutput    = errors.New("importer: source produced no output")
	ErrFormat         = errors.New("importer: payload did not match declared format")
	ErrPath           = errors.New("importer: json_data_path did not resolve")
	ErrSchemaConflict = errors.New("importer: incoming data conflicts with existing schema")
	ErrValidation     = errors.New("importer: configuration validation failed")
	ErrDenied         = errors.New("importer: source fetch denied by policy")
	ErrStorage        = errors.New("importer: failed to write imported data")
)

// kindToErr is used by classify to pick the sentinel matching a Kind.
var kindToErr = map[ErrorKind]error{
	KindTransport:      ErrTransport,
	KindTLS:            ErrTLS,
	KindProxy:          ErrProxy,
	KindHTTPStatus:     ErrHTTPStatus,
	KindCommand:        ErrCommand,
	KindEmptyOutput:    ErrEmptyOutput,
	KindFormat:         ErrFormat,
	KindPath:           ErrPath,
	KindSchemaConflict: ErrSchemaConflict,
	KindValidation:     ErrValidation,
	KindDenied:         ErrDenied,
	KindStorage:        ErrStorage,
}

// Sentinel returns the sentinel error associated with k, or ErrTransport
// if k is unrecognized (treated as the most conservative default).
func (k ErrorKind) Sentinel() error {
	if err, ok := kindToErr[k]; ok {
		return err
	}
	return ErrTransport
}
