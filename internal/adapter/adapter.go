// Package adapter implements the Source Adapters (C2): turning a list's
// UpdateConfig into a fetched payload, one concrete adapter per Source
// (url, curl/shell, script), plus the Internal-Loop Shortcut (C9) that
// detects when a url source actually points back at this server's own
// published endpoint and short-circuits the HTTP round-trip.
package adapter

import (
	"context"
	"time"

	"github.com/listforge/listforge/internal/model"
)

// Payload is what a Fetch call hands back to the decoder: raw bytes plus
// whatever the source told us (or didn't) about their shape, and any
// captured process output for diagnostics.
type Payload struct {
	Body        []byte
	ContentType string
	Logs        string
}

// FetchRequest carries the resolved config plus an optional pagination
// override, since JSON pagination (§4.3) re-invokes the same adapter
// against a "next page" URL/cursor extracted from the previous payload
// rather than the list's originally configured URL.
type FetchRequest struct {
	Config      model.UpdateConfig
	URLOverride string
}

// Adapter fetches one page of raw data from a configured source.
type Adapter interface {
	Fetch(ctx context.Context, req FetchRequest) (Payload, error)
}

// Resolve picks the concrete Adapter for cfg's resolved source.
func Resolve(cfg model.UpdateConfig, internal *InternalResolver) Adapter {
	switch cfg.ResolvedSource() {
	case model.SourceCurl:
		return &ShellAdapter{Internal: internal}
	case model.SourceScript:
		return &ScriptAdapter{}
	default:
		return &URLAdapter{Internal: internal}
	}
}

func timeoutOrDefault(cfg model.UpdateConfig, def time.Duration) time.Duration {
	return cfg.Timeout(def)
}
