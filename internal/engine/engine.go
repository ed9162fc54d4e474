// Package engine wraps the external retrieval/transcode tool behind
// an interface so the orchestrator and tests stay independent of the
// actual binary.
package engine

import (
	"context"

	"github.com/mediagrab/api/internal/model"
)

// ProgressFunc receives download progress as an integer percentage.
// Callers must tolerate out-of-order and duplicate deliveries; the
// registry applies a monotonic floor.
type ProgressFunc func(percent int)

// MediaInfo carries basic metadata for preview before downloading.
type MediaInfo struct {
	Title     string
	Thumbnail string
	Duration  int
	Uploader  string
}

// FetchRequest describes one retrieval/transcode run.
type FetchRequest struct {
	SourceURL string
	Format    model.Format
	OutputDir string
	// Tag is embedded in the output filename so concurrent jobs for
	// the same title never collide and the result can be located.
	Tag          string
	CookiesFile  string
	MaxFileBytes int64
}

// FetchResult is the terminal outcome of a successful fetch.
type FetchResult struct {
	OutputPath string
	Filename   string
}

// Engine performs the actual media retrieval and format conversion.
type Engine interface {
	Probe(ctx context.Context, url string) (*MediaInfo, error)
	Fetch(ctx context.Context, req FetchRequest, progress ProgressFunc) (*FetchResult, error)
}
