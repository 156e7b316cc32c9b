// Package walk streams the files below a directory as cancellable batches.
//
// This package re-exports the traversal engine for use outside this module.
package walk

import (
	"context"

	internal "github.com/TFMV/filerec/internal/walk"
	"go.uber.org/zap"
)

// Re-export the types from the internal package
type (
	// Config is the read-only configuration for one traversal.
	Config = internal.Config

	// Item is one discovered file: its key relative to the root and its absolute path.
	Item = internal.Item

	// Stream delivers items in batches until completion, failure or cancellation.
	Stream = internal.Stream

	// Stats is a snapshot of traversal counters.
	Stats = internal.Stats

	// ProgressFn is called periodically with traversal statistics.
	ProgressFn = internal.ProgressFn

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel

	// Error is a classified traversal error.
	Error = internal.Error

	// Kind classifies an error.
	Kind = internal.Kind

	// WatchOptions controls debounce and timeout of Watch.
	WatchOptions = internal.WatchOptions

	// WatchHandler consumes one listing of the watched tree.
	WatchHandler = internal.WatchHandler
)

// Re-export the constants
const (
	DefaultChunkSize = internal.DefaultChunkSize
	DefaultDebounce  = internal.DefaultDebounce

	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug

	KindPermission    = internal.KindPermission
	KindNotExist      = internal.KindNotExist
	KindLoop          = internal.KindLoop
	KindCanceled      = internal.KindCanceled
	KindInvalidConfig = internal.KindInvalidConfig
	KindFatal         = internal.KindFatal
)

// NewConfig returns the default configuration: ".git" excluded, symlinked
// directories not expanded, batches of 1000.
func NewConfig() Config {
	return internal.DefaultConfig()
}

// Start begins a traversal of the absolute directory root.
func Start(ctx context.Context, root string, cfg Config) (*Stream, error) {
	return internal.Start(ctx, root, cfg)
}

// Collect runs a traversal to completion and returns every item.
func Collect(ctx context.Context, root string, cfg Config) ([]Item, error) {
	return internal.Collect(ctx, root, cfg)
}

// Watch lists root, then lists it again whenever the tree changes.
func Watch(ctx context.Context, root string, cfg Config, opts WatchOptions, handler WatchHandler) error {
	return internal.Watch(ctx, root, cfg, opts, handler)
}

// Classify maps an error to its Kind.
func Classify(err error) Kind {
	return internal.Classify(err)
}

// FormatItem renders item through a {}/{key}/{base}/{dir} template.
func FormatItem(template string, item Item) string {
	return internal.FormatItem(template, item)
}

// LoggingProgress returns a ProgressFn that logs each snapshot at debug level.
func LoggingProgress(logger *zap.Logger) ProgressFn {
	return func(stats Stats) {
		logger.Debug("traversal progress",
			zap.Int64("files", stats.FilesEmitted),
			zap.Int64("dirs", stats.DirsListed),
			zap.Int64("batches", stats.BatchesEmitted),
			zap.Float64("files_per_sec", stats.FilesPerSec),
			zap.Duration("elapsed", stats.ElapsedTime),
		)
	}
}
