package filerec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for the tree to settle.
const DefaultDebounce = 200 * time.Millisecond

// WatchOptions defines options for watching a tree.
type WatchOptions struct {
	// Quiet period after the last event before the tree is listed again
	Debounce time.Duration

	// Timeout duration (0 means no timeout)
	Timeout time.Duration
}

// WatchHandler consumes one traversal. Watch cancels the stream once the
// handler returns. A handler error ends Watch.
type WatchHandler func(ctx context.Context, s *Stream) error

// Watch lists root once, then lists it again every time the tree changes,
// until ctx is done. Excluded directories are not watched.
func Watch(ctx context.Context, root string, cfg Config, opts WatchOptions, handler WatchHandler) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	logger, owned := loggerFor(cfg)
	if owned {
		defer logger.Sync() //nolint:errcheck
		cfg.Logger = logger
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	excluded := newExclusions(cfg.IgnoredDirectories)
	if err := addTree(watcher, root, excluded, logger); err != nil {
		return fmt.Errorf("error watching directory %s: %w", root, err)
	}

	list := func() error {
		s, err := Start(ctx, root, cfg)
		if err != nil {
			return err
		}
		defer s.Cancel()
		return handler(ctx, s)
	}

	if err := list(); err != nil {
		return err
	}

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !excluded.has(filepath.Base(event.Name)) {
					if err := addTree(watcher, event.Name, excluded, logger); err != nil {
						logger.Warn("error watching new directory", zap.String("path", event.Name), zap.Error(err))
					}
				}
			}
			logger.Debug("change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(opts.Debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			if err := list(); err != nil {
				return err
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// addTree watches dir and every directory below it that is not excluded.
// Unreadable subdirectories are skipped.
func addTree(watcher *fsnotify.Watcher, dir string, excluded exclusions, logger *zap.Logger) error {
	return godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if !de.IsDir() {
				return nil
			}
			if path != dir && excluded.has(de.Name()) {
				return filepath.SkipDir
			}
			if err := watcher.Add(path); err != nil {
				if path == dir {
					return err
				}
				logger.Debug("error watching directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if path == dir {
				return godirwalk.Halt
			}
			return godirwalk.SkipNode
		},
	})
}
