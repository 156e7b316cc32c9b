package filerec

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"
)

// scratchBufferSize is the per-goroutine buffer handed to godirwalk.
const scratchBufferSize = 64 * 1024

// Item is one discovered file.
type Item struct {
	Key  string `json:"key"`  // Path relative to the traversal root
	Path string `json:"path"` // Absolute path
}

// yieldFn receives each discovered item. A non-nil error stops the walk.
type yieldFn func(Item) error

// pendingDir is a directory waiting to be listed. chain holds the real
// paths of every directory on the way down to it, itself included.
type pendingDir struct {
	path  string
	chain []string
}

// walker performs the depth-first traversal below one fixed root.
// It holds no mutable state shared between branches besides the counters.
type walker struct {
	root     string
	cfg      Config
	excluded exclusions
	logger   *zap.Logger
	stats    *counters
}

func newWalker(root string, cfg Config, logger *zap.Logger, stats *counters) *walker {
	return &walker{
		root:     root,
		cfg:      cfg,
		excluded: newExclusions(cfg.IgnoredDirectories),
		logger:   logger,
		stats:    stats,
	}
}

// walk runs the traversal, sequentially or with a bounded worker group.
func (w *walker) walk(ctx context.Context, yield yieldFn) error {
	realRoot, err := filepath.EvalSymlinks(w.root)
	if err != nil {
		return &Error{Kind: KindFatal, Op: "resolve", Path: w.root, Err: err}
	}
	start := pendingDir{path: w.root, chain: []string{realRoot}}

	if w.cfg.Workers > 1 {
		return w.walkParallel(ctx, start, yield)
	}
	scratch := make([]byte, scratchBufferSize)
	return w.walkDir(ctx, start, scratch, yield)
}

// walkDir is the sequential, recursive reference traversal.
func (w *walker) walkDir(ctx context.Context, dir pendingDir, scratch []byte, yield yieldFn) error {
	return w.processDir(ctx, dir, scratch, yield, func(sub pendingDir) error {
		return w.walkDir(ctx, sub, scratch, yield)
	})
}

// processDir lists dir and handles each entry: files go to yield,
// directories to descend.
func (w *walker) processDir(ctx context.Context, dir pendingDir, scratch []byte, yield yieldFn, descend func(pendingDir) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirents, err := w.list(dir.path, scratch)
	if err != nil {
		return err
	}

	for _, de := range dirents {
		if err := ctx.Err(); err != nil {
			return err
		}
		sub, item, ok := w.inspect(dir, de)
		if !ok {
			continue
		}
		if sub != nil {
			if err := descend(*sub); err != nil {
				return err
			}
			continue
		}
		w.stats.files.Add(1)
		if err := yield(item); err != nil {
			return err
		}
	}
	return nil
}

// list reads the entries of dir. Permission denied and directories that
// vanished since they were seen are reported as empty. Failing to list
// the root is always fatal.
func (w *walker) list(dir string, scratch []byte) (godirwalk.Dirents, error) {
	dirents, err := godirwalk.ReadDirents(dir, scratch)
	if err == nil {
		w.stats.dirs.Add(1)
		return dirents, nil
	}

	if dir == w.root {
		return nil, &Error{Kind: KindFatal, Op: "list", Path: dir, Err: err}
	}

	switch Classify(err) {
	case KindPermission:
		w.stats.denied.Add(1)
		w.logger.Debug("permission denied, treating directory as empty", zap.String("path", dir))
		return nil, nil
	case KindNotExist:
		w.stats.skipped.Add(1)
		w.logger.Debug("directory vanished during traversal", zap.String("path", dir))
		return nil, nil
	default:
		return nil, &Error{Kind: KindFatal, Op: "list", Path: dir, Err: err}
	}
}

// inspect decides what to do with one entry of dir. It returns either a
// directory to descend into or an item to emit; ok is false when the
// entry is skipped.
func (w *walker) inspect(dir pendingDir, de *godirwalk.Dirent) (sub *pendingDir, item Item, ok bool) {
	name := de.Name()
	path := filepath.Join(dir.path, name)

	switch {
	case de.IsDir():
		if w.excluded.has(name) {
			w.logger.Debug("skipping excluded directory", zap.String("path", path))
			return nil, Item{}, false
		}
		realPath := filepath.Join(dir.chain[len(dir.chain)-1], name)
		return &pendingDir{path: path, chain: append(slices.Clip(dir.chain), realPath)}, Item{}, true

	case de.IsSymlink():
		return w.inspectSymlink(dir, name, path)

	default:
		if _, err := os.Lstat(path); err != nil {
			w.stats.skipped.Add(1)
			w.logger.Debug("skipping entry that vanished", zap.String("path", path), zap.Error(err))
			return nil, Item{}, false
		}
		return nil, w.item(path), true
	}
}

func (w *walker) inspectSymlink(dir pendingDir, name, path string) (*pendingDir, Item, bool) {
	info, err := os.Stat(path)
	if err != nil {
		w.stats.skipped.Add(1)
		w.logger.Debug("skipping unresolvable symlink",
			zap.String("path", path),
			zap.String("kind", string(Classify(err))),
		)
		return nil, Item{}, false
	}

	// Links to files are always files. Links to directories are only
	// descended into when expansion is on; otherwise the link itself is
	// the item.
	if !info.IsDir() || !w.cfg.ExpandSymbolicLink {
		return nil, w.item(path), true
	}

	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.stats.skipped.Add(1)
		w.logger.Debug("skipping symlink that vanished", zap.String("path", path), zap.Error(err))
		return nil, Item{}, false
	}
	if isLoop(realPath, dir.chain) {
		w.stats.loops.Add(1)
		w.logger.Debug("skipping looped symlink", zap.String("path", path), zap.String("target", realPath))
		return nil, Item{}, false
	}
	if w.excluded.has(name) {
		w.logger.Debug("skipping excluded directory", zap.String("path", path))
		return nil, Item{}, false
	}

	w.stats.symlinks.Add(1)
	return &pendingDir{path: path, chain: append(slices.Clip(dir.chain), realPath)}, Item{}, true
}

// item builds the Item for path, which always lies below the root.
func (w *walker) item(path string) Item {
	key := strings.TrimPrefix(path[len(w.root):], string(filepath.Separator))
	return Item{Key: key, Path: path}
}

// isLoop reports whether target is one of the directories in chain or an
// ancestor of one of them. Comparison is by whole path components.
func isLoop(target string, chain []string) bool {
	for _, dir := range chain {
		if isWithin(target, dir) {
			return true
		}
	}
	return false
}

// isWithin reports whether path equals base or lies below it.
func isWithin(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
