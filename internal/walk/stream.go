package filerec

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
)

// Stream delivers the files below a root as a sequence of batches.
// The first batch holds ChunkSize items; later ones grow to ten times that.
type Stream struct {
	root    string
	ctx     context.Context
	cancel  context.CancelFunc
	batches chan []Item
	done    chan struct{}
	err     error // written before done is closed; done closes before batches
	stats   *counters
}

// Start begins a traversal of root, which must be an absolute path to an
// existing directory. Invalid input is reported here; failures to list
// the root surface through Err once the stream ends.
func Start(ctx context.Context, root string, cfg Config) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(root) {
		return nil, configError("root must be an absolute path, got %q", root)
	}
	root = filepath.Clean(root)

	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		root:    root,
		ctx:     ctx,
		cancel:  cancel,
		batches: make(chan []Item),
		done:    make(chan struct{}),
		stats:   newCounters(),
	}
	go s.run(cfg)
	return s, nil
}

// Next blocks until the next batch is ready. It returns false when the
// stream has completed, failed, or been cancelled, or when ctx is done.
// A false return caused by ctx leaves the listing incomplete; callers that
// pass a ctx which can expire should check ctx.Err() before trusting the
// result, as Collect does.
func (s *Stream) Next(ctx context.Context) ([]Item, bool) {
	if s.ctx.Err() != nil {
		return nil, false
	}
	select {
	case batch, ok := <-s.batches:
		if !ok || s.ctx.Err() != nil {
			return nil, false
		}
		return batch, true
	case <-ctx.Done():
		return nil, false
	case <-s.ctx.Done():
		return nil, false
	}
}

// Err returns the error that ended the stream, if any. Cancellation is
// not an error.
func (s *Stream) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Cancel stops the traversal and waits for it to unwind. No batch is
// delivered once Cancel has returned. It is safe to call more than once.
func (s *Stream) Cancel() {
	s.cancel()
	<-s.done
}

// Done is closed once the traversal goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stats returns a snapshot of the traversal counters.
func (s *Stream) Stats() Stats {
	return s.stats.snapshot()
}

// Root returns the cleaned traversal root.
func (s *Stream) Root() string {
	return s.root
}

func (s *Stream) run(cfg Config) {
	defer func() {
		close(s.done)
		close(s.batches)
	}()

	logger, owned := loggerFor(cfg)
	if owned {
		defer logger.Sync() //nolint:errcheck
	}

	stopProgress := startProgress(s.stats, cfg.Progress)
	defer stopProgress()

	logger.Debug("starting traversal",
		zap.String("root", s.root),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Int("workers", cfg.Workers),
		zap.Bool("expand_symlinks", cfg.ExpandSymbolicLink),
		zap.Strings("ignored_directories", cfg.IgnoredDirectories),
	)

	b := newBatcher(cfg.ChunkSize, s.send)
	w := newWalker(s.root, cfg, logger, s.stats)
	err := b.flush(s.ctx, w.walk(s.ctx, b.add))

	switch {
	case err == nil:
		stats := s.stats.snapshot()
		logger.Debug("traversal complete",
			zap.String("root", s.root),
			zap.Int64("files", stats.FilesEmitted),
			zap.Int64("dirs", stats.DirsListed),
			zap.Int64("batches", stats.BatchesEmitted),
			zap.Duration("elapsed", stats.ElapsedTime),
		)
	case IsCanceled(err):
		logger.Debug("traversal canceled", zap.String("root", s.root))
	default:
		logger.Error("traversal failed", zap.String("root", s.root), zap.Error(err))
		s.err = err
	}
}

// send hands one batch to the consumer. This is the backpressure point.
func (s *Stream) send(batch []Item) error {
	select {
	case s.batches <- batch:
		s.stats.batches.Add(1)
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// batcher accumulates items and emits them with an adaptive threshold.
// Only the producer goroutine touches it.
type batcher struct {
	chunkSize int
	threshold int
	items     []Item
	emit      func([]Item) error
}

func newBatcher(chunkSize int, emit func([]Item) error) *batcher {
	return &batcher{
		chunkSize: chunkSize,
		threshold: chunkSize,
		items:     make([]Item, 0, chunkSize),
		emit:      emit,
	}
}

func (b *batcher) add(item Item) error {
	b.items = append(b.items, item)
	if len(b.items) < b.threshold {
		return nil
	}
	batch := b.items
	b.threshold = growthFactor * b.chunkSize
	b.items = make([]Item, 0, b.threshold)
	return b.emit(batch)
}

// flush emits the remainder after a clean walk. A cancelled walk drops it.
func (b *batcher) flush(ctx context.Context, walkErr error) error {
	if walkErr != nil {
		b.items = nil
		return walkErr
	}
	if err := ctx.Err(); err != nil {
		b.items = nil
		return err
	}
	if len(b.items) == 0 {
		return nil
	}
	batch := b.items
	b.items = nil
	return b.emit(batch)
}

// Collect runs a traversal to completion and returns every item.
func Collect(ctx context.Context, root string, cfg Config) ([]Item, error) {
	s, err := Start(ctx, root, cfg)
	if err != nil {
		return nil, err
	}
	defer s.Cancel()

	var items []Item
	for {
		batch, ok := s.Next(ctx)
		if !ok {
			break
		}
		items = append(items, batch...)
	}
	if err := ctx.Err(); err != nil {
		return items, err
	}
	return items, s.Err()
}
