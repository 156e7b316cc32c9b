package filerec

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// dirQueue is a LIFO of directories still to be listed, shared by the
// workers of a parallel walk. It is drained once it is empty and no
// worker holds a directory that could push more.
type dirQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	stack  []pendingDir
	active int
	closed bool
}

func newDirQueue(start pendingDir) *dirQueue {
	q := &dirQueue{stack: []pendingDir{start}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *dirQueue) push(d pendingDir) {
	q.mu.Lock()
	q.stack = append(q.stack, d)
	q.mu.Unlock()
	q.cond.Signal()
}

// pop blocks until a directory is available. It returns false once the
// queue is drained or closed.
func (q *dirQueue) pop() (pendingDir, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.stack) == 0 && q.active > 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed || len(q.stack) == 0 {
		q.cond.Broadcast()
		return pendingDir{}, false
	}
	d := q.stack[len(q.stack)-1]
	q.stack[len(q.stack)-1] = pendingDir{}
	q.stack = q.stack[:len(q.stack)-1]
	q.active++
	return d, true
}

// done marks a popped directory as fully processed.
func (q *dirQueue) done() {
	q.mu.Lock()
	q.active--
	drained := q.active == 0 && len(q.stack) == 0
	q.mu.Unlock()
	if drained {
		q.cond.Broadcast()
	}
}

func (q *dirQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// walkParallel lists sibling subtrees on cfg.Workers goroutines. Items are
// funnelled through one channel so yield is only ever called from the
// calling goroutine.
func (w *walker) walkParallel(ctx context.Context, start pendingDir, yield yieldFn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := newDirQueue(start)
	stop := context.AfterFunc(ctx, queue.close)
	defer stop()

	items := make(chan Item, w.cfg.Workers*16)

	var (
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		if IsCanceled(err) {
			return
		}
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	send := func(item Item) error {
		select {
		case items <- item:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	worker := func() {
		scratch := make([]byte, scratchBufferSize)
		for {
			dir, ok := queue.pop()
			if !ok {
				return
			}
			err := w.processDir(ctx, dir, scratch, send, func(sub pendingDir) error {
				queue.push(sub)
				return nil
			})
			queue.done()
			if err != nil {
				fail(err)
				return
			}
		}
	}

	w.logger.Debug("starting parallel walk", zap.String("root", w.root), zap.Int("workers", w.cfg.Workers))

	var wg conc.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Go(worker)
	}
	go func() {
		wg.Wait()
		close(items)
	}()

	for item := range items {
		if err := yield(item); err != nil {
			fail(err)
			cancel()
			for range items {
			}
			if firstErr != nil {
				return firstErr
			}
			return err
		}
	}

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
