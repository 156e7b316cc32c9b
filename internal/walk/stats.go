package filerec

import (
	"sync"
	"sync/atomic"
	"time"
)

// progressInterval is how often ProgressFn is called during a traversal.
const progressInterval = 500 * time.Millisecond

// ProgressFn is called periodically with traversal statistics.
// It runs on its own goroutine, never concurrently with itself.
type ProgressFn func(stats Stats)

// Stats is a snapshot of traversal counters.
type Stats struct {
	FilesEmitted     int64         // Items handed to the batcher
	DirsListed       int64         // Directories successfully listed
	SymlinksFollowed int64         // Symlinked directories descended into
	LoopsSkipped     int64         // Symlinks skipped as cycles
	PermissionDenied int64         // Directories treated as empty on EACCES
	EntriesSkipped   int64         // Vanished, dangling or unreadable entries
	BatchesEmitted   int64         // Batches delivered to the consumer
	ElapsedTime      time.Duration // Time since the traversal started
	FilesPerSec      float64       // Emission rate
}

// counters holds the live values behind Stats.
type counters struct {
	files     atomic.Int64
	dirs      atomic.Int64
	symlinks  atomic.Int64
	loops     atomic.Int64
	denied    atomic.Int64
	skipped   atomic.Int64
	batches   atomic.Int64
	startTime time.Time
}

func newCounters() *counters {
	return &counters{startTime: time.Now()}
}

func (c *counters) snapshot() Stats {
	s := Stats{
		FilesEmitted:     c.files.Load(),
		DirsListed:       c.dirs.Load(),
		SymlinksFollowed: c.symlinks.Load(),
		LoopsSkipped:     c.loops.Load(),
		PermissionDenied: c.denied.Load(),
		EntriesSkipped:   c.skipped.Load(),
		BatchesEmitted:   c.batches.Load(),
		ElapsedTime:      time.Since(c.startTime),
	}
	s.updateDerivedStats()
	return s
}

// updateDerivedStats calculates derived statistics like rates.
func (s *Stats) updateDerivedStats() {
	elapsedSec := s.ElapsedTime.Seconds()
	if elapsedSec > 0 && s.FilesEmitted > 0 {
		s.FilesPerSec = float64(s.FilesEmitted) / elapsedSec
	} else {
		s.FilesPerSec = 0
	}
}

// startProgress calls fn every progressInterval until the returned stop
// function is called. stop delivers one final update and waits.
func startProgress(c *counters, fn ProgressFn) (stop func()) {
	if fn == nil {
		return func() {}
	}

	doneCh := make(chan struct{})
	var tickerWg sync.WaitGroup
	tickerWg.Add(1)
	go func() {
		defer tickerWg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-doneCh:
				return
			case <-ticker.C:
				fn(c.snapshot())
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(doneCh)
			tickerWg.Wait()
			fn(c.snapshot())
		})
	}
}
