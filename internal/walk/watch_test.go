package filerec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingHandler sends the sorted keys of every listing to listings.
func listingHandler(listings chan<- []string) WatchHandler {
	return func(ctx context.Context, s *Stream) error {
		var items []Item
		for {
			batch, ok := s.Next(ctx)
			if !ok {
				break
			}
			items = append(items, batch...)
		}
		if err := s.Err(); err != nil {
			return err
		}
		select {
		case listings <- sortedKeys(items):
		case <-ctx.Done():
		}
		return nil
	}
}

// waitForListing waits until a listing satisfying match arrives.
func waitForListing(t *testing.T, listings <-chan []string, match func([]string) bool) []string {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case keys := <-listings:
			t.Logf("Received listing: %v", keys)
			if match(keys) {
				return keys
			}
		case <-timeout:
			t.Fatal("Timed out waiting for listing")
			return nil
		}
	}
}

func TestWatchRelistsOnChange(t *testing.T) {
	root := t.TempDir()
	createTestTree(t, root, "initial.txt", "sub/existing.txt")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listings := make(chan []string, 16)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Watch(ctx, root, testConfig(), WatchOptions{Debounce: 50 * time.Millisecond}, listingHandler(listings))
	}()

	first := waitForListing(t, listings, func([]string) bool { return true })
	assert.Equal(t, []string{"initial.txt", "sub/existing.txt"}, first)

	// A file in an already watched subdirectory.
	createTestTree(t, root, "sub/added.txt")
	waitForListing(t, listings, func(keys []string) bool {
		return assert.ObjectsAreEqual([]string{"initial.txt", "sub/added.txt", "sub/existing.txt"}, keys)
	})

	// A directory created after the watch started is watched too.
	require.NoError(t, os.Mkdir(filepath.Join(root, "fresh"), 0o755))
	time.Sleep(200 * time.Millisecond)
	createTestTree(t, root, "fresh/new.txt")
	waitForListing(t, listings, func(keys []string) bool {
		for _, k := range keys {
			if k == "fresh/new.txt" {
				return true
			}
		}
		return false
	})

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchTimeout(t *testing.T) {
	root := t.TempDir()
	listings := make(chan []string, 4)

	start := time.Now()
	err := Watch(context.Background(), root, testConfig(), WatchOptions{Timeout: 300 * time.Millisecond}, listingHandler(listings))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Len(t, listings, 1)
}

func TestWatchMissingRoot(t *testing.T) {
	listings := make(chan []string, 1)
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), testConfig(), WatchOptions{}, listingHandler(listings))
	assert.Error(t, err)
}

func TestWatchInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.ChunkSize = 0
	err := Watch(context.Background(), t.TempDir(), cfg, WatchOptions{}, listingHandler(make(chan []string, 1)))
	assert.Equal(t, KindInvalidConfig, Classify(err))
}
