package filerec

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// createTestTree creates the given files (slash separated, relative to root)
// with their parent directories.
func createTestTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
}

// symlink creates link (relative to root) pointing at target.
func symlink(t *testing.T, root, target, link string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(link))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.Symlink(filepath.FromSlash(target), path))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Logger = zap.NewNop()
	return cfg
}

// collectKeys runs a full traversal and returns the sorted, slash
// separated keys.
func collectKeys(t *testing.T, root string, cfg Config) []string {
	t.Helper()
	items, err := Collect(context.Background(), root, cfg)
	require.NoError(t, err)
	return sortedKeys(items)
}

func sortedKeys(items []Item) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, filepath.ToSlash(item.Key))
	}
	sort.Strings(keys)
	return keys
}
