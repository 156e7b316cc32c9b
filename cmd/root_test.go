package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	filerec "github.com/TFMV/filerec/internal/walk"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{"a.txt", "b/c.txt", ".git/HEAD", "node_modules/x.js"} {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0o644))
	}
	return root
}

// resetViper restores flag defaults between tests.
func resetViper(t *testing.T, overrides map[string]any) {
	t.Helper()
	viper.Reset()
	viper.Set("chunk-size", filerec.DefaultChunkSize)
	viper.Set("ignore-dir", []string{".git"})
	viper.Set("workers", 1)
	viper.Set("format", "text")
	viper.Set("silent", true)
	for k, v := range overrides {
		viper.Set(k, v)
	}
	t.Cleanup(viper.Reset)
}

func outputLines(buf *bytes.Buffer) []string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	sort.Strings(lines)
	return lines
}

func TestRunListText(t *testing.T) {
	root := setupTree(t)
	resetViper(t, nil)

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), root, &buf))

	want := []string{"a.txt", filepath.Join("b", "c.txt"), filepath.Join("node_modules", "x.js")}
	assert.Equal(t, want, outputLines(&buf))
}

func TestRunListIgnoreDirs(t *testing.T) {
	root := setupTree(t)
	resetViper(t, map[string]any{"ignore-dir": []string{".git", "node_modules"}, "workers": 3})

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), root, &buf))

	assert.Equal(t, []string{"a.txt", filepath.Join("b", "c.txt")}, outputLines(&buf))
}

func TestRunListJSON(t *testing.T) {
	root := setupTree(t)
	resetViper(t, map[string]any{"format": "json", "ignore-dir": []string{".git", "node_modules"}})

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), root, &buf))

	for _, line := range outputLines(&buf) {
		var item filerec.Item
		require.NoError(t, json.Unmarshal([]byte(line), &item))
		assert.Equal(t, filepath.Join(root, item.Key), item.Path)
	}
}

func TestRunListTemplate(t *testing.T) {
	root := setupTree(t)
	resetViper(t, map[string]any{"template": "{base}", "ignore-dir": []string{".git", "node_modules"}})

	var buf bytes.Buffer
	require.NoError(t, runList(context.Background(), root, &buf))

	assert.Equal(t, []string{"a.txt", "c.txt"}, outputLines(&buf))
}

func TestRunListInvalidInput(t *testing.T) {
	root := setupTree(t)

	resetViper(t, map[string]any{"format": "xml"})
	assert.Error(t, runList(context.Background(), root, &bytes.Buffer{}))

	resetViper(t, map[string]any{"chunk-size": 0})
	assert.Error(t, runList(context.Background(), root, &bytes.Buffer{}))

	resetViper(t, nil)
	err := runList(context.Background(), filepath.Join(root, "missing"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, filerec.KindFatal, filerec.Classify(err))
}

func TestResolveRoot(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	root, err := resolveRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, wd, root)

	root, err = resolveRoot([]string{"sub/dir"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "sub", "dir"), root)
}
