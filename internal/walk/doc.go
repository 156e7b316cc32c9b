// Package filerec lists every file below a root directory as a stream of
// batches.
//
// The traversal is depth-first and cooperative: it checks its context
// before every directory listing and every entry, so cancelling a Stream
// stops it within one filesystem operation. Permission errors on
// subdirectories, entries that vanish mid-scan, dangling symlinks and
// symlink cycles are absorbed; only a root that cannot be listed ends the
// stream with an error.
//
// Batches grow: the first one is released after ChunkSize items so a
// consumer can render something quickly, later ones after ten times that.
package filerec
