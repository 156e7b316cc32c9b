package filerec

import (
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultChunkSize is the nominal batch size.
	DefaultChunkSize = 1000

	// growthFactor multiplies the chunk size once the first batch is out.
	growthFactor = 10
)

// DefaultIgnoredDirectories are never descended into unless overridden.
var DefaultIgnoredDirectories = []string{".git"}

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Config is the read-only configuration for one traversal.
type Config struct {
	IgnoredDirectories []string // Directory base names never descended into
	ExpandSymbolicLink bool     // Descend into symlinks that point at directories
	ChunkSize          int      // Nominal batch size, must be positive
	Workers            int      // Sibling subtrees listed in parallel when > 1

	Logger   *zap.Logger
	LogLevel LogLevel
	Progress ProgressFn
}

// DefaultConfig returns the configuration used when the caller sets nothing.
func DefaultConfig() Config {
	return Config{
		IgnoredDirectories: append([]string(nil), DefaultIgnoredDirectories...),
		ChunkSize:          DefaultChunkSize,
		Workers:            1,
		LogLevel:           LogLevelInfo,
	}
}

// Validate checks the invariants Start relies on.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return configError("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.Workers < 0 {
		return configError("workers must not be negative, got %d", c.Workers)
	}
	for _, name := range c.IgnoredDirectories {
		if name == "" {
			return configError("ignored directory names must not be empty")
		}
	}
	return nil
}

// exclusions is a set of NFC-normalized directory base names.
type exclusions map[string]struct{}

func newExclusions(names []string) exclusions {
	set := make(exclusions, len(names))
	for _, name := range names {
		set[norm.NFC.String(name)] = struct{}{}
	}
	return set
}

// has matches by base name only. Some filesystems report names in NFD.
func (e exclusions) has(name string) bool {
	if len(e) == 0 {
		return false
	}
	if _, ok := e[name]; ok {
		return true
	}
	_, ok := e[norm.NFC.String(name)]
	return ok
}
