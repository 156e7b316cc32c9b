package filerec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies an error met during traversal.
type Kind string

const (
	KindPermission    Kind = "PERMISSION_DENIED"
	KindNotExist      Kind = "NOT_FOUND"
	KindLoop          Kind = "SYMLINK_LOOP"
	KindCanceled      Kind = "CANCELED"
	KindInvalidConfig Kind = "INVALID_CONFIGURATION"
	KindFatal         Kind = "FATAL"
)

// Error is a classified traversal error. Only fatal and invalid-config
// errors are ever returned to callers; the other kinds are absorbed.
type Error struct {
	Kind Kind
	Op   string // operation that failed (list, stat, resolve, config)
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("filerec: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("filerec: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify maps err to a Kind. Already classified errors keep their kind.
func Classify(err error) Kind {
	var ce *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ce):
		return ce.Kind
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, fs.ErrPermission):
		return KindPermission
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return KindNotExist
	case errors.Is(err, syscall.ELOOP):
		return KindLoop
	default:
		return KindFatal
	}
}

// IsCanceled reports whether err represents a cooperative stop.
func IsCanceled(err error) bool {
	return Classify(err) == KindCanceled
}

func configError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidConfig, Op: "config", Err: fmt.Errorf(format, args...)}
}
