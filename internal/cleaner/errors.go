package cleaner

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/kclejeune/kegscrub/internal/fsutil"
	"github.com/kclejeune/kegscrub/internal/walk"
)

type ErrorKind int

const (
	ErrOther ErrorKind = iota
	ErrPermission
	ErrNotEmpty
)

func (k ErrorKind) String() string {
	switch k {
	case ErrPermission:
		return "permission denied"
	case ErrNotEmpty:
		return "not empty"
	default:
		return "other"
	}
}

// EntryError is a failure confined to a single path. It never stops a run.
type EntryError struct {
	Op   string
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

func (e *EntryError) Kind() ErrorKind {
	switch {
	case fsutil.IsPermission(e.Err):
		return ErrPermission
	case fsutil.IsNotEmpty(e.Err):
		return ErrNotEmpty
	default:
		return ErrOther
	}
}

// entryErr wraps err for path, or returns nil when the path is already
// gone: that is the state cleaning wanted anyway.
func entryErr(op, path string, err error) error {
	if err == nil || fsutil.IsNotExist(err) {
		return nil
	}
	return &EntryError{Op: op, Path: path, Err: err}
}

// Errors flattens a joined error into its individual failures.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Errors(e)...)
		}
		return out
	}
	return []error{err}
}

// wrapWalkErr turns the raw filesystem failures a walk collects into
// EntryErrors so they classify like every other per-path failure.
func wrapWalkErr(err error) error {
	var out []error
	for _, e := range Errors(err) {
		var (
			ee *EntryError
			pe *fs.PathError
		)
		switch {
		case errors.As(e, &ee), errors.Is(e, walk.ErrInvalidRoot):
			out = append(out, e)
		case errors.As(e, &pe):
			out = append(out, entryErr(pe.Op, pe.Path, pe.Err))
		default:
			out = append(out, e)
		}
	}
	return errors.Join(out...)
}
