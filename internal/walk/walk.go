// Package walk implements a depth-first tree walk whose visit function
// controls traversal with an explicit Action instead of a sentinel error.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/kclejeune/kegscrub/internal/fsutil"
)

// ErrInvalidRoot is returned when the walk root is missing or is not a
// directory. It is the only error that stops a walk before it starts.
var ErrInvalidRoot = errors.New("invalid walk root")

var errNotDir = errors.New("not a directory")

// RootError reports why a walk could not start. It matches ErrInvalidRoot
// under errors.Is and unwraps to the underlying cause.
type RootError struct {
	Path string
	Err  error
}

func (e *RootError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrInvalidRoot, e.Path, e.Err)
}

func (e *RootError) Unwrap() error { return e.Err }

func (e *RootError) Is(target error) bool { return target == ErrInvalidRoot }

// Action tells the walker how to proceed after visiting a node.
type Action int

const (
	// Continue descends into a directory, or moves on after a file.
	Continue Action = iota
	// Skip prunes the subtree rooted at the visited directory.
	Skip
	// Abort stops the walk entirely.
	Abort
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

type Kind int

const (
	File Kind = iota
	Dir
	Symlink
	Other
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Dir:
		return "dir"
	case Symlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindOf maps an lstat mode to a Kind.
func KindOf(mode fs.FileMode) Kind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return Symlink
	case mode.IsDir():
		return Dir
	case mode.IsRegular():
		return File
	default:
		return Other
	}
}

// Node is a single entry seen during a walk. Mode comes from lstat, so a
// symlink is reported as a symlink and never followed.
type Node struct {
	Path string
	Kind Kind
	Mode fs.FileMode
}

// VisitFunc is called once per node, parents before children. A returned
// error is recorded and the walk carries on according to the Action.
type VisitFunc func(n Node) (Action, error)

type walker struct {
	ctx   context.Context
	fsys  fsutil.FS
	visit VisitFunc
	errs  []error
}

// Walk visits root and everything below it. Entries are lstat'ed as they
// are reached, so removals made by earlier visits are observed. Per-entry
// errors are joined into the result unwrapped, usually as *fs.PathError;
// entries that vanish mid-walk are ignored.
func Walk(ctx context.Context, fsys fsutil.FS, root string, visit VisitFunc) error {
	info, err := fsys.Lstat(root)
	if err != nil {
		return &RootError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return &RootError{Path: root, Err: errNotDir}
	}

	w := &walker{ctx: ctx, fsys: fsys, visit: visit}
	w.walk(root, info.Mode())
	return errors.Join(w.errs...)
}

// walk returns true when the whole walk must stop.
func (w *walker) walk(path string, mode fs.FileMode) bool {
	if err := w.ctx.Err(); err != nil {
		w.errs = append(w.errs, err)
		return true
	}

	n := Node{Path: path, Kind: KindOf(mode), Mode: mode}
	action, err := w.visit(n)
	if err != nil {
		w.errs = append(w.errs, err)
	}
	switch action {
	case Abort:
		return true
	case Skip:
		return false
	}
	if n.Kind != Dir {
		return false
	}

	entries, err := w.fsys.ReadDir(path)
	if err != nil {
		if !fsutil.IsNotExist(err) {
			w.errs = append(w.errs, err)
		}
		return false
	}

	for _, e := range entries {
		child := filepath.Join(path, e.Name())
		info, err := w.fsys.Lstat(child)
		if err != nil {
			if !fsutil.IsNotExist(err) {
				w.errs = append(w.errs, err)
			}
			continue
		}
		if w.walk(child, info.Mode()) {
			return true
		}
	}
	return false
}
