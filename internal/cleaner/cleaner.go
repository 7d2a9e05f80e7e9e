// Package cleaner normalizes a freshly installed keg. It deletes libtool
// archives and other install-time cruft, forces read-only permissions on
// installed files, drops info documentation, and prunes empty directories
// and dangling symlinks.
//
// Every step honours the package's skip predicate: a protected directory is
// never entered, so nothing beneath it is read, changed or removed.
package cleaner

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/kclejeune/kegscrub/internal/classify"
	"github.com/kclejeune/kegscrub/internal/fsutil"
)

const (
	// InfoIndex is the info directory index regenerated at link time.
	InfoIndex = "dir"
	// CharsetAlias is the libiconv/gettext alias table many formulae install.
	CharsetAlias = "charset.alias"
)

// Package is the keg being cleaned.
type Package interface {
	// BinDirs are scrubbed in order; missing ones are ignored.
	BinDirs() []string
	Root() string
	DocsDir() string
	ShouldSkip(path string) bool
}

// Predicate reports whether a path is protected.
type Predicate func(path string) bool

type Options struct {
	// KeepInfo keeps the documentation tree and removes only its index
	// file. When false the whole documentation tree is removed.
	KeepInfo   bool
	FS         fsutil.FS
	Classifier classify.Classifier
	Observer   Observer
}

type Cleaner struct {
	fs         fsutil.FS
	classifier classify.Classifier
	observer   Observer
	keepInfo   bool
}

func New(opts Options) *Cleaner {
	c := &Cleaner{
		fs:         opts.FS,
		classifier: opts.Classifier,
		observer:   opts.Observer,
		keepInfo:   opts.KeepInfo,
	}
	if c.fs == nil {
		c.fs = fsutil.OS{}
	}
	if c.classifier == nil {
		c.classifier = classify.New(c.fs)
	}
	return c
}

// Clean runs a default Cleaner over pkg.
func Clean(ctx context.Context, pkg Package, keepInfo bool) error {
	return New(Options{KeepInfo: keepInfo}).Run(ctx, pkg)
}

// Run scrubs each existing bin dir, handles the documentation directory,
// then prunes the whole keg. A failing step does not stop later ones; all
// errors are joined into the result. Cancellation is honoured between
// steps and between entries.
func (c *Cleaner) Run(ctx context.Context, pkg Package) error {
	var errs []error
	skip := Predicate(pkg.ShouldSkip)
	alias := filepath.Join(pkg.Root(), "lib", CharsetAlias)

	for _, dir := range pkg.BinDirs() {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		info, err := c.fs.Lstat(dir)
		if err != nil {
			if !fsutil.IsNotExist(err) {
				errs = append(errs, entryErr("stat", dir, err))
			}
			continue
		}
		if !info.IsDir() {
			slog.Debug("not scrubbing non-directory", "path", dir)
			continue
		}
		if err := c.Scrub(ctx, dir, skip, alias); err != nil {
			errs = append(errs, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := c.cleanDocs(ctx, pkg.DocsDir(), skip); err != nil {
		errs = append(errs, err)
	}

	if err := ctx.Err(); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := c.Prune(ctx, pkg.Root(), skip); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c *Cleaner) cleanDocs(ctx context.Context, docs string, skip Predicate) error {
	if c.keepInfo {
		index := filepath.Join(docs, InfoIndex)
		info, err := c.fs.Stat(index)
		if err != nil {
			return entryErr("stat", index, err)
		}
		if !info.Mode().IsRegular() || skip(index) {
			return nil
		}
		_, err = c.remove(index, Deleted)
		return err
	}

	info, err := c.fs.Lstat(docs)
	if err != nil {
		return entryErr("lstat", docs, err)
	}
	if skip(docs) {
		return nil
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		// Only the link goes; its target is outside this tree.
		_, err := c.remove(docs, RemovedTree)
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return c.removeTree(ctx, docs, skip)
}

func (c *Cleaner) emit(e Event) {
	if c.observer != nil {
		c.observer(e)
	}
}

// remove unlinks path and emits kind on success. The bool is false when
// nothing was removed, including when the path was already gone.
func (c *Cleaner) remove(path string, kind EventKind) (bool, error) {
	if err := c.fs.Remove(path); err != nil {
		return false, entryErr("remove", path, err)
	}
	c.emit(Event{Kind: kind, Path: path})
	return true, nil
}

func (c *Cleaner) chmod(path string, old, perm fs.FileMode) error {
	if fsutil.Perm(old) == perm {
		return nil
	}
	if err := c.fs.Chmod(path, perm); err != nil {
		return entryErr("chmod", path, err)
	}
	c.emit(Event{Kind: Chmod, Path: path, OldMode: fsutil.Perm(old), NewMode: perm})
	return nil
}
