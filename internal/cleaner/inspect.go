package cleaner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/kclejeune/kegscrub/internal/fsutil"
	"github.com/kclejeune/kegscrub/internal/symlink"
	"github.com/kclejeune/kegscrub/internal/walk"
)

// Findings lists what Run would act on first, without cascading effects.
type Findings struct {
	Removable     []string
	Permissions   []string
	EmptyDirs     []string
	DanglingLinks []string
	// Docs is the info tree or index file Run would delete, if any.
	Docs string
}

func (f Findings) Empty() bool {
	return len(f.Removable)+len(f.Permissions)+len(f.EmptyDirs)+len(f.DanglingLinks) == 0 && f.Docs == ""
}

// Inspect walks pkg like Run but only reads.
func (c *Cleaner) Inspect(ctx context.Context, pkg Package) (Findings, error) {
	var (
		f    Findings
		errs []error
	)
	skip := Predicate(pkg.ShouldSkip)
	removable := []string{filepath.Join(pkg.Root(), "lib", CharsetAlias)}

	for _, dir := range pkg.BinDirs() {
		info, err := c.fs.Lstat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		err = walk.Walk(ctx, c.fs, dir, func(n walk.Node) (walk.Action, error) {
			switch c.Classify(n, skip, removable) {
			case Skip:
				return walk.Skip, nil
			case Delete:
				f.Removable = append(f.Removable, n.Path)
			case FixPermissionsExecutable:
				if fsutil.Perm(n.Mode) != ExecutableMode {
					f.Permissions = append(f.Permissions, n.Path)
				}
			case FixPermissionsNonExecutable:
				if fsutil.Perm(n.Mode) != NonExecutableMode {
					f.Permissions = append(f.Permissions, n.Path)
				}
			}
			return walk.Continue, nil
		})
		errs = append(errs, wrapWalkErr(err))
	}

	docs := pkg.DocsDir()
	target := docs
	if c.keepInfo {
		target = filepath.Join(docs, InfoIndex)
	}
	if c.keepInfo {
		if info, err := c.fs.Stat(target); err == nil && !skip(target) && info.Mode().IsRegular() {
			f.Docs = target
		}
	} else if info, err := c.fs.Lstat(target); err == nil && !skip(target) {
		if info.IsDir() || info.Mode()&fs.ModeSymlink != 0 {
			f.Docs = target
		}
	}

	err := walk.Walk(ctx, c.fs, pkg.Root(), func(n walk.Node) (walk.Action, error) {
		if skip(n.Path) {
			return walk.Skip, nil
		}
		switch n.Kind {
		case walk.Dir:
			empty, err := fsutil.IsEmptyDir(c.fs, n.Path)
			if err != nil {
				return walk.Continue, entryErr("readdir", n.Path, err)
			}
			if empty {
				f.EmptyDirs = append(f.EmptyDirs, n.Path)
			}
		case walk.Symlink:
			dangling, err := symlink.Dangling(c.fs, n.Path)
			if err != nil {
				return walk.Continue, entryErr("stat", n.Path, err)
			}
			if dangling {
				f.DanglingLinks = append(f.DanglingLinks, n.Path)
			}
		}
		return walk.Continue, nil
	})
	errs = append(errs, wrapWalkErr(err))

	return f, errors.Join(errs...)
}
