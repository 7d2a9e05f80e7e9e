package cleaner

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/kclejeune/kegscrub/internal/fsutil"
	"github.com/kclejeune/kegscrub/internal/symlink"
	"github.com/kclejeune/kegscrub/internal/walk"
)

// Prune removes empty directories and dangling symlinks under root,
// root included.
//
// A single walk records every unprotected directory and symlink. The
// directories are then visited in reverse discovery order, so children go
// before their parents and a chain of directories emptied by cleaning is
// removed in one pass. Symlinks are checked only after all directory
// removals, since removing a directory can leave links to it dangling.
// Removing a link can in turn empty a directory, so both passes repeat
// over the same recorded lists until a round removes nothing.
func (c *Cleaner) Prune(ctx context.Context, root string, skip Predicate) error {
	var dirs, links []string
	err := walk.Walk(ctx, c.fs, root, func(n walk.Node) (walk.Action, error) {
		if skip(n.Path) {
			return walk.Skip, nil
		}
		switch n.Kind {
		case walk.Symlink:
			links = append(links, n.Path)
		case walk.Dir:
			dirs = append(dirs, n.Path)
		}
		return walk.Continue, nil
	})
	if errors.Is(err, walk.ErrInvalidRoot) || ctx.Err() != nil {
		return err
	}

	walkErr := wrapWalkErr(err)
	errs := []error{walkErr}
	reported := make(map[string]bool)
	for _, e := range Errors(walkErr) {
		var ee *EntryError
		if errors.As(e, &ee) {
			reported[ee.Path] = true
		}
	}
	for {
		_, err := c.removeEmptyDirs(ctx, dirs, reported)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		linksRemoved, err := c.removeDanglingLinks(ctx, links, reported)
		errs = append(errs, err)
		if ctx.Err() != nil || linksRemoved == 0 {
			break
		}
	}
	return errors.Join(errs...)
}

// reportOnce records a failure for path once across rounds. A path that fails
// again in a later round is not reported twice.
func reportOnce(reported map[string]bool, path string, err error) error {
	if err == nil || reported[path] {
		return nil
	}
	reported[path] = true
	return err
}

// removeEmptyDirs walks dirs deepest first.
func (c *Cleaner) removeEmptyDirs(ctx context.Context, dirs []string, reported map[string]bool) (int, error) {
	var (
		removed int
		errs    []error
	)
	for _, dir := range slices.Backward(dirs) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		empty, err := fsutil.IsEmptyDir(c.fs, dir)
		if err != nil {
			errs = append(errs, reportOnce(reported, dir, entryErr("readdir", dir, err)))
			continue
		}
		if !empty {
			continue
		}
		ok, err := c.remove(dir, RemovedEmptyDir)
		errs = append(errs, reportOnce(reported, dir, err))
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func (c *Cleaner) removeDanglingLinks(ctx context.Context, links []string, reported map[string]bool) (int, error) {
	var (
		removed int
		errs    []error
	)
	for _, link := range slices.Backward(links) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		dangling, err := symlink.Dangling(c.fs, link)
		if err != nil {
			errs = append(errs, reportOnce(reported, link, entryErr("stat", link, err)))
			continue
		}
		if !dangling {
			continue
		}
		if target, err := symlink.Resolve(c.fs, link); err == nil {
			slog.Debug("removing dangling symlink", "link", link, "target", target)
		}
		ok, err := c.remove(link, RemovedDanglingSymlink)
		errs = append(errs, reportOnce(reported, link, err))
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// removeTree deletes root and everything under it except protected
// subtrees. Directories that still hold protected entries are kept.
func (c *Cleaner) removeTree(ctx context.Context, root string, skip Predicate) error {
	var (
		nodes     []walk.Node
		protected bool
	)
	err := walk.Walk(ctx, c.fs, root, func(n walk.Node) (walk.Action, error) {
		if skip(n.Path) {
			protected = true
			return walk.Skip, nil
		}
		nodes = append(nodes, n)
		return walk.Continue, nil
	})
	if errors.Is(err, walk.ErrInvalidRoot) || ctx.Err() != nil {
		return err
	}

	if !protected && err == nil {
		if err := c.fs.RemoveAll(root); err != nil {
			return entryErr("remove", root, err)
		}
		c.emit(Event{Kind: RemovedTree, Path: root})
		return nil
	}

	errs := []error{wrapWalkErr(err)}
	for _, n := range slices.Backward(nodes) {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if n.Kind == walk.Dir {
			if empty, err := fsutil.IsEmptyDir(c.fs, n.Path); err != nil || !empty {
				continue
			}
		}
		if _, err := c.remove(n.Path, Deleted); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
