package cleaner

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/kclejeune/kegscrub/internal/walk"
)

const (
	ExecutableMode    = 0o555
	NonExecutableMode = 0o444
)

// Classification is the policy applied to a scrubbed node.
type Classification int

const (
	Ignore Classification = iota
	Skip
	Delete
	FixPermissionsExecutable
	FixPermissionsNonExecutable
)

func (c Classification) String() string {
	switch c {
	case Ignore:
		return "ignore"
	case Skip:
		return "skip"
	case Delete:
		return "delete"
	case FixPermissionsExecutable:
		return "fix permissions (executable)"
	case FixPermissionsNonExecutable:
		return "fix permissions (non-executable)"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// Scrub walks root and applies exactly one policy to every node: libtool
// archives and the listed removable files are deleted, other regular files
// get 0555 or 0444, protected directories are not entered. Symlinks are
// deleted when they would be deleted as files, and otherwise left alone.
func (c *Cleaner) Scrub(ctx context.Context, root string, skip Predicate, removable ...string) error {
	err := walk.Walk(ctx, c.fs, root, func(n walk.Node) (walk.Action, error) {
		switch c.Classify(n, skip, removable) {
		case Skip:
			return walk.Skip, nil
		case Delete:
			_, err := c.remove(n.Path, Deleted)
			return walk.Continue, err
		case FixPermissionsExecutable:
			return walk.Continue, c.chmod(n.Path, n.Mode, ExecutableMode)
		case FixPermissionsNonExecutable:
			return walk.Continue, c.chmod(n.Path, n.Mode, NonExecutableMode)
		default:
			return walk.Continue, nil
		}
	})
	return wrapWalkErr(err)
}

// Classify decides what Scrub does with n.
func (c *Cleaner) Classify(n walk.Node, skip Predicate, removable []string) Classification {
	switch n.Kind {
	case walk.Dir:
		if skip(n.Path) {
			return Skip
		}
		return Ignore
	case walk.Symlink:
		// The file rules apply to links whose target is a regular file.
		info, err := c.fs.Stat(n.Path)
		if err != nil || !info.Mode().IsRegular() {
			return Ignore
		}
	case walk.File:
	default:
		return Ignore
	}

	if skip(n.Path) {
		return Skip
	}
	if filepath.Ext(n.Path) == ".la" || slices.Contains(removable, n.Path) {
		return Delete
	}
	if n.Kind == walk.Symlink {
		return Ignore
	}
	if c.classifier.IsExecutable(n.Path) {
		return FixPermissionsExecutable
	}
	return FixPermissionsNonExecutable
}
