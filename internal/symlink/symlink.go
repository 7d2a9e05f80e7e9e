// Package symlink inspects symbolic links inside a keg.
package symlink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/kclejeune/kegscrub/internal/fsutil"
)

// Resolve returns the path a link points at, joined onto the link's
// directory when the target is relative. Only one hop is read.
func Resolve(fsys fsutil.FS, link string) (string, error) {
	info, err := fsys.Lstat(link)
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", fmt.Errorf("%q is not a symlink", link)
	}
	target, err := fsys.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return target, nil
}

// Dangling reports whether link no longer leads to an existing file. The
// whole chain is followed, so a link to a dangling link is dangling too, as
// is a link caught in a cycle.
func Dangling(fsys fsutil.FS, link string) (bool, error) {
	if _, err := fsys.Stat(link); err != nil {
		if fsutil.IsNotExist(err) || errors.Is(err, unix.ELOOP) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}
