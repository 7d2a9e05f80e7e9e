// Package fsutil provides the filesystem capability used by the cleaner and
// helpers for classifying the errors it returns.
package fsutil

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// FS is the set of filesystem operations the cleaner performs. Every call
// goes to the filesystem; nothing is cached between calls.
type FS interface {
	Lstat(path string) (fs.FileInfo, error)
	Stat(path string) (fs.FileInfo, error)
	Readlink(path string) (string, error)
	ReadDir(path string) ([]fs.DirEntry, error)
	Open(path string) (*os.File, error)
	Remove(path string) error
	RemoveAll(path string) error
	Chmod(path string, mode fs.FileMode) error
}

// OS is the FS backed by the host filesystem.
type OS struct{}

func (OS) Lstat(path string) (fs.FileInfo, error)     { return os.Lstat(path) }
func (OS) Stat(path string) (fs.FileInfo, error)      { return os.Stat(path) }
func (OS) Readlink(path string) (string, error)       { return os.Readlink(path) }
func (OS) ReadDir(path string) ([]fs.DirEntry, error) { return os.ReadDir(path) }
func (OS) Open(path string) (*os.File, error)         { return os.Open(path) }
func (OS) Remove(path string) error                   { return os.Remove(path) }
func (OS) RemoveAll(path string) error                { return os.RemoveAll(path) }
func (OS) Chmod(path string, mode fs.FileMode) error  { return os.Chmod(path, mode) }

// IsNotExist reports whether err means the path is already gone.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsPermission reports whether err is a permission failure.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.EPERM)
}

// IsNotEmpty reports whether err came from removing a directory that still
// has children. Some platforms report EEXIST instead of ENOTEMPTY.
func IsNotEmpty(err error) bool {
	return errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, unix.EEXIST)
}

// IsEmptyDir reports whether the directory at path currently has no
// children.
func IsEmptyDir(fsys FS, path string) (bool, error) {
	entries, err := fsys.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

// Perm returns the permission bits of a mode, matching what chmod(2) sets.
func Perm(mode fs.FileMode) fs.FileMode {
	return mode & fs.ModePerm
}
