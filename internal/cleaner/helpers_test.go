package cleaner

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kclejeune/kegscrub/internal/fsutil"
)

var elfHeader = []byte("\x7fELF\x02\x01\x01\x00")

// stubPkg is a Package whose protected paths are listed relative to root.
type stubPkg struct {
	root string
	skip []string
}

func (p *stubPkg) BinDirs() []string {
	return []string{
		filepath.Join(p.root, "bin"),
		filepath.Join(p.root, "sbin"),
		filepath.Join(p.root, "lib"),
	}
}

func (p *stubPkg) Root() string    { return p.root }
func (p *stubPkg) DocsDir() string { return filepath.Join(p.root, "share", "info") }

func (p *stubPkg) ShouldSkip(path string) bool {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return false
	}
	return slices.Contains(p.skip, filepath.ToSlash(rel))
}

func newKeg(t *testing.T, skip ...string) *stubPkg {
	t.Helper()
	return &stubPkg{root: filepath.Join(t.TempDir(), "foo", "1.0"), skip: skip}
}

func writeFile(t *testing.T, root, rel string, content []byte, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func mkdir(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func symlinkTo(t *testing.T, root, rel, target string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func permOf(t *testing.T, path string) fs.FileMode {
	t.Helper()
	info, err := os.Lstat(path)
	if err != nil {
		t.Fatal(err)
	}
	return fsutil.Perm(info.Mode())
}

// recorder collects events for assertions.
type recorder struct {
	events []Event
}

func (r *recorder) observe(e Event) { r.events = append(r.events, e) }

func (r *recorder) paths(kind EventKind) []string {
	var out []string
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e.Path)
		}
	}
	return out
}

// faultyFS injects errors for chosen paths on top of the host filesystem.
type faultyFS struct {
	fsutil.OS
	chmodErr   map[string]error
	removeErr  map[string]error
	readDirErr map[string]error
}

func (f *faultyFS) ReadDir(path string) ([]fs.DirEntry, error) {
	if err, ok := f.readDirErr[path]; ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	return f.OS.ReadDir(path)
}

func (f *faultyFS) Chmod(path string, mode fs.FileMode) error {
	if err, ok := f.chmodErr[path]; ok {
		return &fs.PathError{Op: "chmod", Path: path, Err: err}
	}
	return f.OS.Chmod(path, mode)
}

func (f *faultyFS) Remove(path string) error {
	if err, ok := f.removeErr[path]; ok {
		return &fs.PathError{Op: "remove", Path: path, Err: err}
	}
	return f.OS.Remove(path)
}
