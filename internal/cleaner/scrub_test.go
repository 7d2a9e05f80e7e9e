package cleaner

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"github.com/kclejeune/kegscrub/internal/walk"
)

func TestScrubLibDir(t *testing.T) {
	pkg := newKeg(t)
	la := writeFile(t, pkg.root, "lib/foo.la", []byte("# libtool"), 0o644)
	so := writeFile(t, pkg.root, "lib/bar.so", elfHeader, 0o644)
	hdr := writeFile(t, pkg.root, "lib/pkgconfig/foo.pc", []byte("Name: foo"), 0o664)

	rec := &recorder{}
	c := New(Options{Observer: rec.observe})
	if err := c.Scrub(context.Background(), filepath.Join(pkg.root, "lib"), pkg.ShouldSkip); err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	if exists(la) {
		t.Error("lib/foo.la should be deleted")
	}
	if got := permOf(t, so); got != ExecutableMode {
		t.Errorf("lib/bar.so mode = %o, want %o", got, ExecutableMode)
	}
	if got := permOf(t, hdr); got != NonExecutableMode {
		t.Errorf("lib/pkgconfig/foo.pc mode = %o, want %o", got, NonExecutableMode)
	}

	if diff := cmp.Diff([]string{la}, rec.paths(Deleted)); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
	for _, e := range rec.events {
		if e.Kind == Chmod && e.Path == so && (e.OldMode != 0o644 || e.NewMode != ExecutableMode) {
			t.Errorf("chmod event = %v, want 644 -> 555", e)
		}
	}
}

func TestScrubSkippedDirectoryUntouched(t *testing.T) {
	pkg := newKeg(t, "lib/perl5")
	la := writeFile(t, pkg.root, "lib/perl5/auto/x.la", []byte("la"), 0o644)
	pm := writeFile(t, pkg.root, "lib/perl5/Foo.pm", []byte("package Foo;"), 0o664)
	other := writeFile(t, pkg.root, "lib/other.la", []byte("la"), 0o644)

	rec := &recorder{}
	c := New(Options{Observer: rec.observe})
	if err := c.Scrub(context.Background(), filepath.Join(pkg.root, "lib"), pkg.ShouldSkip); err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	if !exists(la) {
		t.Error("a .la file inside a skipped directory must survive")
	}
	if got := permOf(t, pm); got != 0o664 {
		t.Errorf("file in skipped directory mode = %o, want unchanged 664", got)
	}
	if exists(other) {
		t.Error("lib/other.la should be deleted")
	}
	for _, e := range rec.events {
		if rel, _ := filepath.Rel(pkg.root, e.Path); strings.HasPrefix(rel, "lib/perl5") {
			t.Errorf("unexpected event inside skipped dir: %v", e)
		}
	}
}

func TestScrubSkippedFile(t *testing.T) {
	pkg := newKeg(t, "lib/keep.la", "bin/tool")
	la := writeFile(t, pkg.root, "lib/keep.la", []byte("la"), 0o644)
	tool := writeFile(t, pkg.root, "bin/tool", elfHeader, 0o755)

	c := New(Options{})
	for _, dir := range []string{"lib", "bin"} {
		if err := c.Scrub(context.Background(), filepath.Join(pkg.root, dir), pkg.ShouldSkip); err != nil {
			t.Fatalf("Scrub(%s) error: %v", dir, err)
		}
	}
	if !exists(la) {
		t.Error("skipped .la file should survive")
	}
	if got := permOf(t, tool); got != 0o755 {
		t.Errorf("skipped file mode = %o, want 755", got)
	}
}

func TestScrubCharsetAlias(t *testing.T) {
	pkg := newKeg(t)
	alias := writeFile(t, pkg.root, "lib/charset.alias", []byte("# alias"), 0o644)
	binAlias := writeFile(t, pkg.root, "bin/charset.alias", []byte("# alias"), 0o644)
	removable := filepath.Join(pkg.root, "lib", CharsetAlias)

	c := New(Options{})
	for _, dir := range []string{"lib", "bin"} {
		if err := c.Scrub(context.Background(), filepath.Join(pkg.root, dir), pkg.ShouldSkip, removable); err != nil {
			t.Fatalf("Scrub(%s) error: %v", dir, err)
		}
	}
	if exists(alias) {
		t.Error("lib/charset.alias should be deleted")
	}
	if !exists(binAlias) {
		t.Error("only the lib charset.alias is removable")
	}
}

func TestScrubSymlinks(t *testing.T) {
	pkg := newKeg(t)
	dylib := writeFile(t, pkg.root, "lib/libz.1.dylib", elfHeader, 0o644)
	link := symlinkTo(t, pkg.root, "lib/libz.dylib", "libz.1.dylib")
	laTarget := writeFile(t, pkg.root, "share/libz.la", []byte("la"), 0o644)
	laLink := symlinkTo(t, pkg.root, "lib/libz.la", laTarget)
	broken := symlinkTo(t, pkg.root, "lib/broken.la", "nowhere.la")
	dirLink := symlinkTo(t, pkg.root, "lib/current", ".")

	rec := &recorder{}
	c := New(Options{Observer: rec.observe})
	if err := c.Scrub(context.Background(), filepath.Join(pkg.root, "lib"), pkg.ShouldSkip); err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	if !exists(link) || !exists(dirLink) || !exists(broken) {
		t.Error("plain symlinks should be left for pruning")
	}
	if exists(laLink) {
		t.Error("symlink to a .la file should be deleted")
	}
	if !exists(laTarget) {
		t.Error("target of a deleted .la symlink must stay")
	}
	if got := permOf(t, dylib); got != ExecutableMode {
		t.Errorf("real library mode = %o, want %o", got, ExecutableMode)
	}
	for _, e := range rec.events {
		if e.Kind == Chmod && e.Path == link {
			t.Error("symlinks must never be chmod'ed")
		}
	}
}

func TestScrubDeletesOrChmodsNeverBoth(t *testing.T) {
	pkg := newKeg(t)
	writeFile(t, pkg.root, "lib/a.la", []byte("la"), 0o644)
	writeFile(t, pkg.root, "lib/b.a", []byte("!<arch>"), 0o644)
	writeFile(t, pkg.root, "lib/c.so", elfHeader, 0o644)
	writeFile(t, pkg.root, "lib/d/e.la", []byte("la"), 0o755)

	rec := &recorder{}
	c := New(Options{Observer: rec.observe})
	if err := c.Scrub(context.Background(), filepath.Join(pkg.root, "lib"), pkg.ShouldSkip); err != nil {
		t.Fatalf("Scrub() error: %v", err)
	}

	kinds := make(map[string][]EventKind)
	for _, e := range rec.events {
		kinds[e.Path] = append(kinds[e.Path], e.Kind)
	}
	for path, ks := range kinds {
		if len(ks) != 1 {
			t.Errorf("%s got %v, want exactly one action", path, ks)
		}
	}
	if len(kinds) != 4 {
		t.Errorf("acted on %d files, want 4", len(kinds))
	}
}

func TestScrubChmodPermissionDenied(t *testing.T) {
	pkg := newKeg(t)
	locked := writeFile(t, pkg.root, "bin/locked", elfHeader, 0o755)
	other := writeFile(t, pkg.root, "bin/other", []byte("data"), 0o644)

	fsys := &faultyFS{chmodErr: map[string]error{locked: fs.ErrPermission}}
	c := New(Options{FS: fsys})
	err := c.Scrub(context.Background(), filepath.Join(pkg.root, "bin"), pkg.ShouldSkip)

	var ee *EntryError
	if !errors.As(err, &ee) {
		t.Fatalf("Scrub() error = %v, want *EntryError", err)
	}
	if ee.Path != locked || ee.Kind() != ErrPermission {
		t.Errorf("EntryError = %v (kind %v), want permission error on %s", ee, ee.Kind(), locked)
	}
	if got := permOf(t, other); got != NonExecutableMode {
		t.Errorf("scrub should continue past failures: other mode = %o", got)
	}
}

func TestScrubRemoveVanishedIsNotAnError(t *testing.T) {
	pkg := newKeg(t)
	la := writeFile(t, pkg.root, "lib/gone.la", []byte("la"), 0o644)

	fsys := &faultyFS{removeErr: map[string]error{la: unix.ENOENT}}
	rec := &recorder{}
	c := New(Options{FS: fsys, Observer: rec.observe})
	if err := c.Scrub(context.Background(), filepath.Join(pkg.root, "lib"), pkg.ShouldSkip); err != nil {
		t.Errorf("Scrub() error = %v, want nil for vanished file", err)
	}
	if len(rec.paths(Deleted)) != 0 {
		t.Error("no event should be emitted when nothing was removed")
	}
}

func TestClassify(t *testing.T) {
	pkg := newKeg(t, "lib/skipme")
	mkdir(t, pkg.root, "lib/skipme")
	writeFile(t, pkg.root, "lib/x.la", nil, 0o644)
	writeFile(t, pkg.root, "lib/x.so", elfHeader, 0o644)
	writeFile(t, pkg.root, "lib/x.h", []byte("int x;"), 0o644)
	symlinkTo(t, pkg.root, "lib/x.link", "x.so")

	c := New(Options{})
	tests := []struct {
		rel  string
		kind walk.Kind
		want Classification
	}{
		{"lib/skipme", walk.Dir, Skip},
		{"lib", walk.Dir, Ignore},
		{"lib/x.la", walk.File, Delete},
		{"lib/x.so", walk.File, FixPermissionsExecutable},
		{"lib/x.h", walk.File, FixPermissionsNonExecutable},
		{"lib/x.link", walk.Symlink, Ignore},
		{"lib/fifo", walk.Other, Ignore},
	}
	for _, tt := range tests {
		n := walk.Node{Path: filepath.Join(pkg.root, tt.rel), Kind: tt.kind}
		if got := c.Classify(n, pkg.ShouldSkip, nil); got != tt.want {
			t.Errorf("Classify(%s) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
