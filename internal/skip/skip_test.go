package skip

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestShouldSkip(t *testing.T) {
	prefix := "/opt/cellar/foo/1.0"
	m, err := New(prefix, Rules{Paths: []string{"bin/keepme", "share/doc/foo/", "lib/*.la"}}, ".kegscrub.toml")
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"bin/keepme", true},
		{"bin/other", false},
		{"share/doc/foo", true},
		{"share/doc", false},
		{"lib/libfoo.la", true},
		{"lib/libfoo.so", false},
		{".kegscrub.toml", true},
		{".", false},
	}
	for _, tt := range tests {
		if got := m.ShouldSkip(filepath.Join(prefix, tt.path)); got != tt.want {
			t.Errorf("ShouldSkip(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestShouldSkipOutsidePrefix(t *testing.T) {
	m, err := New("/opt/cellar/foo/1.0", Rules{All: true})
	if err != nil {
		t.Fatal(err)
	}
	if m.ShouldSkip("/opt/cellar/bar/2.0/bin") {
		t.Error("paths outside the prefix should never be skipped")
	}
	if !m.ShouldSkip("/opt/cellar/foo/1.0") {
		t.Error("all should protect the prefix itself")
	}
	if !m.ShouldSkip("/opt/cellar/foo/1.0/lib/x.la") {
		t.Error("all should protect every descendant")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		paths   []string
		wantErr bool
	}{
		{"relative", []string{"bin/foo", "lib/*.a"}, false},
		{"absolute", []string{"/etc/passwd"}, true},
		{"escapes", []string{"../other"}, true},
		{"escapes after clean", []string{"lib/../../x"}, true},
		{"empty", []string{""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Rules{Paths: tt.paths}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := Rules{Paths: []string{"lib/perl5", "bin/a"}}
	b := Rules{All: true, Paths: []string{"bin/a", "share/x"}}

	got := a.Merge(b)
	want := Rules{All: true, Paths: []string{"bin/a", "lib/perl5", "share/x"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribe(t *testing.T) {
	m, err := New("/k", Rules{Paths: []string{"share/*", "bin/x"}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"bin/x", "share/*"}, m.Describe()); diff != "" {
		t.Errorf("Describe() mismatch (-want +got):\n%s", diff)
	}
}
