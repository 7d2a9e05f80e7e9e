// Package skip decides which paths inside a keg must never be touched by
// cleaning. Rules are written relative to the keg prefix and may be exact
// paths or glob patterns. A match on a directory protects its whole
// subtree because the walkers never descend into it.
package skip

import (
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mb0/glob"
)

// Rules is the declarative form of a keg's exclusions.
type Rules struct {
	// All protects every path in the keg.
	All bool `toml:"all"`
	// Paths are prefix-relative paths or glob patterns.
	Paths []string `toml:"paths"`
}

// Merge returns the union of r and other. Nothing is ever removed.
func (r Rules) Merge(other Rules) Rules {
	out := Rules{All: r.All || other.All}
	out.Paths = append(slices.Clone(r.Paths), other.Paths...)
	slices.Sort(out.Paths)
	out.Paths = slices.Compact(out.Paths)
	return out
}

// Validate checks that every path stays inside the prefix and that every
// pattern is well formed.
func (r Rules) Validate() error {
	for _, p := range r.Paths {
		if _, err := normalize(p); err != nil {
			return err
		}
	}
	return nil
}

// Matcher evaluates Rules against absolute paths under a prefix.
type Matcher struct {
	prefix   string
	all      bool
	exact    map[string]struct{}
	patterns []string
}

// New compiles rules for the keg rooted at prefix. The always entries are
// prefix-relative paths that are protected regardless of the rules.
func New(prefix string, r Rules, always ...string) (*Matcher, error) {
	m := &Matcher{
		prefix: filepath.Clean(prefix),
		all:    r.All,
		exact:  make(map[string]struct{}),
	}
	for _, p := range append(slices.Clone(r.Paths), always...) {
		norm, err := normalize(p)
		if err != nil {
			return nil, err
		}
		if isPattern(norm) {
			m.patterns = append(m.patterns, norm)
		} else {
			m.exact[norm] = struct{}{}
		}
	}
	return m, nil
}

// ShouldSkip reports whether path is protected. Paths outside the prefix
// are never protected.
func (m *Matcher) ShouldSkip(p string) bool {
	rel, ok := m.relative(p)
	if !ok {
		return false
	}
	if m.all {
		return true
	}
	if _, ok := m.exact[rel]; ok {
		return true
	}
	for _, pat := range m.patterns {
		if ok, _ := glob.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

// Describe lists the active rules in a stable order for display.
func (m *Matcher) Describe() []string {
	if m.all {
		return []string{"all"}
	}
	out := make([]string, 0, len(m.exact)+len(m.patterns))
	for p := range m.exact {
		out = append(out, p)
	}
	out = append(out, m.patterns...)
	slices.Sort(out)
	return out
}

func (m *Matcher) relative(p string) (string, bool) {
	rel, err := filepath.Rel(m.prefix, filepath.Clean(p))
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func normalize(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty skip path")
	}
	slashed := filepath.ToSlash(p)
	if path.IsAbs(slashed) {
		return "", fmt.Errorf("skip path %q must be relative to the keg prefix", p)
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("skip path %q escapes the keg prefix", p)
	}
	if isPattern(clean) {
		if _, err := glob.Match(clean, clean); err != nil {
			return "", fmt.Errorf("skip pattern %q: %w", p, err)
		}
	}
	return clean, nil
}

func isPattern(p string) bool {
	return strings.ContainsAny(p, "*?[")
}
