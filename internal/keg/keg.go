// Package keg describes an installed package version: a directory laid out
// as <cellar>/<name>/<version> with the usual bin, sbin, lib and share
// subdirectories.
package keg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/kclejeune/kegscrub/internal/skip"
)

// ConfigName is the per-keg override file. It is always protected.
const ConfigName = ".kegscrub.toml"

// Keg is a concrete cleaner.Package.
type Keg struct {
	prefix   string
	name     string
	version  string
	revision int
	semver   *version.Version
	skip     *skip.Matcher
}

// Open validates that prefix is a directory and compiles rules against it.
func Open(prefix string, rules skip.Rules) (*Keg, error) {
	abs, err := filepath.Abs(prefix)
	if err != nil {
		return nil, fmt.Errorf("resolving keg %q: %w", prefix, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening keg: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("keg %q is not a directory", abs)
	}

	m, err := skip.New(abs, rules, ConfigName)
	if err != nil {
		return nil, fmt.Errorf("keg %q: %w", abs, err)
	}

	k := &Keg{
		prefix: abs,
		name:   filepath.Base(filepath.Dir(abs)),
		skip:   m,
	}
	k.version, k.revision = splitRevision(filepath.Base(abs))
	if v, err := version.NewVersion(k.version); err == nil {
		k.semver = v
	}
	return k, nil
}

func (k *Keg) Name() string { return k.name }

// Version is the version directory name without its revision suffix.
func (k *Keg) Version() string { return k.version }

func (k *Keg) Revision() int { return k.revision }

// SemVer is the parsed version, or nil when the directory name is not a
// recognisable version string.
func (k *Keg) SemVer() *version.Version { return k.semver }

func (k *Keg) String() string {
	if k.revision > 0 {
		return fmt.Sprintf("%s %s_%d", k.name, k.version, k.revision)
	}
	return fmt.Sprintf("%s %s", k.name, k.version)
}

func (k *Keg) Root() string    { return k.prefix }
func (k *Keg) Bin() string     { return filepath.Join(k.prefix, "bin") }
func (k *Keg) Sbin() string    { return filepath.Join(k.prefix, "sbin") }
func (k *Keg) Lib() string     { return filepath.Join(k.prefix, "lib") }
func (k *Keg) DocsDir() string { return filepath.Join(k.prefix, "share", "info") }

// BinDirs are the directories whose contents get scrubbed, in order.
func (k *Keg) BinDirs() []string {
	return []string{k.Bin(), k.Sbin(), k.Lib()}
}

func (k *Keg) ShouldSkip(path string) bool {
	return k.skip.ShouldSkip(path)
}

// SkipRules lists the active exclusion rules.
func (k *Keg) SkipRules() []string {
	return k.skip.Describe()
}

// splitRevision turns "1.2.3_4" into ("1.2.3", 4).
func splitRevision(dir string) (string, int) {
	i := strings.LastIndexByte(dir, '_')
	if i <= 0 || i == len(dir)-1 {
		return dir, 0
	}
	rev, err := strconv.Atoi(dir[i+1:])
	if err != nil || rev < 0 {
		return dir, 0
	}
	return dir[:i], rev
}
