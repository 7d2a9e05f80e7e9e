package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/kclejeune/kegscrub/internal/skip"
)

// KeepInfoEnv, when set to any non-empty value, keeps info documentation.
const KeepInfoEnv = "HOMEBREW_KEEP_INFO"

type Settings struct {
	// KeepInfo keeps share/info and removes only its dir index.
	KeepInfo bool `toml:"keep_info"`
	// Report is a text/template for the per-keg summary line.
	Report string `toml:"report"`
}

type Config struct {
	Settings Settings   `toml:"settings"`
	Skip     skip.Rules `toml:"skip"`
}

func DefaultConfig() *Config {
	return &Config{}
}

// Load reads the config file. With an empty path the default location is
// used and a missing file yields the defaults; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Skip.Validate(); err != nil {
		return fmt.Errorf("skip: %w", err)
	}
	return nil
}

// KeepInfo resolves the documentation policy. An explicitly set flag wins,
// then the environment, then the config file.
func (c *Config) KeepInfo(flag, flagSet bool) bool {
	if flagSet {
		return flag
	}
	if os.Getenv(KeepInfoEnv) != "" {
		return true
	}
	return c.Settings.KeepInfo
}

// KegConfig is the per-keg override file. Only [skip] is allowed.
type KegConfig struct {
	Skip skip.Rules `toml:"skip"`

	// This field exists only to detect and reject it.
	Settings any `toml:"settings"`
}

// LoadKegConfig reads <prefix>/name if present. A missing file means no
// extra rules.
func LoadKegConfig(prefix, name string) (skip.Rules, error) {
	path := filepath.Join(prefix, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return skip.Rules{}, nil
		}
		return skip.Rules{}, fmt.Errorf("reading keg config: %w", err)
	}
	return ParseKegConfig(path, data)
}

// ParseKegConfig parses a keg config from already-read bytes.
func ParseKegConfig(path string, data []byte) (skip.Rules, error) {
	var kc KegConfig
	if err := toml.Unmarshal(data, &kc); err != nil {
		return skip.Rules{}, fmt.Errorf("parsing keg config %q: %w", path, err)
	}
	if kc.Settings != nil {
		return skip.Rules{}, fmt.Errorf("keg config %q: [settings] is not allowed in keg configs", path)
	}
	if err := kc.Skip.Validate(); err != nil {
		return skip.Rules{}, fmt.Errorf("keg config %q: %w", path, err)
	}
	return kc.Skip, nil
}

func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	path = os.ExpandEnv(path)
	return path
}

func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "kegscrub", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kegscrub", "config.toml")
}
