package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/regsync/internal/ident"
	"github.com/danmuck/regsync/internal/logging"
	"github.com/danmuck/regsync/internal/registry"
)

const DefaultAdminAddr = "127.0.0.1:7400"

var ErrInvalidConfig = errors.New("config: invalid")

// Config is one regsyncctl session file.
type Config struct {
	Log               LogConfig        `toml:"log"`
	VanillaNamespaces []string         `toml:"vanilla_namespaces"`
	Admin             AdminConfig      `toml:"admin"`
	Registries        []RegistryConfig `toml:"registries"`
	Remote            []RemoteConfig   `toml:"remote"`
}

// LogConfig overlays the runtime logging profile. Unset keys keep the
// profile value.
type LogConfig struct {
	Level     string `toml:"level"`
	Timestamp *bool  `toml:"timestamp"`
	NoColor   *bool  `toml:"no_color"`
	JSON      *bool  `toml:"json"`
}

type AdminConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// RegistryConfig declares a registry and its entries in registration order.
type RegistryConfig struct {
	Name    string            `toml:"name"`
	Entries []string          `toml:"entries"`
	Aliases map[string]string `toml:"aliases"`
}

// RemoteConfig is one ID table to apply against a declared registry.
type RemoteConfig struct {
	Registry string         `toml:"registry"`
	Mode     string         `toml:"mode"`
	IDs      map[string]int `toml:"ids"`
}

func Default() Config {
	return Config{
		VanillaNamespaces: []string{ident.DefaultNamespace},
		Admin:             AdminConfig{Addr: DefaultAdminAddr},
	}
}

// Load decodes path over Default and validates the result. Unknown keys are
// rejected so typos in registry names do not pass silently.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidConfig, path, strings.Join(keys, ", "))
	}
	cfg.Admin.Addr = strings.TrimSpace(cfg.Admin.Addr)
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = DefaultAdminAddr
	}
	for i := range cfg.Remote {
		if strings.TrimSpace(cfg.Remote[i].Mode) == "" {
			cfg.Remote[i].Mode = registry.ModeRemote.String()
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config (%s): %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := logging.ParseLevel(c.Log.Level); strings.TrimSpace(c.Log.Level) != "" && !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	for i, ns := range c.VanillaNamespaces {
		if _, err := ident.New(ns, "x"); err != nil {
			return fmt.Errorf("%w: vanilla_namespaces[%d]: %v", ErrInvalidConfig, i, err)
		}
	}

	declared := make(map[ident.Name]struct{}, len(c.Registries))
	for i, reg := range c.Registries {
		key, err := reg.Key()
		if err != nil {
			return fmt.Errorf("%w: registries[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, dup := declared[key]; dup {
			return fmt.Errorf("%w: registry %s declared twice", ErrInvalidConfig, key)
		}
		declared[key] = struct{}{}
		if _, err := reg.Names(); err != nil {
			return fmt.Errorf("%w: registry %s: %v", ErrInvalidConfig, key, err)
		}
		if _, err := reg.AliasPairs(); err != nil {
			return fmt.Errorf("%w: registry %s: %v", ErrInvalidConfig, key, err)
		}
	}

	for i, remote := range c.Remote {
		key, err := remote.Key()
		if err != nil {
			return fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, ok := declared[key]; !ok {
			return fmt.Errorf("%w: remote[%d] targets undeclared registry %s", ErrInvalidConfig, i, key)
		}
		if _, err := remote.ParsedMode(); err != nil {
			return fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
		if _, err := remote.Table(); err != nil {
			return fmt.Errorf("%w: remote[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// LoggingConfig applies the [log] overlay to base.
func (c Config) LoggingConfig(base logging.Config) logging.Config {
	if lvl, ok := logging.ParseLevel(c.Log.Level); ok {
		base.Level = lvl
	}
	if c.Log.Timestamp != nil {
		base.Timestamp = *c.Log.Timestamp
	}
	if c.Log.NoColor != nil {
		base.NoColor = *c.Log.NoColor
	}
	if c.Log.JSON != nil {
		base.JSON = *c.Log.JSON
	}
	return base
}

func (r RegistryConfig) Key() (ident.Name, error) {
	return ident.Parse(strings.TrimSpace(r.Name))
}

// Names parses Entries, preserving order and rejecting duplicates.
func (r RegistryConfig) Names() ([]ident.Name, error) {
	out := make([]ident.Name, 0, len(r.Entries))
	for i, raw := range r.Entries {
		name, err := ident.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("entries[%d]: %w", i, err)
		}
		if slices.Contains(out, name) {
			return nil, fmt.Errorf("entries[%d]: duplicate entry %s", i, name)
		}
		out = append(out, name)
	}
	return out, nil
}

// AliasPair maps a retired name to its canonical replacement.
type AliasPair struct {
	Old       ident.Name
	Canonical ident.Name
}

// AliasPairs parses Aliases sorted by old name so registration is
// deterministic across runs.
func (r RegistryConfig) AliasPairs() ([]AliasPair, error) {
	out := make([]AliasPair, 0, len(r.Aliases))
	for rawOld, rawCanonical := range r.Aliases {
		old, err := ident.Parse(strings.TrimSpace(rawOld))
		if err != nil {
			return nil, fmt.Errorf("alias %q: %w", rawOld, err)
		}
		canonical, err := ident.Parse(strings.TrimSpace(rawCanonical))
		if err != nil {
			return nil, fmt.Errorf("alias %q target: %w", rawOld, err)
		}
		out = append(out, AliasPair{Old: old, Canonical: canonical})
	}
	slices.SortFunc(out, func(a, b AliasPair) int {
		return ident.Compare(a.Old, b.Old)
	})
	return out, nil
}

func (r RemoteConfig) Key() (ident.Name, error) {
	return ident.Parse(strings.TrimSpace(r.Registry))
}

func (r RemoteConfig) ParsedMode() (registry.Mode, error) {
	if strings.TrimSpace(r.Mode) == "" {
		return registry.ModeRemote, nil
	}
	return registry.ParseMode(r.Mode)
}

// Table parses IDs. Range and uniqueness are left to remap validation.
func (r RemoteConfig) Table() (registry.Table, error) {
	out := make(registry.Table, len(r.IDs))
	for raw, id := range r.IDs {
		name, err := ident.Parse(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("ids %q: %w", raw, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("ids %q: %s listed twice", raw, name)
		}
		out[name] = id
	}
	return out, nil
}
