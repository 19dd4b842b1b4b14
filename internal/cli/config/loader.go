package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/yndnr/kvwire-go/internal/core/domain"
	"github.com/yndnr/kvwire-go/internal/infra/confloader"
)

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".kvwire", "config.yaml")
}

// Load builds the configuration from defaults, the file at path, KVWIRE_*
// environment variables and overrides, then verifies it.
//
// An explicit path must exist. With an empty path the default path is
// used only if present.
func Load(path string, overrides map[string]any) (*ClientConfig, error) {
	cfg, _, err := LoadWithSources(path, overrides)
	return cfg, err
}

// LoadWithSources is Load that also reports which layer set each
// non-default key.
func LoadWithSources(path string, overrides map[string]any) (*ClientConfig, []confloader.Setting, error) {
	if path == "" {
		if p := DefaultConfigPath(); p != "" {
			if _, err := os.Stat(p); err == nil {
				path = p
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, domain.ErrInvalidConfig.WithDetails("config file not found: " + path)
		}
		return nil, nil, domain.ErrInvalidConfig.WithCause(err)
	}

	cfg := Default()
	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, nil, domain.ErrInvalidConfig.WithCause(err)
	}

	if err := Verify(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader.Settings(), nil
}
