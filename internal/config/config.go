// Package config resolves the logical file locations used by gitsock
// (account store, active account, master key, SSH directory) to absolute
// paths, creating a default configuration file on first use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// configFile is the YAML file name for the resolver configuration
const configFile = "config.yaml"

// Config maps the logical storage keys to filesystem paths. Relative
// paths are resolved against the gitsock directory; a leading "~" is
// expanded to the user's home directory.
type Config struct {
	Accounts      string `yaml:"accounts"`
	ActiveAccount string `yaml:"active_account"`
	Secret        string `yaml:"secret"`
	SSHPath       string `yaml:"ssh_path"`
}

// DefaultDir returns the gitsock configuration directory (~/.gitsock).
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gitsock"), nil
}

// Load resolves the configuration from the default gitsock directory.
func Load() (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return LoadDir(dir)
}

// LoadDir resolves the configuration rooted at dir, materializing a
// default config file when none exists yet. A malformed or incomplete
// config file is a fatal error: silently falling back to defaults would
// detach the caller from the files holding its encrypted tokens.
func LoadDir(dir string) (*Config, error) {
	path := filepath.Join(dir, configFile)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(dir, path); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	for key, val := range map[string]*string{
		"accounts":       &cfg.Accounts,
		"active_account": &cfg.ActiveAccount,
		"secret":         &cfg.Secret,
		"ssh_path":       &cfg.SSHPath,
	} {
		if *val == "" {
			return nil, fmt.Errorf("config file %s is missing key %q", path, key)
		}
		resolved, err := resolvePath(dir, *val)
		if err != nil {
			return nil, err
		}
		*val = resolved
	}

	return &cfg, nil
}

func writeDefault(dir, path string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	def := Config{
		Accounts:      "accounts.json",
		ActiveAccount: "active.json",
		Secret:        "secret.bin",
		SSHPath:       "~/.ssh",
	}
	data, err := yaml.Marshal(&def)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write default config to %s: %w", path, err)
	}
	return nil
}

// resolvePath expands "~" and anchors relative paths at dir.
func resolvePath(dir, p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(homeDir, strings.TrimPrefix(p[1:], "/")), nil
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	return filepath.Join(dir, p), nil
}
