package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".voiceline"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads the configuration file at path.
// Files ending in ".toml" are decoded as TOML, everything else as YAML.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	cf, err := DecodeFile(data, IsTOMLPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cf, nil
}

// IsTOMLPath reports whether path names a TOML configuration file.
func IsTOMLPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// DecodeFile parses configuration data as TOML or YAML.
func DecodeFile(data []byte, asTOML bool) (*File, error) {
	var cf File
	var err error
	if asTOML {
		err = toml.Unmarshal(data, &cf)
	} else {
		err = yaml.Unmarshal(data, &cf)
	}
	if err != nil {
		return nil, err
	}
	cf.Sources = trimSources(cf.Sources)
	return &cf, nil
}

// EncodeFile renders cf as TOML or YAML. Comments are not preserved.
func EncodeFile(cf *File, asTOML bool) ([]byte, error) {
	if asTOML {
		return toml.Marshal(cf)
	}
	return yaml.Marshal(cf)
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .voiceline in the current directory
// 3. Look for .voiceline in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// trimSources drops blank entries and surrounding whitespace.
func trimSources(sources []string) []string {
	trimmed := make([]string, 0, len(sources))
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return trimmed
}
