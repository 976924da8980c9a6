package config

import (
	"fmt"
	"os"
	"strings"
)

// ServiceAccountJSON returns the Google service-account key.
// An explicit CredentialsFile wins over the CredentialsEnvVar environment
// variable. The key is returned as-is and must never be logged.
func (c *Config) ServiceAccountJSON() ([]byte, error) {
	if c.CredentialsFile != "" {
		data, err := os.ReadFile(c.CredentialsFile) //nolint:gosec // User-provided credentials path is intentional
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return data, nil
	}

	if value := strings.TrimSpace(os.Getenv(CredentialsEnvVar)); value != "" {
		return []byte(value), nil
	}

	return nil, ErrNoCredentials
}
