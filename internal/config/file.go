package config

import (
	"fmt"
	"time"
)

// File represents the structure of the .voiceline configuration file.
// Every field is optional; CLI flags take precedence.
type File struct {
	// Sources lists the quote page addresses to scrape, in order.
	Sources []string `yaml:"sources,omitempty" toml:"sources,omitempty"`

	// Spreadsheet is the destination spreadsheet name.
	Spreadsheet string `yaml:"spreadsheet,omitempty" toml:"spreadsheet,omitempty"`

	// Output is the destination kind: "google" or "xlsx".
	Output string `yaml:"output,omitempty" toml:"output,omitempty"`

	// Workbook is the .xlsx path used with xlsx output.
	Workbook string `yaml:"workbook,omitempty" toml:"workbook,omitempty"`

	// Credentials is a path to a service-account key file.
	Credentials string `yaml:"credentials,omitempty" toml:"credentials,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty" toml:"userAgent,omitempty"`

	// Proxy is a socks5:// or http(s):// proxy URL.
	Proxy string `yaml:"proxy,omitempty" toml:"proxy,omitempty"`

	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
}

// FlagChecker reports whether a CLI flag was set explicitly.
// cobra's cmd.Flags().Changed satisfies it.
type FlagChecker func(name string) bool

// Apply copies file values into c for every setting whose flag was not set
// explicitly. Sources from the file are used only when c has none.
func (f *File) Apply(c *Config, changed FlagChecker) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}

	if len(c.Sources) == 0 && len(f.Sources) > 0 {
		c.Sources = append([]string(nil), f.Sources...)
	}

	setString(&c.Spreadsheet, f.Spreadsheet, changed("spreadsheet"))
	setString(&c.Output, f.Output, changed("output"))
	setString(&c.WorkbookPath, f.Workbook, changed("workbook"))
	setString(&c.CredentialsFile, f.Credentials, changed("credentials"))
	setString(&c.UserAgent, f.UserAgent, changed("user-agent"))
	setString(&c.ProxyAddress, f.Proxy, changed("proxy"))

	if f.Timeout != "" && !changed("timeout") {
		timeout, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %q in config file", ErrInvalidTimeout, f.Timeout)
		}
		c.Timeout = timeout
	}

	return nil
}

func setString(dst *string, value string, flagSet bool) {
	if value != "" && !flagSet {
		*dst = value
	}
}
