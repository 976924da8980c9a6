package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/voiceline/internal/config"
)

//go:embed templates/voiceline.yaml
var configTemplate embed.FS

// templatePath is the embedded configuration template.
const templatePath = "templates/voiceline.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a voiceline configuration file",
		Long: `Init creates a .voiceline configuration file in the current directory.

The generated file lists every default agent quote page and documents the
destination, credential, and request options.

Examples:
  # Create .voiceline in current directory
  voiceline init

  # Create config file at a specific path
  voiceline init -o myconfig.yaml

  # Write TOML instead (selected by the .toml extension)
  voiceline init -o voiceline.toml

  # Force overwrite existing file
  voiceline init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := renderConfigTemplate(config.IsTOMLPath(outputPath))
	if err != nil {
		return err
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may later name a credentials path.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change:")
	fmt.Fprintln(out, "  - The quote pages to scrape")
	fmt.Fprintln(out, "  - The destination spreadsheet or workbook")
	fmt.Fprintln(out, "  - Request timeout, proxy and User-Agent")

	return nil
}

// renderConfigTemplate returns the commented YAML template as is, or its
// settings re-encoded as TOML.
func renderConfigTemplate(asTOML bool) ([]byte, error) {
	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}
	if !asTOML {
		return content, nil
	}

	cf, err := config.DecodeFile(content, false)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config template: %w", err)
	}
	out, err := config.EncodeFile(cf, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode TOML config: %w", err)
	}
	return append([]byte("# voiceline configuration\n\n"), out...), nil
}
