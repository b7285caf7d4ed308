package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jmurray2011/recency/internal/source"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize recency configuration",
	Long: `Create default configuration files.

Creates:
  ~/.recency.yaml          defaults for capacity, output, workers, AWS settings
  ~/.recency/config.yaml   trace source aliases

Examples:
  # Create default config (won't overwrite existing)
  recency init

  # Force overwrite existing config
  recency init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config files")
}

func runInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	out := cmd.OutOrStdout()
	configPath := filepath.Join(home, ".recency.yaml")
	aliasPath := source.ConfigPath()

	if err := createFileIfNotExists(out, configPath, generateDefaultConfig(), initForce); err != nil {
		return err
	}
	if err := createFileIfNotExists(out, aliasPath, generateAliasConfig(), initForce); err != nil {
		return err
	}

	fmt.Fprintln(out, "Initialized recency configuration:")
	fmt.Fprintf(out, "  Config:  %s\n", configPath)
	fmt.Fprintf(out, "  Sources: %s\n", aliasPath)
	fmt.Fprintf(out, "\nEdit %s to customize your settings.\n", configPath)

	return nil
}

func generateDefaultConfig() string {
	return fmt.Sprintf(`# recency configuration

# Default cache capacity for shell and replay
capacity: %d

# Concurrent replays during a --sweep
workers: %d

# Default output format: text, json, csv, yaml
output: text

# Log level: debug, info, warn, error
log_level: info

# AWS settings for cloudwatch:// sources and --publish
# profile: my-aws-profile
# region: us-east-1
`, DefaultCapacity, DefaultWorkers)
}

func generateAliasConfig() string {
	return `# recency trace source aliases
# Use with: recency replay @name

sources: {}
#  nightly:
#    uri: file:///var/traces/nightly/*.trace
#  prod-web:
#    uri: cloudwatch:///web/access?profile=prod&match=path=(\S+)
#    format: keys

# default_source: nightly
# default_capacity: 512
`
}

func createFileIfNotExists(out io.Writer, path, content string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(out, "  %s already exists (use --force to overwrite)\n", path)
			return nil
		}
	}

	// Create parent directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(out, "  Created %s\n", path)
	return nil
}
