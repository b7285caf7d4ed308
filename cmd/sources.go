package cmd

import (
	"fmt"
	"sort"

	"github.com/jmurray2011/recency/internal/source"
	"github.com/jmurray2011/recency/internal/ui"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured source aliases",
	Long: `List trace source aliases defined in the configuration file.

Source aliases can be defined in ~/.recency/config.yaml:

  sources:
    nightly:
      uri: file:///var/traces/nightly/*.trace
    prod-web:
      uri: cloudwatch:///web/access?profile=prod&match=path=(\S+)
      format: keys

Use aliases with @ prefix in commands:
  recency replay @nightly --sweep 64,256
  recency replay @prod-web --start 1h`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	app := GetApp(cmd)
	render := app.Render

	cfg, err := source.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Sources) == 0 {
		render.Info("No source aliases configured.")
		render.Newline()
		render.Info("Create aliases in %s:", source.ConfigPath())
		render.Newline()
		render.Info("  sources:")
		render.Info("    nightly:")
		render.Info("      uri: file:///var/traces/nightly/*.trace")
		render.Info("    prod-web:")
		render.Info("      uri: cloudwatch:///web/access?profile=prod")
		render.Info("      format: keys")
		return nil
	}

	// Sort alias names for consistent output
	names := make([]string, 0, len(cfg.Sources))
	for name := range cfg.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := cfg.Sources[name]
		format := s.Format
		if format == "" {
			format = "-"
		}
		alias := "@" + name
		if !app.Config.NoColor {
			alias = ui.LabelStyle.Render(alias)
		}
		rows = append(rows, []string{alias, format, s.URI})
	}
	render.Table([]string{"ALIAS", "FORMAT", "URI"}, rows)

	if cfg.DefaultSource != "" {
		render.Newline()
		render.Info("Default source: @%s", cfg.DefaultSource)
	}
	if cfg.DefaultCapacity != 0 {
		render.Info("Default capacity: %d", cfg.DefaultCapacity)
	}

	return nil
}
