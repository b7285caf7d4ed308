package cmd

import (
	"fmt"
	"os"

	_ "github.com/jmurray2011/recency/internal/cloudwatch" // Register cloudwatch:// source
	_ "github.com/jmurray2011/recency/internal/local"      // Register file:// and stdin:// sources
	"github.com/jmurray2011/recency/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Configuration defaults
const (
	DefaultCapacity = 128
	DefaultWorkers  = 4
)

var (
	profile      string
	region       string
	outputFormat string
	logLevel     string
	cfgFile      string
	verbose      bool
	noColor      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "recency",
	Short: "Fixed-capacity LRU cache engine and trace replayer",
	Long: `recency - a fixed-capacity, O(1) least-recently-used cache.

Run the reference scenario, drive a cache interactively, or replay recorded
access traces through caches of one or many capacities to compare hit ratios.

Trace sources:
  /path/to/trace.txt                             Local file (shorthand)
  file:///path/to/*.trace?format=keys            Local files (glob)
  -  or  stdin://                                Standard input
  cloudwatch:///log-group?profile=x&region=y     AWS CloudWatch Logs
  @alias-name                                    Config alias

Trace formats:
  ops   one op per line: get <key> | put <key> <value> | access <key>
  keys  one key per line, each replayed as a read-through access

Configuration:
  ~/.recency.yaml holds defaults (capacity, output, workers, region, ...).
  ~/.recency/config.yaml defines source aliases:

    sources:
      nightly:
        uri: file:///var/traces/nightly/*.trace
      prod-web:
        uri: cloudwatch:///web/access?profile=prod&match=path=(\S+)
        format: keys

    default_source: nightly
    default_capacity: 512

Examples:
  # Step through the capacity-3 reference scenario
  recency demo

  # Interactive session on a cache of 4 entries
  recency shell --capacity 4

  # Replay a trace and compare capacities
  recency replay ./access.trace --sweep 16,64,256,1024

  # Replay the last 2 hours of CloudWatch access logs and publish hit ratios
  recency replay @prod-web --start 2h --sweep 128,512 --publish Recency/Web`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.recency.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "Default AWS profile (can be overridden in URI)")
	rootCmd.PersistentFlags().StringVarP(&region, "region", "r", "", "Default AWS region (can be overridden in URI)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "Output format: text, json, csv, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output for debugging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress status messages")

	// Bind flags to viper
	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".recency")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("RECENCY")
	viper.AutomaticEnv()

	setDefaults()

	// Read config file (ignore if not found, warn on other errors)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}
}

func setDefaults() {
	viper.SetDefault("region", "us-east-1")
	viper.SetDefault("output", "text")
	viper.SetDefault("capacity", DefaultCapacity)
	viper.SetDefault("workers", DefaultWorkers)
	viper.SetDefault("log_level", "info")
}

// initLogging configures the default logger from --log-level and --verbose.
func initLogging() {
	logger := logging.Default()
	logger.SetOutput(os.Stderr)

	level, err := logging.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if IsVerbose() {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose || viper.GetBool("verbose")
}
