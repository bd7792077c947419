package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/fieldscout/internal/logger"
	"github.com/ppiankov/fieldscout/internal/model"
)

// Version is set by the main package at build time
var Version = "dev"

var (
	cfgFile    string
	verbose    bool
	noColor    bool
	domainFlag string
	logLevel   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fieldscout",
	Short: "fieldscout - locate form field values in source documents",
	Long: `fieldscout fills form fields from a collection of source documents.

For every field it tries four matching strategies in a fixed order
(semantic, entity, rule-based, keyword) and accepts the first one that
clears its confidence threshold. Matched values are validated against the
domain's rules, and the form is checked for cross-field consistency and
completeness.

Supported domains: real_estate, medical, insurance, finance, legal.

Fields that cannot be matched are reported for manual lookup; fieldscout
never guesses a value.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fieldscout %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fieldscout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&domainFlag, "domain", "d", "", "document domain (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("domain", rootCmd.PersistentFlags().Lookup("domain"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig seeds viper with the defaults, then merges the config file
// and FIELDSCOUT_* environment variables over them
func initConfig() {
	viper.SetConfigType("yaml")
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err == nil {
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
	}

	// FIELDSCOUT_MATCHING_TOP_K overrides matching.top_k
	viper.SetEnvPrefix("FIELDSCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.MergeInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	case errors.As(err, &notFound):
	default:
		fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
	}
}

// loadConfig returns the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func newLogger(cfg *model.Config) (*zap.Logger, error) {
	return logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".fieldscout"), nil
}
