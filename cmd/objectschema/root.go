package main

import (
	"fmt"
	"io"
	"os"

	"github.com/artpar/objectschema/bootstrap"
	"github.com/artpar/objectschema/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "objectschema",
	Short: "Declarative, namespaced object schemas with cross-schema validation",
	Long: `objectschema loads versioned object schema documents, checks values
against their types and resolves references between schemas.

Authoring:
  objectschema lint schemas/        # Check document shape and constraints
  objectschema deps schemas/        # Show cross-schema references

Validation:
  objectschema validate --schemas schemas/ --type 'ns://acme/crm/1.0.0#Person' person.json

Serving:
  objectschema serve                # Start the HTTP API
  objectschema list                 # List registered schemas`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "objectschema.yaml", "config file path")
}

// loadConfig loads the config file when it exists and falls back to
// OBJECTSCHEMA_* environment variables.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// openApp builds the application without serving, for one-shot commands.
func openApp(dirs []string) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if len(dirs) > 0 {
		cfg.Schemas.Dirs = dirs
	}
	cfg.Metrics.Enabled = false
	cfg.Logging.Level = "error"
	return bootstrap.New(bootstrap.Options{Config: cfg, Version: version, LogOutput: io.Discard})
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
