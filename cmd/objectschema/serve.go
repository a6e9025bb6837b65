package main

import (
	"fmt"
	"os"

	"github.com/artpar/objectschema/bootstrap"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the objectschema HTTP API.

The server will:
  - Load configuration from objectschema.yaml (or --config)
  - Or load configuration from OBJECTSCHEMA_* environment variables
  - Open the configured schema store (memory or sqlite)
  - Register every schema document under schemas.dirs
  - Serve /schemas, /types, /types/dependencies and /validate

Environment variables (for Docker deployments):
  OBJECTSCHEMA_SCHEMA_DIRS   - Comma-separated schema directories
  OBJECTSCHEMA_STORE_DRIVER  - memory or sqlite
  OBJECTSCHEMA_STORE_DSN     - SQLite database path
  OBJECTSCHEMA_SERVER_PORT   - Server port (default: 8080)
  OBJECTSCHEMA_LOG_LEVEL     - Log level: debug, info, warn, error

Examples:
  objectschema serve
  objectschema serve --config /etc/objectschema/config.yaml
  objectschema serve --hot-reload=false

  # Docker (env vars only):
  OBJECTSCHEMA_SCHEMA_DIRS=/schemas objectschema serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	opts := bootstrap.Options{Version: version}
	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		opts.ConfigPath = cfgFile
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !hasConfigFile {
			fmt.Fprintln(cmd.ErrOrStderr(), "Running with environment variables (no config file)")
		}
		opts.Config = cfg
	}

	app, err := bootstrap.New(opts)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
