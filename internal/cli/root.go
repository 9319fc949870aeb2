// Package cli provides the staffctl command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/staffdesk/internal/config"
	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/logging"
	"github.com/JonMunkholm/staffdesk/internal/store"
)

// options holds the global flags.
type options struct {
	configFile string
	driver     string
	dbURL      string
}

// NewRootCommand builds the staffctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "staffctl",
		Short: "Manage staffdesk employee records",
		Long: `staffctl works directly against the configured record store.

Configuration comes from the same environment variables and optional
YAML file (CONFIG_FILE) as the server; --driver and --db override the
store selection.

Examples:
  staffctl import Personnel_Records.csv
  staffctl query --filters '{"filter":{"field":"surname","operator":"startswith","value":"mc"}}'
  staffctl seed fixtures.yaml --driver sqlite --db staff.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", os.Getenv(config.FileEnv), "YAML configuration file")
	pf.StringVar(&opts.driver, "driver", "", "Store driver: memory, sqlite, postgres (overrides DB_DRIVER)")
	pf.StringVar(&opts.dbURL, "db", "", "Database URL or SQLite path (overrides DATABASE_URL)")

	root.AddCommand(
		newImportCommand(opts),
		newQueryCommand(opts),
		newSeedCommand(opts),
	)
	return root
}

// Execute runs staffctl and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		return 1
	}
	return 0
}

// session is an open configuration and store for one command.
type session struct {
	cfg   *config.Config
	store core.Store[*tables.Employee]
	close func()
}

// open loads configuration, applies flag overrides and opens the store.
// Logs go to the command's stderr.
func (o *options) open(cmd *cobra.Command) (*session, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.driver != "" {
		cfg.Database.Driver = o.driver
	}
	if o.dbURL != "" {
		cfg.Database.URL = o.dbURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	st, closeFn, err := store.Open(cmd.Context(), cfg.Database, tables.Employees())
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, store: st, close: closeFn}, nil
}

func (s *session) service() *core.Service[*tables.Employee] {
	return core.NewService(core.NewRepository(s.store, tables.Employees()))
}
