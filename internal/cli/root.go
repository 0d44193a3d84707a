// Package cli provides the macroctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bcnelson/trigger-macros/internal/app"
	"github.com/bcnelson/trigger-macros/internal/config"
)

// Version information (set at build time).
var Version = "dev"

// configKey is used to store config in context.
type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "macroctl",
		Short: "Expand trigger macros against a monitoring configuration database",
		Long: `macroctl imports configuration snapshots and expands the macros of
trigger expressions and descriptions from the command line.

Settings are read from the same environment variables as the server
(DB_DRIVER, DB_DSN, RESOLVER_MODE, ...); flags override them.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cfg, cmd.Root().PersistentFlags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("db-driver", "", "Database driver (sqlite3|postgres)")
	flags.String("db-dsn", "", "Database connection string")
	flags.String("mode", "", "Expansion mode (trigger|event)")
	flags.String("unresolved", "", "Unresolved macro policy (literal|placeholder)")
	flags.Duration("history-period", 0, "How far back to look for the last item value")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.StringP("output", "o", "text", "Output format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"trigger", "event"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewVersionCommand(Version))
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewExpandCommand())
	rootCmd.AddCommand(NewUserMacroCommand())
	rootCmd.AddCommand(NewScanCommand())
	rootCmd.AddCommand(NewGrammarsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// applyFlags overrides configuration with flags set on the command line.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}

	str("db-driver", &cfg.Database.Driver)
	str("db-dsn", &cfg.Database.DSN)
	str("mode", &cfg.Resolver.Mode)
	str("unresolved", &cfg.Resolver.UnresolvedPolicy)
	str("log-level", &cfg.Log.Level)
	if err != nil {
		return err
	}

	if fs.Changed("history-period") {
		var d time.Duration
		if d, err = fs.GetDuration("history-period"); err != nil {
			return err
		}
		cfg.Resolver.HistoryPeriod = d
	}
	return nil
}

func configFromContext(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// openApp opens the configured store. Logs go to stderr so that command output stays clean.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := configFromContext(cmd)
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, cfg.Log.NewLogger(cmd.ErrOrStderr()))
}

func outputJSON(cmd *cobra.Command) bool {
	format, _ := cmd.Flags().GetString("output")
	return format == "json"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
