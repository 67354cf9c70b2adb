// Package cli exposes the planner commands.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/J-ANet/prototipo/internal/logger"
	"github.com/J-ANet/prototipo/internal/planner"
)

// App holds the wired dependencies CLI commands run against.
type App struct {
	Runner *planner.Runner
	Log    logger.Logger
}

// NewRootCmd creates the top-level "planner" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "planner",
		Short:         "Adaptive study time planner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.SetLevel(logLevel)
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log verbosity (debug, info, warn, error)")

	// The request files use snake_case keys, so accept the same spelling
	// on flags (--request_path works like --request-path).
	root.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	root.AddCommand(
		newPlanCmd(app),
		newValidateCmd(app),
	)

	return root
}
