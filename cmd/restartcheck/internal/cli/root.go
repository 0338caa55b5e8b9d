// Package cli provides command-line interface setup for restartcheck.
package cli

import (
	"restartcheck/cmd/restartcheck/shared"
	"restartcheck/internal/logger"

	"github.com/spf13/cobra"
)

// App represents the restartcheck CLI application
type App struct {
	Config *shared.Config
	// DotEnv is the dotenv file consulted before the environment.
	DotEnv string
}

// NewApp creates a new restartcheck CLI application
func NewApp() *App {
	return &App{
		Config: shared.NewConfig(),
		DotEnv: shared.DefaultDotEnv,
	}
}

// CreateRootCommand creates and configures the root command
func (app *App) CreateRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "restartcheck",
		Short: "Validate simulator restarts against an uninterrupted run",
		Long: `restartcheck splits a simulation into legs, runs the simulator once per leg
while chaining each leg's restart output into the next leg's input, then runs
the same interval without interruption so the two can be compared.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Config.Load(cmd.Flags(), app.DotEnv); err != nil {
				return err
			}
			return logger.Configure(logger.Options{
				Level:   app.Config.LogLevel,
				File:    app.Config.LogFile,
				NoColor: app.Config.NoColor,
			})
		},
	}

	// Add global flags
	app.Config.RegisterFlags(rootCmd.PersistentFlags())

	// Add all subcommands
	app.addRunCommand(rootCmd)
	app.addPlanCommand(rootCmd)
	app.addVersionCommand(rootCmd)

	return rootCmd
}
