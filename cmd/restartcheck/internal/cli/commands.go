package cli

import (
	"errors"
	"fmt"

	"restartcheck/cmd/restartcheck/internal/report"
	"restartcheck/internal/restarts"
	"restartcheck/internal/rundir"
	"restartcheck/internal/simulator"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// ErrInvalidArgs is returned when --restarts or --minutes are out of range.
var ErrInvalidArgs = errors.New("invalid arguments")

// Names of the schedule flags shared by run and plan.
const (
	flagRestarts = "restarts"
	flagMinutes  = "minutes"
)

func validateSchedule(restartCount, minutes int) error {
	if restartCount < 0 {
		return fmt.Errorf("%w: --%s must be >= 0, got %d", ErrInvalidArgs, flagRestarts, restartCount)
	}
	if minutes <= 0 {
		return fmt.Errorf("%w: --%s must be > 0, got %d", ErrInvalidArgs, flagMinutes, minutes)
	}
	return nil
}

func addScheduleFlags(cmd *cobra.Command, restartCount, minutes *int) {
	cmd.Flags().IntVar(restartCount, flagRestarts, 0, "Number of restarts (legs = restarts + 1)")
	cmd.Flags().IntVar(minutes, flagMinutes, 0, "Total simulated minutes")
	_ = cmd.MarkFlagRequired(flagRestarts)
	_ = cmd.MarkFlagRequired(flagMinutes)
}

// workspace builds the run directory layout from the resolved configuration.
func (app *App) workspace(fs afero.Fs) (*rundir.Workspace, error) {
	root, err := app.Config.AbsRoot()
	if err != nil {
		return nil, err
	}
	return rundir.NewWorkspace(fs, root, app.Config.Template), nil
}

// addRunCommand adds the run command
func (app *App) addRunCommand(rootCmd *cobra.Command) {
	var restartCount, minutes int

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the restart legs and the uninterrupted run",
		Long: `Copy the template run directory into run.halves and run.whole, run the
simulator restarts+1 times in run.halves with each leg restarting from the
previous leg's output, then run it once over the whole interval in run.whole.
A summary is written to restarts.summary.json in the working root.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateSchedule(restartCount, minutes); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			policy, err := restarts.ParseFailurePolicy(app.Config.FailurePolicy)
			if err != nil {
				return err
			}
			ws, err := app.workspace(afero.NewOsFs())
			if err != nil {
				return err
			}

			runner := simulator.NewRunner(app.Config.Simulator)
			if app.Config.Verbose {
				runner.SetStream(cmd.OutOrStdout())
			}

			driver := restarts.NewDriver(ws, runner, restarts.Options{
				Restarts:   restartCount,
				Minutes:    minutes,
				ConfigName: app.Config.ConfigName,
				OutputDir:  app.Config.OutputDir,
				InputLink:  app.Config.InputLink,
				Policy:     policy,
			})

			summary, err := driver.Run(cmd.Context())
			if summary != nil {
				report.WriteSummary(cmd.OutOrStdout(), summary)
			}
			return err
		},
	}

	addScheduleFlags(runCmd, &restartCount, &minutes)
	rootCmd.AddCommand(runCmd)
}
