package cli

import (
	"fmt"
	"path/filepath"

	"restartcheck/cmd/restartcheck/internal/report"
	"restartcheck/internal/restarts"
	"restartcheck/internal/simconfig"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// addPlanCommand adds the plan command
func (app *App) addPlanCommand(rootCmd *cobra.Command) {
	var (
		restartCount, minutes int
		configPath, format    string
		showDiff              bool
	)

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the leg schedule without running anything",
		Long: `Load the base configuration and print the interval each leg and the
whole run would cover. Nothing is written. The base configuration defaults to
the template run directory's configuration file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateSchedule(restartCount, minutes); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			fs := afero.NewReadOnlyFs(afero.NewOsFs())
			if configPath == "" {
				ws, err := app.workspace(fs)
				if err != nil {
					return err
				}
				configPath = filepath.Join(ws.Template(), app.Config.ConfigName)
			}

			base, err := simconfig.Load(fs, configPath)
			if err != nil {
				return err
			}
			plan, err := restarts.NewPlan(base, restartCount, minutes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := report.WritePlan(out, plan, app.Config.ConfigName, format); err != nil {
				return err
			}

			if showDiff {
				differ := report.NewDiffer(out)
				legs := append(append([]restarts.Leg{}, plan.Legs...), plan.Whole)
				for _, leg := range legs {
					name := leg.ConfigName(app.Config.ConfigName)
					differ.ShowDiff(string(base.Bytes()), string(leg.Config.Bytes()), fmt.Sprintf("%s vs %s", name, filepath.Base(configPath)))
				}
			}
			return nil
		},
	}

	addScheduleFlags(planCmd, &restartCount, &minutes)
	planCmd.Flags().StringVar(&configPath, "config", "", "Base configuration file (default: <template>/<config-name>)")
	planCmd.Flags().StringVar(&format, "format", report.FormatText, "Output format (text|json|yaml)")
	planCmd.Flags().BoolVar(&showDiff, "diff", false, "Show each leg's configuration changes against the base")
	rootCmd.AddCommand(planCmd)
}
