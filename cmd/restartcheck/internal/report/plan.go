package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"restartcheck/internal/restarts"
	"restartcheck/internal/simtime"
)

// Output formats accepted by WritePlan.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
)

type legView struct {
	Leg       int    `json:"leg" yaml:"leg"`
	Config    string `json:"config" yaml:"config"`
	Start     string `json:"start" yaml:"start"`
	End       string `json:"end" yaml:"end"`
	StartTime []int  `json:"start_time" yaml:"start_time,flow"`
	EndTime   []int  `json:"end_time" yaml:"end_time,flow"`
}

type planView struct {
	Restarts  int       `json:"restarts" yaml:"restarts"`
	Minutes   int       `json:"minutes" yaml:"minutes"`
	LegLength string    `json:"leg_length" yaml:"leg_length"`
	Legs      []legView `json:"legs" yaml:"legs"`
	Whole     legView   `json:"whole" yaml:"whole"`
}

func newLegView(leg restarts.Leg, configName string) legView {
	return legView{
		Leg:       leg.Index,
		Config:    leg.ConfigName(configName),
		Start:     simtime.Format(leg.Start),
		End:       simtime.Format(leg.End),
		StartTime: simtime.ToList(leg.Start),
		EndTime:   simtime.ToList(leg.End),
	}
}

func newPlanView(plan *restarts.Plan, configName string) planView {
	v := planView{
		Restarts: plan.Restarts,
		Minutes:  plan.Minutes,
		Whole:    newLegView(plan.Whole, configName),
	}
	if len(plan.Legs) > 0 {
		v.LegLength = plan.Legs[0].Duration().String()
	}
	for _, leg := range plan.Legs {
		v.Legs = append(v.Legs, newLegView(leg, configName))
	}
	return v
}

// WritePlan renders the leg schedule in the requested format.
func WritePlan(w io.Writer, plan *restarts.Plan, configName, format string) error {
	view := newPlanView(plan, configName)

	switch strings.ToLower(format) {
	case "", FormatText:
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d restart(s) over %d minute(s), %d leg(s) of %s",
			view.Restarts, view.Minutes, len(view.Legs), view.LegLength)))
		for _, leg := range view.Legs {
			fmt.Fprintf(w, "  leg %-3d %s -> %s  %s\n", leg.Leg, leg.Start, leg.End, leg.Config)
		}
		fmt.Fprintf(w, "  whole   %s -> %s  %s\n", view.Whole.Start, view.Whole.End, view.Whole.Config)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatText, FormatJSON, FormatYAML)
	}
}

// WriteSummary prints the outcome of a run.
func WriteSummary(w io.Writer, s *restarts.Summary) {
	status := okStyle.Render("COMPLETE")
	if !s.Completed {
		status = failStyle.Render("INCOMPLETE")
	}
	fmt.Fprintf(w, "%s session %s\n", status, s.SessionID)

	for _, leg := range s.Legs {
		fmt.Fprintf(w, "  leg %-3d exit %-3d %8s  %s\n", leg.Leg, leg.ExitCode, leg.Duration.Round(time.Millisecond), leg.OutputDir)
	}
	if s.Whole != nil {
		fmt.Fprintf(w, "  whole   exit %-3d %8s  %s\n", s.Whole.ExitCode, s.Whole.Duration.Round(time.Millisecond), s.Whole.LogPath)
	}
	if n := s.FailedRuns(); n > 0 {
		fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("%d simulator run(s) exited non-zero", n)))
	}
	if s.Error != "" {
		fmt.Fprintf(w, "error: %s\n", s.Error)
	}
}
