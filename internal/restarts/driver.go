package restarts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"restartcheck/internal/logger"
	"restartcheck/internal/rundir"
	"restartcheck/internal/simconfig"
	"restartcheck/internal/simtime"
	"restartcheck/internal/simulator"
)

// DefaultConfigName is the configuration file the simulator reads from its run directory.
const DefaultConfigName = "aether.json"

// ErrSimulatorFailed is returned under PolicyHalt when the simulator exits non-zero.
var ErrSimulatorFailed = errors.New("simulator exited with non-zero status")

// FailurePolicy decides what a non-zero simulator exit does to the run.
type FailurePolicy string

// Failure policies.
const (
	// PolicyWarn logs the failure and carries on; a leg that produced no
	// output still stops the run when its output is chained.
	PolicyWarn FailurePolicy = "warn"
	// PolicyHalt stops the run at the first non-zero exit.
	PolicyHalt FailurePolicy = "halt"
)

// ParseFailurePolicy validates a policy name. Empty means PolicyWarn.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyWarn:
		return PolicyWarn, nil
	case PolicyHalt:
		return PolicyHalt, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %s or %s)", s, PolicyWarn, PolicyHalt)
	}
}

// Simulator runs the simulator binary in a run directory.
type Simulator interface {
	Run(ctx context.Context, dir, name string) (*simulator.Result, error)
}

// Options configures a Driver.
type Options struct {
	Restarts   int
	Minutes    int
	ConfigName string // defaults to DefaultConfigName
	OutputDir  string // defaults to rundir.DefaultOutputDir
	InputLink  string // defaults to rundir.DefaultInputLink
	Policy     FailurePolicy
}

// Driver runs the restart legs and the whole run.
type Driver struct {
	ws   *rundir.Workspace
	sim  Simulator
	opts Options
	log  *log.Logger
	now  func() time.Time
}

// NewDriver creates a driver over the given workspace and simulator.
func NewDriver(ws *rundir.Workspace, sim Simulator, opts Options) *Driver {
	if opts.ConfigName == "" {
		opts.ConfigName = DefaultConfigName
	}
	if opts.Policy == "" {
		opts.Policy = PolicyWarn
	}
	return &Driver{
		ws:   ws,
		sim:  sim,
		opts: opts,
		log:  logger.NewStyledLogger("Restarts"),
		now:  time.Now,
	}
}

// Run prepares the workspace, runs every restart leg in the halves tree, and
// then the whole run in its own tree. A summary of whatever completed is
// written to the working root even when the run fails.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		SessionID: uuid.NewString(),
		StartedAt: d.now(),
		Restarts:  d.opts.Restarts,
		Minutes:   d.opts.Minutes,
		Policy:    d.opts.Policy,
	}

	// Bad arguments are reported before anything touches the filesystem.
	if err := d.validate(); err != nil {
		summary.FinishedAt = d.now()
		summary.Error = err.Error()
		return summary, err
	}
	defer d.saveSummary(summary)

	if err := d.ws.Prepare(); err != nil {
		summary.Error = err.Error()
		return summary, err
	}

	fs := d.ws.Fs()
	base, err := simconfig.Load(fs, filepath.Join(d.ws.HalvesDir(), d.opts.ConfigName))
	if err != nil {
		summary.Error = err.Error()
		return summary, err
	}

	plan, err := NewPlan(base, d.opts.Restarts, d.opts.Minutes)
	if err != nil {
		summary.Error = err.Error()
		return summary, err
	}

	if err := d.runLegs(ctx, plan, summary); err != nil {
		summary.Error = err.Error()
		return summary, err
	}
	if err := d.runWhole(ctx, plan, summary); err != nil {
		summary.Error = err.Error()
		return summary, err
	}

	summary.Completed = true
	d.log.Info("Restart validation run complete",
		"legs", len(summary.Legs),
		"halves", d.ws.HalvesDir(),
		"whole", d.ws.WholeDir())
	return summary, nil
}

func (d *Driver) validate() error {
	if d.opts.Restarts < 0 {
		return fmt.Errorf("restart count must be >= 0, got %d", d.opts.Restarts)
	}
	if d.opts.Minutes <= 0 {
		return fmt.Errorf("minutes must be > 0, got %d", d.opts.Minutes)
	}
	return nil
}

// saveSummary writes the summary into the working root. A root that was never
// created (e.g. the template is missing) gets no summary file.
func (d *Driver) saveSummary(summary *Summary) {
	summary.FinishedAt = d.now()

	fs := d.ws.Fs()
	if ok, err := afero.DirExists(fs, d.ws.Root()); err != nil || !ok {
		d.log.Debug("Working root missing, run summary not written", "dir", d.ws.Root())
		return
	}
	path := filepath.Join(d.ws.Root(), SummaryFileName)
	if err := summary.Save(fs, path); err != nil {
		d.log.Warn("Failed to write run summary", "error", err)
	}
}

func (d *Driver) runLegs(ctx context.Context, plan *Plan, summary *Summary) error {
	dir := d.ws.HalvesDir()
	chain := rundir.NewChain(d.ws.Fs(), dir, d.opts.OutputDir, d.opts.InputLink)

	for _, leg := range plan.Legs {
		d.log.Info("Starting leg",
			"leg", fmt.Sprintf("%d/%d", leg.Index, len(plan.Legs)),
			"start", simtime.Format(leg.Start),
			"end", simtime.Format(leg.End))

		record, err := d.invoke(ctx, dir, leg)
		if record != nil {
			summary.Legs = append(summary.Legs, *record)
		}
		if err != nil {
			return err
		}

		archived, next, err := chain.Advance()
		if err != nil {
			return fmt.Errorf("leg %d: %w", leg.Index, err)
		}
		summary.Legs[len(summary.Legs)-1].OutputDir = archived
		chain = next
	}
	return nil
}

func (d *Driver) runWhole(ctx context.Context, plan *Plan, summary *Summary) error {
	d.log.Info("Starting whole run",
		"start", simtime.Format(plan.Whole.Start),
		"end", simtime.Format(plan.Whole.End))

	record, err := d.invoke(ctx, d.ws.WholeDir(), plan.Whole)
	if record != nil {
		summary.Whole = record
	}
	return err
}

// invoke persists the leg's configuration, installs it as the file the
// simulator reads, and runs the simulator in dir.
func (d *Driver) invoke(ctx context.Context, dir string, leg Leg) (*LegRecord, error) {
	fs := d.ws.Fs()
	name := leg.ConfigName(d.opts.ConfigName)
	legPath := filepath.Join(dir, name)

	if err := leg.Config.Save(fs, legPath); err != nil {
		return nil, err
	}
	if err := simconfig.Install(fs, legPath, filepath.Join(dir, d.opts.ConfigName)); err != nil {
		return nil, err
	}

	runName := strings.TrimSuffix(name, filepath.Ext(name))
	result, err := d.sim.Run(ctx, dir, runName)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", runName, err)
	}

	record := newLegRecord(leg, legPath, result)
	if !result.Succeeded() {
		d.log.Warn("Simulator exited with non-zero status",
			"run", runName,
			"exit_code", result.ExitCode,
			"log", result.LogPath)
		if result.Tail != "" {
			d.log.Debug("Simulator output tail", "run", runName, "tail", result.Tail)
		}
		if d.opts.Policy == PolicyHalt {
			return &record, fmt.Errorf("%w: %s exited %d (see %s)", ErrSimulatorFailed, runName, result.ExitCode, result.LogPath)
		}
	}
	return &record, nil
}
