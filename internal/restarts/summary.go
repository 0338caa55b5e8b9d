package restarts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"restartcheck/internal/simtime"
	"restartcheck/internal/simulator"
)

// SummaryFileName is written to the working root after every run.
const SummaryFileName = "restarts.summary.json"

// LegRecord describes one completed simulator invocation.
type LegRecord struct {
	Leg        int           `json:"leg"`
	StartTime  []int         `json:"start_time"`
	EndTime    []int         `json:"end_time"`
	ConfigFile string        `json:"config_file"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration"`
	LogPath    string        `json:"log_path"`
	OutputDir  string        `json:"output_dir,omitempty"`
}

func newLegRecord(leg Leg, configPath string, result *simulator.Result) LegRecord {
	return LegRecord{
		Leg:        leg.Index,
		StartTime:  simtime.ToList(leg.Start),
		EndTime:    simtime.ToList(leg.End),
		ConfigFile: configPath,
		ExitCode:   result.ExitCode,
		Duration:   result.Duration,
		LogPath:    result.LogPath,
	}
}

// Summary records one validation session.
type Summary struct {
	SessionID  string        `json:"session_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Restarts   int           `json:"restarts"`
	Minutes    int           `json:"minutes"`
	Policy     FailurePolicy `json:"failure_policy"`
	Legs       []LegRecord   `json:"legs"`
	Whole      *LegRecord    `json:"whole,omitempty"`
	Completed  bool          `json:"completed"`
	Error      string        `json:"error,omitempty"`
}

// FailedRuns counts invocations that exited non-zero.
func (s *Summary) FailedRuns() int {
	n := 0
	for _, l := range s.Legs {
		if l.ExitCode != 0 {
			n++
		}
	}
	if s.Whole != nil && s.Whole.ExitCode != 0 {
		n++
	}
	return n
}

// Save writes the summary as indented JSON.
func (s *Summary) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary %s: %w", path, err)
	}
	return nil
}

// LoadSummary reads a summary written by Save.
func LoadSummary(fs afero.Fs, path string) (*Summary, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary %s: %w", path, err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse summary %s: %w", path, err)
	}
	return &s, nil
}
