// Package simulator invokes the external simulator binary as a black box.
package simulator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	"restartcheck/internal/logger"
)

// DefaultCommand is the simulator executable, relative to the run directory.
const DefaultCommand = "./aether"

// tailLines is how much simulator output is kept for diagnostics.
const tailLines = 20

// Result describes one simulator invocation.
type Result struct {
	Command  string        `json:"command"`
	Dir      string        `json:"dir"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
	LogPath  string        `json:"log_path,omitempty"`
	Tail     string        `json:"-"`
}

// Succeeded reports whether the simulator exited with status zero.
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner runs the simulator in a given run directory.
type Runner struct {
	command string
	stream  io.Writer
}

// NewRunner creates a runner for command. A relative command containing a path
// separator is resolved against the run directory on each call; a bare name is
// looked up on PATH.
func NewRunner(command string) *Runner {
	if command == "" {
		command = DefaultCommand
	}
	return &Runner{command: command}
}

// SetStream mirrors simulator output to w as well as the run log.
func (r *Runner) SetStream(w io.Writer) {
	r.stream = w
}

// Resolve returns the executable path used for a run in dir.
func (r *Runner) Resolve(dir string) (string, error) {
	if filepath.IsAbs(r.command) {
		return r.command, nil
	}
	if strings.ContainsRune(r.command, filepath.Separator) {
		return filepath.Join(dir, r.command), nil
	}
	path, err := exec.LookPath(r.command)
	if err != nil {
		return "", fmt.Errorf("simulator %q not found on PATH: %w", r.command, err)
	}
	return path, nil
}

// Run executes the simulator with no arguments and dir as its working
// directory, writing its combined output to <dir>/<name>.log. A non-zero exit
// is reported in the Result, not as an error; an error means the process could
// not be run at all.
func (r *Runner) Run(ctx context.Context, dir, name string) (*Result, error) {
	log := logger.NewStyledLogger("Simulator")

	path, err := r.Resolve(dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("simulator not found at %s: %w", path, err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("simulator path %s is a directory", path)
	}

	logPath := filepath.Join(dir, name+".log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log %s: %w", logPath, err)
	}
	defer func() { _ = logFile.Close() }()

	var captured bytes.Buffer
	writers := []io.Writer{logFile, &captured}
	if r.stream != nil {
		writers = append(writers, r.stream)
	}
	out := io.MultiWriter(writers...)

	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdout = out
	cmd.Stderr = out

	log.Info("Running simulator", "run", name, "dir", dir)
	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Command:  path,
		Dir:      dir,
		Duration: time.Since(start),
		LogPath:  logPath,
		Tail:     Tail(captured.String(), tailLines),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("failed to run simulator %s: %w", path, runErr)
		}
		result.ExitCode = exitErr.ExitCode()
		if ctx.Err() != nil {
			return result, fmt.Errorf("simulator interrupted: %w", ctx.Err())
		}
	}

	log.Debug("Simulator finished", "run", name, "exit_code", result.ExitCode, "duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// Tail returns the last n non-empty lines of output with terminal escape
// sequences removed.
func Tail(output string, n int) string {
	lines := strings.Split(strings.TrimRight(ansi.Strip(output), "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}
