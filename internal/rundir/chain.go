package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
)

// Default locations inside a run tree.
const (
	DefaultOutputDir = "UA/restartOut"
	DefaultInputLink = "UA/restartIn"
)

var (
	// ErrOutputMissing is returned when the simulator did not leave its output directory behind.
	ErrOutputMissing = errors.New("simulator output directory missing")
	// ErrNoSymlinks is returned for filesystems that cannot hold the input link.
	ErrNoSymlinks = errors.New("filesystem does not support symlinks")
)

// Chain tracks where the next leg writes its restart files and where it reads
// the previous leg's files from. Each Advance consumes the current output and
// hands back the chain for the following leg.
type Chain struct {
	fs     afero.Fs
	Dir    string // run tree
	Output string // relative to Dir
	Input  string // relative to Dir
	Leg    int    // legs completed so far
}

// NewChain starts a chain in dir. Empty output or input fall back to the defaults.
func NewChain(fs afero.Fs, dir, output, input string) Chain {
	if output == "" {
		output = DefaultOutputDir
	}
	if input == "" {
		input = DefaultInputLink
	}
	return Chain{fs: fs, Dir: dir, Output: output, Input: input}
}

// OutputPath is the absolute output directory the next leg writes to.
func (c Chain) OutputPath() string { return filepath.Join(c.Dir, c.Output) }

// InputPath is the absolute input link the next leg reads from.
func (c Chain) InputPath() string { return filepath.Join(c.Dir, c.Input) }

// ArchivedName is the name leg n's output is kept under, e.g. restartOut3.
func (c Chain) ArchivedName(n int) string {
	return filepath.Base(c.Output) + strconv.Itoa(n)
}

// Advance archives the output of the leg that just ran, recreates an empty
// output directory, and points the input link at the archived output.
// It returns the archived directory and the chain for the next leg.
func (c Chain) Advance() (string, Chain, error) {
	leg := c.Leg + 1
	out := c.OutputPath()

	info, err := c.fs.Stat(out)
	if err != nil || !info.IsDir() {
		return "", c, fmt.Errorf("%w after leg %d: %s", ErrOutputMissing, leg, out)
	}

	// Nothing is moved until the link can be made.
	linker, ok := c.fs.(afero.Linker)
	if !ok {
		return "", c, ErrNoSymlinks
	}
	archived := filepath.Join(filepath.Dir(out), c.ArchivedName(leg))
	target, err := filepath.Rel(filepath.Dir(c.InputPath()), archived)
	if err != nil {
		return "", c, fmt.Errorf("failed to resolve link target: %w", err)
	}

	if err := c.fs.RemoveAll(archived); err != nil {
		return "", c, fmt.Errorf("failed to clear %s: %w", archived, err)
	}
	if err := c.fs.Rename(out, archived); err != nil {
		return "", c, fmt.Errorf("failed to archive %s: %w", out, err)
	}
	if err := c.fs.Mkdir(out, info.Mode().Perm()); err != nil {
		return "", c, fmt.Errorf("failed to recreate %s: %w", out, err)
	}

	if err := c.relink(linker, target); err != nil {
		return "", c, err
	}

	next := c
	next.Leg = leg
	return archived, next, nil
}

// Target reports what the input link currently points at.
func (c Chain) Target() (string, error) {
	reader, ok := c.fs.(afero.LinkReader)
	if !ok {
		return "", ErrNoSymlinks
	}
	return reader.ReadlinkIfPossible(c.InputPath())
}

// relink replaces the input link with one to target, which is relative to
// the link's directory so the run tree stays valid if it is moved.
func (c Chain) relink(linker afero.Linker, target string) error {
	in := c.InputPath()
	if err := c.fs.RemoveAll(in); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove input link %s: %w", in, err)
	}
	if err := linker.SymlinkIfPossible(target, in); err != nil {
		return fmt.Errorf("failed to link %s -> %s: %w", in, target, err)
	}
	return nil
}
