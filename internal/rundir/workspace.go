// Package rundir manages the simulator run directories: copying the template
// run tree into place and chaining each leg's restart output into the next
// leg's restart input.
package rundir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"restartcheck/internal/logger"
)

// Default directory names under the working root.
const (
	HalvesDirName = "run.halves"
	WholeDirName  = "run.whole"
)

// ErrTemplateMissing is returned when the template run directory does not exist.
var ErrTemplateMissing = errors.New("template run directory not found")

// Workspace is the working root holding the chained-restart tree and the
// whole-run tree, both copied from the same template.
type Workspace struct {
	fs       afero.Fs
	root     string
	template string
}

// NewWorkspace creates a workspace rooted at root whose run trees are copies of template.
// A relative template is resolved against root.
func NewWorkspace(fs afero.Fs, root, template string) *Workspace {
	if !filepath.IsAbs(template) {
		template = filepath.Join(root, template)
	}
	return &Workspace{fs: fs, root: root, template: template}
}

// Root returns the working root.
func (w *Workspace) Root() string { return w.root }

// Template returns the resolved template directory.
func (w *Workspace) Template() string { return w.template }

// HalvesDir is the tree the restart legs run in.
func (w *Workspace) HalvesDir() string { return filepath.Join(w.root, HalvesDirName) }

// WholeDir is the tree the uninterrupted run executes in.
func (w *Workspace) WholeDir() string { return filepath.Join(w.root, WholeDirName) }

// Fs returns the filesystem the workspace operates on.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// Prepare removes any previous run trees and recreates both from the template.
func (w *Workspace) Prepare() error {
	log := logger.NewStyledLogger("Workspace")

	info, err := w.fs.Stat(w.template)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrTemplateMissing, w.template)
		}
		return fmt.Errorf("failed to stat template %s: %w", w.template, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrTemplateMissing, w.template)
	}

	if err := w.fs.MkdirAll(w.root, 0755); err != nil {
		return fmt.Errorf("failed to create working root %s: %w", w.root, err)
	}

	for _, dir := range []string{w.HalvesDir(), w.WholeDir()} {
		if err := w.fs.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		log.Debug("Copying template", "from", w.template, "to", dir)
		if err := CopyTree(w.fs, w.template, dir); err != nil {
			return fmt.Errorf("failed to copy template into %s: %w", dir, err)
		}
	}

	log.Info("Workspace ready", "halves", w.HalvesDir(), "whole", w.WholeDir())
	return nil
}

// CopyTree copies the directory src to dst, keeping file modes and recreating
// symlinks as symlinks. dst must not already exist.
func CopyTree(fs afero.Fs, src, dst string) error {
	if _, err := fs.Stat(dst); err == nil {
		return fmt.Errorf("destination already exists: %s", dst)
	}

	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(fs, path, target)
		case info.IsDir():
			if err := fs.MkdirAll(target, info.Mode().Perm()); err != nil {
				return err
			}
			return fs.Chmod(target, info.Mode().Perm())
		case info.Mode().IsRegular():
			return copyFile(fs, path, target, info.Mode().Perm())
		default:
			logger.Warn("Skipping special file in template", "path", path, "mode", info.Mode().String())
			return nil
		}
	})
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, ok := fs.(afero.LinkReader)
	if !ok {
		return fmt.Errorf("filesystem cannot read symlink %s", src)
	}
	linker, ok := fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("filesystem cannot create symlink %s", dst)
	}

	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", src, err)
	}
	return linker.SymlinkIfPossible(target, dst)
}

func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	// OpenFile is subject to the umask; the simulator binary must stay executable.
	return fs.Chmod(dst, perm)
}
