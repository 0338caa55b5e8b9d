// Package report renders restart plans, configuration diffs and run summaries.
package report

import (
	"fmt"
	"io"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Differ shows how a leg's configuration differs from the base configuration.
type Differ struct {
	w io.Writer
}

// NewDiffer creates a differ writing to w.
func NewDiffer(w io.Writer) *Differ {
	return &Differ{w: w}
}

// ShowDiff writes a compact character-level diff between expected and actual.
// Unchanged runs are elided to their first characters.
func (d *Differ) ShowDiff(expected, actual, label string) {
	fmt.Fprintf(d.w, "=== %s ===\n", label)

	if expected == actual {
		fmt.Fprintln(d.w, "No differences")
		return
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	for _, diff := range diffs {
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			fmt.Fprintf(d.w, "- %q\n", diff.Text)
		case diffmatchpatch.DiffInsert:
			fmt.Fprintf(d.w, "+ %q\n", diff.Text)
		case diffmatchpatch.DiffEqual:
			if runes := []rune(diff.Text); len(runes) > 50 {
				fmt.Fprintf(d.w, "  %q...\n", string(runes[:47]))
			} else {
				fmt.Fprintf(d.w, "  %q\n", diff.Text)
			}
		}
	}
}
