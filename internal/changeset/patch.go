package changeset

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// diffHeaderLines is how many file-label lines difflib emits ahead of the
// first hunk ("--- path" and "+++ path"). They duplicate the structured
// metadata already on the record, so the patch body drops exactly that many.
// Adjust if the diff generator ever changes.
const diffHeaderLines = 2

const diffContextLines = 3

// unifiedPatch builds the unified-diff body for one path. Absent content is
// passed as the empty string, so one-sided changes render fully as additions
// or deletions.
func unifiedPatch(path, oldText, newText string) (string, error) {
	ud := difflib.UnifiedDiff{
		A:        splitLines(oldText),
		B:        splitLines(newText),
		FromFile: path,
		ToFile:   path,
		Context:  diffContextLines,
	}

	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", fmt.Errorf("generating unified diff for %s: %w", path, err)
	}
	return stripHeader(text, diffHeaderLines), nil
}

// splitLines splits keeping line terminators, without difflib.SplitLines'
// phantom trailing newline. Empty text is zero lines, not one empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// stripHeader drops the first n lines of patch, preserving all hunk lines.
// A patch shorter than n lines (e.g. the empty patch) strips to empty.
func stripHeader(patch string, n int) string {
	for ; n > 0; n-- {
		i := strings.IndexByte(patch, '\n')
		if i < 0 {
			return ""
		}
		patch = patch[i+1:]
	}
	return patch
}
