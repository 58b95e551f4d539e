// internal/diff/diff.go
package diff

import (
	"strings"
)

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Line is a single patch-body line with its marker stripped.
type Line struct {
	Type    LineType
	Content string
}

// Hunk is one @@-delimited section of a unified patch body.
type Hunk struct {
	Header string
	Lines  []Line
}

// Stats aggregates line counts over a parsed patch body.
type Stats struct {
	Additions int
	Deletions int
}

func (s Stats) Changes() int {
	return s.Additions + s.Deletions
}

// Parse splits a header-stripped unified patch body into hunks. Unknown
// lines (e.g. "\ No newline at end of file") are kept as context so nothing
// from the body is lost on round-trip display.
func Parse(body string) ([]Hunk, Stats) {
	var hunks []Hunk
	var stats Stats
	var current *Hunk

	for _, raw := range strings.Split(body, "\n") {
		if raw == "" {
			continue
		}

		if strings.HasPrefix(raw, "@@") {
			hunks = append(hunks, Hunk{Header: raw})
			current = &hunks[len(hunks)-1]
			continue
		}
		if current == nil {
			// Body without a hunk header; tolerate by opening an implicit hunk.
			hunks = append(hunks, Hunk{})
			current = &hunks[len(hunks)-1]
		}

		line := Line{Type: Context, Content: raw}
		switch raw[0] {
		case '+':
			line.Type = Addition
			line.Content = raw[1:]
			stats.Additions++
		case '-':
			line.Type = Deletion
			line.Content = raw[1:]
			stats.Deletions++
		case ' ':
			line.Content = raw[1:]
		}
		current.Lines = append(current.Lines, line)
	}

	return hunks, stats
}
