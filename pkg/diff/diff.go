// Package diff renders line-oriented differences between two texts.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// Options labels the two sides of a diff.
type Options struct {
	BeforeLabel string
	AfterLabel  string
	// Context keeps this many unchanged lines around each change and folds
	// the rest. Zero prints every unchanged line.
	Context int
}

type line struct {
	op   diffmatchpatch.Operation
	text string
}

// Unified returns a unified-style diff of before and after, or "" when they
// are identical. Diffs longer than 10,000 lines are truncated with a marker.
func Unified(before, after string, opts Options) string {
	if before == after {
		return ""
	}

	lines := lineDiff(before, after)
	if opts.Context > 0 {
		lines = fold(lines, opts.Context)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "--- %s\n", orDefault(opts.BeforeLabel, "before"))
	fmt.Fprintf(&buf, "+++ %s\n", orDefault(opts.AfterLabel, "after"))
	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", countLines(before), countLines(after))

	written := 3
	for _, l := range lines {
		if written >= maxDiffLines {
			buf.WriteString(truncateMessage + "\n")
			break
		}
		switch l.op {
		case diffmatchpatch.DiffEqual:
			buf.WriteString(" ")
		case diffmatchpatch.DiffDelete:
			buf.WriteString("-")
		case diffmatchpatch.DiffInsert:
			buf.WriteString("+")
		}
		buf.WriteString(l.text)
		buf.WriteString("\n")
		written++
	}
	return buf.String()
}

// Stats counts the lines inserted and deleted between before and after.
func Stats(before, after string) (inserted, deleted int) {
	for _, l := range lineDiff(before, after) {
		switch l.op {
		case diffmatchpatch.DiffInsert:
			inserted++
		case diffmatchpatch.DiffDelete:
			deleted++
		}
	}
	return inserted, deleted
}

func lineDiff(before, after string) []line {
	dmp := diffmatchpatch.New()
	a, b, index := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), index)

	var out []line
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			out = append(out, line{op: d.Type, text: text})
		}
	}
	return out
}

// fold keeps context unchanged lines on each side of a change and replaces
// longer unchanged runs with a single "..." marker.
func fold(lines []line, context int) []line {
	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.op == diffmatchpatch.DiffEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var out []line
	skipped := false
	for i, l := range lines {
		if keep[i] {
			out = append(out, l)
			skipped = false
			continue
		}
		if !skipped {
			out = append(out, line{op: diffmatchpatch.DiffEqual, text: "..."})
			skipped = true
		}
	}
	return out
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func countLines(text string) int {
	return len(splitLines(text))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
