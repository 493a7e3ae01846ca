// Package diff renders line-oriented differences between two versions of a file.
package diff

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// Result is a unified rendering plus line counts.
type Result struct {
	Unified string
	Added   int
	Removed int
}

// Changed reports whether the inputs differed.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Summary renders "+added -removed".
func (r Result) Summary() string {
	return fmt.Sprintf("+%d -%d", r.Added, r.Removed)
}

// Lines diffs previous against next line by line. Identical inputs yield a zero
// Result. Output beyond 10,000 lines is truncated with a marker.
func Lines(previous, next []byte, previousLabel, nextLabel string) Result {
	if bytes.Equal(previous, next) {
		return Result{}
	}

	dmp := diffmatchpatch.New()
	prevChars, nextChars, lineArray := dmp.DiffLinesToChars(string(previous), string(next))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(prevChars, nextChars, false), lineArray)

	var (
		buf    bytes.Buffer
		result Result
	)
	fmt.Fprintf(&buf, "--- %s\n", previousLabel)
	fmt.Fprintf(&buf, "+++ %s\n", nextLabel)
	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", countLines(previous), countLines(next))

	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				result.Removed++
			case diffmatchpatch.DiffInsert:
				result.Added++
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	out := buf.String()
	lines := strings.Split(out, "\n")
	if len(lines) > maxDiffLines {
		out = strings.Join(lines[:maxDiffLines], "\n") + "\n" + truncateMessage + "\n"
	}
	result.Unified = out
	return result
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func countLines(content []byte) int {
	return len(splitLines(string(content)))
}
