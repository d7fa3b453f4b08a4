package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

var (
	addStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	delStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// DiffLine is one line of a line-level document diff. Op is '+', '-' or ' '.
type DiffLine struct {
	Op   byte
	Text string
}

// LineDiff compares two documents line by line.
func LineDiff(before, after string) []DiffLine {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		var op byte
		switch d.Type {
		case diffpatch.DiffInsert:
			op = '+'
		case diffpatch.DiffDelete:
			op = '-'
		default:
			op = ' '
		}
		for _, line := range splitLines(d.Text) {
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// RenderTextDiff renders the changed lines of a document with context lines
// of surrounding text. Unchanged runs longer than that collapse to "...".
func RenderTextDiff(before, after string, context int) string {
	lines := LineDiff(before, after)

	keep := make([]bool, len(lines))
	changed := false
	for i, l := range lines {
		if l.Op == ' ' {
			continue
		}
		changed = true
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}
	if !changed {
		return EmptyState("No textual changes.", "", false)
	}

	var b strings.Builder
	skipped := false
	for i, l := range lines {
		if !keep[i] {
			if !skipped {
				b.WriteString(StyledText("...", dimStyle) + "\n")
				skipped = true
			}
			continue
		}
		skipped = false

		text := string(l.Op) + " " + l.Text
		switch l.Op {
		case '+':
			text = StyledText(text, addStyle)
		case '-':
			text = StyledText(text, delStyle)
		}
		b.WriteString(text + "\n")
	}
	return b.String()
}
