package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fancypantalons/bdedit/internal/model"
)

var warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

// RenderPlan renders the numbered commands that will be run for an issue,
// followed by any warnings about edits that will be ignored.
func RenderPlan(issueID string, cmds []string, warnings []string) string {
	var b strings.Builder

	if len(cmds) == 0 {
		b.WriteString(EmptyState(fmt.Sprintf("No changes for %s.", issueID), "", false))
		b.WriteString("\n")
	} else {
		noun := "commands"
		if len(cmds) == 1 {
			noun = "command"
		}
		fmt.Fprintf(&b, "%s\n", StyledText(fmt.Sprintf("%s: %d %s", issueID, len(cmds), noun), headingStyle))
		width := len(fmt.Sprint(len(cmds)))
		for i, c := range cmds {
			num := fmt.Sprintf("%*d.", width, i+1)
			fmt.Fprintf(&b, "  %s %s\n", StyledText(num, dimStyle), c)
		}
	}

	for _, w := range warnings {
		fmt.Fprintf(&b, "%s\n", StyledText("warning: "+w, warnStyle))
	}
	return b.String()
}

// RenderDrafts renders saved drafts as a table.
func RenderDrafts(drafts []model.Draft) string {
	if len(drafts) == 0 {
		return EmptyState("No saved drafts.", "", false)
	}

	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		errMsg := d.Error
		if errMsg == "" {
			errMsg = "-"
		}
		rows = append(rows, []string{d.IssueID, humanize.Time(d.SavedAt), truncate(errMsg, 60)})
	}
	return renderSimpleTable([]string{"Issue", "Saved", "Reason"}, rows)
}

// RenderJournal renders applied commands grouped by run, newest run first.
func RenderJournal(entries []model.JournalEntry) string {
	if len(entries) == 0 {
		return EmptyState("No applied commands recorded.", "", false)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		result := "ok"
		if !e.OK {
			result = "failed: " + truncate(e.Error, 50)
		}
		rows = append(rows, []string{
			fmt.Sprint(e.RunID),
			e.IssueID,
			humanize.Time(e.CreatedAt),
			truncate(e.Command, 60),
			result,
		})
	}
	return renderSimpleTable([]string{"Run", "Issue", "When", "Command", "Result"}, rows)
}

// renderSimpleTable renders rows with a bold header, or as aligned plain
// columns when colors are disabled.
func renderSimpleTable(headers []string, rows [][]string) string {
	if !ColorsEnabled() {
		widths := make([]int, len(headers))
		for i, h := range headers {
			widths[i] = len(h)
		}
		for _, row := range rows {
			for i, cell := range row {
				widths[i] = max(widths[i], len(cell))
			}
		}

		var b strings.Builder
		writeRow := func(cells []string) {
			for i, cell := range cells {
				if i == len(cells)-1 {
					b.WriteString(cell)
					break
				}
				fmt.Fprintf(&b, "%-*s  ", widths[i], cell)
			}
			b.WriteString("\n")
		}
		writeRow(headers)
		for _, row := range rows {
			writeRow(row)
		}
		return b.String()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(lipgloss.Color("15"))
			}
			if row >= 0 && row < len(rows) && strings.HasPrefix(rows[row][len(rows[row])-1], "failed") {
				return s.Foreground(lipgloss.Color("9"))
			}
			return s
		})
	return t.Render()
}
