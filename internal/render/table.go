package render

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/fancypantalons/bdedit/internal/model"
)

const maxTitleWidth = 40

// relativeTime renders a tracker timestamp as "3 hours ago". Unparseable
// values are shown as-is.
func relativeTime(ts string) string {
	t, ok := model.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return humanize.Time(t)
}

// RenderTable renders a list of issues as a formatted table.
// If treeMode is true, issues are rendered as a parent/child hierarchy instead.
func RenderTable(issues []model.Issue, treeMode bool) string {
	if len(issues) == 0 {
		return EmptyState("No issues found.", "Create one with: bdedit create", false)
	}

	if treeMode {
		return RenderTree(issues)
	}

	if !ColorsEnabled() {
		return renderPlainTable(issues)
	}

	headers := []string{"ID", "Status", "Priority", "Type", "Title", "Assignee", "Updated"}

	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, issueToRow(issue))
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
			if row < 0 || row >= len(issues) {
				return s
			}

			issue := issues[row]
			switch col {
			case 0:
				return s.Foreground(lipgloss.Color("15"))
			case 1:
				return s.Foreground(ColorFromName(issue.Status.Color()))
			case 2:
				return s.Foreground(ColorFromName(priorityColor(issue.Priority)))
			case 3:
				return s.Foreground(ColorFromName(issue.Type.Color()))
			case 4:
				return s.Bold(true)
			default:
				return s
			}
		})

	return t.Render()
}

func issueToRow(issue model.Issue) []string {
	return []string{
		issue.ID,
		string(issue.Status),
		priorityLabel(issue.Priority),
		string(issue.Type),
		truncate(issue.Title, maxTitleWidth),
		issue.Assignee.Value(),
		relativeTime(issue.UpdatedAt),
	}
}

func renderPlainTable(issues []model.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s %-12s %-8s %-8s %-40s %-15s %s\n",
		"ID", "Status", "Priority", "Type", "Title", "Assignee", "Updated")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 112))

	for _, issue := range issues {
		row := issueToRow(issue)
		fmt.Fprintf(&b, "%-12s %-12s %-8s %-8s %-40s %-15s %s\n",
			row[0], row[1], row[2], row[3], row[4], row[5], row[6])
	}

	return b.String()
}

// hierarchy splits issues into roots and children keyed by parent id. An
// issue whose parent is not in the list is treated as a root.
func hierarchy(issues []model.Issue) ([]model.Issue, map[string][]model.Issue) {
	present := make(map[string]bool, len(issues))
	for _, issue := range issues {
		present[issue.ID] = true
	}

	children := make(map[string][]model.Issue)
	var roots []model.Issue
	for _, issue := range issues {
		parent := issue.Parent.Value()
		if parent == "" || parent == issue.ID || !present[parent] {
			roots = append(roots, issue)
			continue
		}
		children[parent] = append(children[parent], issue)
	}
	return roots, children
}

// RenderTree renders issues as an indented hierarchy using tree lines.
func RenderTree(issues []model.Issue) string {
	if len(issues) == 0 {
		return EmptyState("No issues found.", "Create one with: bdedit create", false)
	}

	roots, children := hierarchy(issues)

	if !ColorsEnabled() {
		var b strings.Builder
		seen := make(map[string]bool)
		for _, root := range withOrphans(roots, issues) {
			if !seen[root.ID] {
				renderPlainTreeNode(&b, root, children, 0, seen)
			}
		}
		return b.String()
	}

	t := tree.New().Root("Issues")
	seen := make(map[string]bool)
	for _, root := range withOrphans(roots, issues) {
		if !seen[root.ID] {
			t.Child(treeNode(root, children, seen))
		}
	}
	return t.String()
}

// withOrphans appends every issue after the roots. Callers skip issues they
// already rendered, so only those stranded by a parent cycle are added.
func withOrphans(roots, issues []model.Issue) []model.Issue {
	out := append([]model.Issue{}, roots...)
	return append(out, issues...)
}

func treeNode(issue model.Issue, children map[string][]model.Issue, seen map[string]bool) *tree.Tree {
	seen[issue.ID] = true
	node := tree.Root(formatTreeNode(issue))
	for _, child := range children[issue.ID] {
		if seen[child.ID] {
			continue
		}
		node.Child(treeNode(child, children, seen))
	}
	return node
}

func formatTreeNode(issue model.Issue) string {
	if !ColorsEnabled() {
		return fmt.Sprintf("%s %s %s %s %s",
			issue.ID,
			issue.Status,
			priorityLabel(issue.Priority),
			issue.Type,
			truncate(issue.Title, maxTitleWidth),
		)
	}

	idStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	statusStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Status.Color()))
	priorityStyle := lipgloss.NewStyle().Foreground(ColorFromName(priorityColor(issue.Priority)))
	typeStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Type.Color()))
	titleStyle := lipgloss.NewStyle().Bold(true)

	return fmt.Sprintf("%s %s %s %s %s",
		idStyle.Render(issue.ID),
		statusStyle.Render(string(issue.Status)),
		priorityStyle.Render(priorityLabel(issue.Priority)),
		typeStyle.Render(string(issue.Type)),
		titleStyle.Render(truncate(issue.Title, maxTitleWidth)),
	)
}

func renderPlainTreeNode(b *strings.Builder, issue model.Issue, children map[string][]model.Issue, depth int, seen map[string]bool) {
	seen[issue.ID] = true
	fmt.Fprintf(b, "%s%s\n", strings.Repeat("  ", depth), formatTreeNode(issue))
	for _, child := range children[issue.ID] {
		if seen[child.ID] {
			continue
		}
		renderPlainTreeNode(b, child, children, depth+1, seen)
	}
}
