package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/fancypantalons/bdedit/internal/model"
)

// section is one free-text part of an issue in display order.
type section struct {
	heading string
	body    model.Text
}

func sections(issue model.Issue) []section {
	return []section{
		{"Description", issue.Description},
		{"Acceptance Criteria", issue.AcceptanceCriteria},
		{"Design", issue.Design},
		{"Notes", issue.Notes},
	}
}

// RenderDetail renders a read-only preview of an issue: header, metadata,
// blocking dependencies and each non-empty section as markdown. related
// supplies titles for the parent and blockers; it may be nil.
func RenderDetail(issue model.Issue, related map[string]model.Issue) string {
	if !ColorsEnabled() {
		return renderPlainDetail(issue, related)
	}

	parts := []string{renderHeader(issue), renderMetadata(issue, related)}

	if len(issue.Dependencies) > 0 {
		parts = append(parts, renderDependencies(issue.Dependencies, related))
	}

	for _, s := range sections(issue) {
		if strings.TrimSpace(s.body.Value()) == "" {
			continue
		}
		body, err := RenderMarkdown(s.body.Value())
		if err != nil {
			body = s.body.Value()
		}
		parts = append(parts, headingStyle.Render(s.heading)+"\n"+body)
	}

	return strings.Join(parts, "\n\n")
}

func renderHeader(issue model.Issue) string {
	idStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	titleStyle := lipgloss.NewStyle().Bold(true)
	statusStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(issue.Status.Color())).
		Bold(true)
	priorityStyle := lipgloss.NewStyle().
		Foreground(ColorFromName(priorityColor(issue.Priority))).
		Bold(true)

	return fmt.Sprintf("%s  %s\n%s  %s",
		idStyle.Render(issue.ID),
		titleStyle.Render(issue.Title),
		statusStyle.Render(string(issue.Status)),
		priorityStyle.Render(priorityLabel(issue.Priority)),
	)
}

// withTitle appends the title of id when related has it.
func withTitle(id string, related map[string]model.Issue) string {
	if r, ok := related[id]; ok && r.Title != "" {
		return id + "  " + r.Title
	}
	return id
}

// metadataLines returns label/value pairs for the fields that are set.
func metadataLines(issue model.Issue, related map[string]model.Issue) [][2]string {
	lines := [][2]string{{"Type:", string(issue.Type)}}
	if v := issue.Assignee.Value(); v != "" {
		lines = append(lines, [2]string{"Assignee:", v})
	}
	if len(issue.Labels) > 0 {
		lines = append(lines, [2]string{"Labels:", strings.Join(issue.Labels, ", ")})
	}
	if v := issue.Parent.Value(); v != "" {
		lines = append(lines, [2]string{"Parent:", withTitle(v, related)})
	}
	if issue.CreatedAt != "" {
		lines = append(lines, [2]string{"Created:", relativeTime(issue.CreatedAt)})
	}
	if issue.UpdatedAt != "" {
		lines = append(lines, [2]string{"Updated:", relativeTime(issue.UpdatedAt)})
	}
	if issue.ClosedAt != "" {
		lines = append(lines, [2]string{"Closed:", relativeTime(issue.ClosedAt)})
	}
	return lines
}

func renderMetadata(issue model.Issue, related map[string]model.Issue) string {
	typeStyle := lipgloss.NewStyle().Foreground(ColorFromName(issue.Type.Color()))

	var lines []string
	for i, kv := range metadataLines(issue, related) {
		value := kv[1]
		if i == 0 {
			value = typeStyle.Render(value)
		}
		lines = append(lines, fmt.Sprintf("%s %s", dimStyle.Render(kv[0]), value))
	}
	return strings.Join(lines, "\n")
}

func renderDependencies(deps []string, related map[string]model.Issue) string {
	t := tree.New().Root(headingStyle.Render("Blocked by"))
	for _, dep := range deps {
		t.Child(withTitle(dep, related))
	}
	return t.String()
}

// renderPlainDetail renders a detail view without any color or styling.
func renderPlainDetail(issue model.Issue, related map[string]model.Issue) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", issue.ID, issue.Title)
	fmt.Fprintf(&b, "%s  %s\n\n", issue.Status, priorityLabel(issue.Priority))

	for _, kv := range metadataLines(issue, related) {
		fmt.Fprintf(&b, "%s %s\n", kv[0], kv[1])
	}

	if len(issue.Dependencies) > 0 {
		b.WriteString("\nBlocked by\n")
		for _, dep := range issue.Dependencies {
			fmt.Fprintf(&b, "  %s\n", withTitle(dep, related))
		}
	}

	for _, s := range sections(issue) {
		if strings.TrimSpace(s.body.Value()) == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", s.heading, s.body.Value())
	}

	return b.String()
}
