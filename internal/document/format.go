// Package document converts issues to and from the editable Markdown form:
// a front-matter block fenced by "---" followed by "# Heading" sections.
package document

import (
	"strconv"
	"strings"

	"github.com/fancypantalons/bdedit/internal/model"
)

// Fence opens and closes the front-matter block.
const Fence = "---"

// Section headings, in the order they are written.
const (
	HeadingDescription        = "Description"
	HeadingAcceptanceCriteria = "Acceptance Criteria"
	HeadingDesign             = "Design"
	HeadingNotes              = "Notes"
)

// Format renders issue as document lines. It is the inverse of Parse.
//
// Description, Acceptance Criteria and Design are written whenever the field
// is present, even when empty, so the user has a place to type. Notes is
// written only when it has content.
func Format(issue model.Issue) []string {
	id := issue.ID
	if model.IsNewID(id) {
		id = model.NewIssueID
	}

	lines := []string{
		Fence,
		"id: " + id,
		"title: " + issue.Title,
		"type: " + string(issue.Type),
		"status: " + string(issue.Status),
		"priority: " + strconv.Itoa(issue.PriorityOrDefault()),
	}

	if issue.Assignee.Present() {
		lines = append(lines, "assignee: "+issue.Assignee.Value())
	}
	lines = appendSequence(lines, "labels", issue.Labels)
	if issue.Parent.Present() {
		lines = append(lines, "parent: "+issue.Parent.Value())
	}
	lines = appendSequence(lines, "dependencies", issue.Dependencies)

	for _, ts := range []struct{ key, value string }{
		{"created_at", issue.CreatedAt},
		{"updated_at", issue.UpdatedAt},
		{"closed_at", issue.ClosedAt},
	} {
		if ts.value != "" {
			lines = append(lines, ts.key+": "+ts.value)
		}
	}
	lines = append(lines, Fence)

	header := len(lines)
	lines = appendSection(lines, HeadingDescription, issue.Description)
	lines = appendSection(lines, HeadingAcceptanceCriteria, issue.AcceptanceCriteria)
	lines = appendSection(lines, HeadingDesign, issue.Design)
	if issue.Notes.Value() != "" {
		lines = appendSection(lines, HeadingNotes, issue.Notes)
	}
	if len(lines) > header {
		lines = append(lines, "")
	}

	return lines
}

// FormatText renders issue as a single newline-terminated string.
func FormatText(issue model.Issue) string {
	return strings.Join(Format(issue), "\n") + "\n"
}

func appendSequence(lines []string, key string, values []string) []string {
	if len(values) == 0 {
		return lines
	}
	lines = append(lines, key+":")
	for _, v := range values {
		lines = append(lines, "  - "+v)
	}
	return lines
}

// appendSection writes a blank separator, the heading, a blank line and the
// body. The separator of the next section (or the final blank Format adds)
// closes the body, so every body sits between exactly one blank on each side.
func appendSection(lines []string, heading string, body model.Text) []string {
	if !body.Present() {
		return lines
	}
	lines = append(lines, "", "# "+heading, "")
	lines = append(lines, strings.Split(body.Value(), "\n")...)
	return lines
}
