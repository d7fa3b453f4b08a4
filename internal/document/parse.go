package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fancypantalons/bdedit/internal/filter"
	"github.com/fancypantalons/bdedit/internal/model"
)

var headings = []string{
	HeadingDescription,
	HeadingAcceptanceCriteria,
	HeadingDesign,
	HeadingNotes,
}

// ParseText splits text into lines and parses it. CRLF line endings and a
// single terminating newline are accepted.
func ParseText(text string) (model.Issue, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	return Parse(strings.Split(text, "\n"))
}

// Parse reads document lines produced by Format (and then edited) back into
// an issue.
//
// Unknown front-matter keys are ignored. Labels and Dependencies are never
// nil. A section whose heading is missing stays absent; a heading with no
// content yields a present, empty field.
func Parse(lines []string) (model.Issue, error) {
	issue := model.Issue{
		Labels:       []string{},
		Dependencies: []string{},
	}

	lines = trimCR(lines)

	open := 0
	for open < len(lines) && strings.TrimSpace(lines[open]) == "" {
		open++
	}
	if open == len(lines) || strings.TrimSpace(lines[open]) != Fence {
		return model.Issue{}, &ValidationError{
			Line:  open + 1,
			Field: "front-matter",
			Msg:   fmt.Sprintf("document must start with a %q line", Fence),
		}
	}

	end := -1
	for i := open + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == Fence {
			end = i
			break
		}
	}
	if end < 0 {
		return model.Issue{}, &TranscriptionError{
			Line: open + 1,
			Msg:  fmt.Sprintf("front-matter is never closed: add a %q line after the last field", Fence),
		}
	}

	if err := parseFrontMatter(&issue, lines[open+1:end], open+2); err != nil {
		return model.Issue{}, err
	}
	if err := parseSections(&issue, lines[end+1:], end+2); err != nil {
		return model.Issue{}, err
	}

	return issue, nil
}

// parseFrontMatter assigns fields from key: value lines. first is the
// 1-based line number of fm[0], used in error messages. The block is not
// YAML: values are taken verbatim after the first ": ", so a title may hold
// ": " or " #" without quoting.
func parseFrontMatter(issue *model.Issue, fm []string, first int) error {
	var seqKey string
	var labels, deps []string

	for i, raw := range fm {
		lineNo := first + i
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if trimmed == "-" || strings.HasPrefix(trimmed, "- ") {
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
			switch seqKey {
			case "labels":
				labels = append(labels, item)
			case "dependencies":
				deps = append(deps, item)
			}
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return &TranscriptionError{
				Line: lineNo,
				Msg:  fmt.Sprintf("expected \"key: value\" in front-matter, got %q", trimmed),
			}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		seqKey = ""

		switch key {
		case "id":
			issue.ID = value
		case "title":
			issue.Title = value
		case "type":
			issue.Type = model.IssueType(value)
		case "status":
			if value != "" {
				if err := model.ValidateStatus(model.Status(value)); err != nil {
					return &ValidationError{Line: lineNo, Field: "status", Msg: err.Error()}
				}
			}
			issue.Status = model.Status(value)
		case "priority":
			p, err := parsePriority(value)
			if err != nil {
				return &ValidationError{Line: lineNo, Field: "priority", Msg: err.Error()}
			}
			issue.Priority = p
		case "assignee":
			issue.Assignee = model.NewText(value)
		case "parent":
			issue.Parent = model.NewText(value)
		case "labels":
			if value == "" {
				seqKey = key
			} else {
				labels = append(labels, inlineList(value)...)
			}
		case "dependencies":
			if value == "" {
				seqKey = key
			} else {
				deps = append(deps, inlineList(value)...)
			}
		case "created_at":
			issue.CreatedAt = value
		case "updated_at":
			issue.UpdatedAt = value
		case "closed_at":
			issue.ClosedAt = value
		}
	}

	issue.Labels = filter.Dedupe(labels)
	issue.Dependencies = filter.Dedupe(deps)
	return nil
}

// parsePriority accepts "2" or "P2". An empty value leaves priority unset.
func parsePriority(value string) (*int, error) {
	if value == "" {
		return nil, nil
	}
	digits := strings.TrimPrefix(strings.TrimPrefix(value, "P"), "p")
	p, err := strconv.Atoi(digits)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number between %d and %d", value, model.MinPriority, model.MaxPriority)
	}
	if err := model.ValidatePriority(p); err != nil {
		return nil, err
	}
	return &p, nil
}

// inlineList splits "a, b" or "[a, b]" into items.
func inlineList(value string) []string {
	value = strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// trimCR returns a copy of lines with any trailing carriage return removed.
func trimCR(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	return out
}

func headingName(line string) (string, bool) {
	line = strings.TrimRight(line, " \t")
	for _, h := range headings {
		if line == "# "+h {
			return h, true
		}
	}
	return "", false
}

// parseSections splits the body into the four known sections. Any other
// "#" line is body text. Lines before the first known heading are ignored.
func parseSections(issue *model.Issue, body []string, first int) error {
	bodies := make(map[string][]string, len(headings))
	current := ""

	for i, line := range body {
		if name, ok := headingName(line); ok {
			if _, dup := bodies[name]; dup {
				return &TranscriptionError{
					Line: first + i,
					Msg:  fmt.Sprintf("section %q appears more than once", "# "+name),
				}
			}
			bodies[name] = []string{}
			current = name
			continue
		}
		if current != "" {
			bodies[current] = append(bodies[current], line)
		}
	}

	for name, lines := range bodies {
		text := model.NewText(joinBody(lines))
		switch name {
		case HeadingDescription:
			issue.Description = text
		case HeadingAcceptanceCriteria:
			issue.AcceptanceCriteria = text
		case HeadingDesign:
			issue.Design = text
		case HeadingNotes:
			issue.Notes = text
		}
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// joinBody drops exactly one leading and one trailing blank line and joins
// the rest. A body with no non-blank line is the empty string.
func joinBody(lines []string) string {
	if len(lines) > 0 && isBlank(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) > 0 && isBlank(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}

	allBlank := true
	for _, l := range lines {
		if !isBlank(l) {
			allBlank = false
			break
		}
	}
	if allBlank {
		return ""
	}
	return strings.Join(lines, "\n")
}
