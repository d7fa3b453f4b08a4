package command

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fancypantalons/bdedit/internal/model"
)

// ErrPreviousParentUnknown is returned when a change set removes the parent
// but does not say which parent to unlink.
var ErrPreviousParentUnknown = errors.New("cannot remove parent: previous parent id is unknown")

// ValidationError reports an issue that cannot be turned into a create command.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// GenerateUpdate returns the commands that apply cs to issue id, in the
// order bd needs them:
//
//  1. parent link
//  2. old parent unlink
//  3. dependency removals, then additions
//  4. label removals, then additions
//  5. status transition
//  6. one combined update for metadata and sections
//
// An empty change set yields no commands.
func GenerateUpdate(id string, cs model.ChangeSet) ([]Command, error) {
	var cmds []Command

	if cs.Parent != nil {
		if *cs.Parent != "" {
			cmds = append(cmds, newCommand("dep", "add", id, *cs.Parent, "--type", model.DepParentChild))
		}
		switch {
		case cs.PreviousParent == nil:
			if *cs.Parent == "" {
				return nil, ErrPreviousParentUnknown
			}
		case *cs.PreviousParent != "" && *cs.PreviousParent != *cs.Parent:
			cmds = append(cmds, newCommand("dep", "remove", id, *cs.PreviousParent))
		}
	}

	for _, dep := range cs.Dependencies.Remove {
		cmds = append(cmds, newCommand("dep", "remove", id, dep))
	}
	for _, dep := range cs.Dependencies.Add {
		cmds = append(cmds, newCommand("dep", "add", id, dep, "--type", model.DepBlocks))
	}

	for _, label := range cs.Labels.Remove {
		c := newCommand("label", "remove", id)
		c.text(label)
		cmds = append(cmds, c)
	}
	for _, label := range cs.Labels.Add {
		c := newCommand("label", "add", id)
		c.text(label)
		cmds = append(cmds, c)
	}

	if cs.Status != nil {
		cmds = append(cmds, statusCommand(id, *cs.Status))
	}

	if !cs.Metadata.IsEmpty() || !cs.Sections.IsEmpty() {
		cmds = append(cmds, updateCommand(id, cs))
	}

	return cmds, nil
}

func statusCommand(id string, status model.Status) Command {
	switch status {
	case model.StatusClosed:
		return newCommand("close", id)
	case model.StatusOpen:
		return newCommand("reopen", id)
	default:
		return newCommand("update", id, "--status", string(status))
	}
}

func updateCommand(id string, cs model.ChangeSet) Command {
	c := newCommand("update", id)

	if cs.Metadata.Title != nil {
		c.textFlag("--title", *cs.Metadata.Title)
	}
	if cs.Metadata.Priority != nil {
		c.arg("--priority", strconv.Itoa(*cs.Metadata.Priority))
	}
	if cs.Metadata.Assignee != nil {
		c.textFlag("--assignee", *cs.Metadata.Assignee)
	}

	sections := []struct {
		flag  string
		value *string
	}{
		{"--description", cs.Sections.Description},
		{"--acceptance", cs.Sections.AcceptanceCriteria},
		{"--design", cs.Sections.Design},
		{"--notes", cs.Sections.Notes},
	}
	for _, s := range sections {
		if s.value != nil {
			c.textFlag(s.flag, *s.value)
		}
	}

	return c
}

// BuildCreate returns the create command for a new issue. Title and type
// are required; empty optional fields are left out.
//
// Assignee, notes and status are not accepted by create and are applied
// afterwards with GenerateUpdate.
func BuildCreate(issue model.Issue) (Command, error) {
	title := strings.TrimSpace(issue.Title)
	if title == "" {
		return Command{}, &ValidationError{Field: "title", Msg: "Title is required"}
	}
	if strings.TrimSpace(string(issue.Type)) == "" {
		return Command{}, &ValidationError{Field: "type", Msg: "Issue type is required"}
	}

	c := newCommand("create")
	c.text(issue.Title)
	c.arg("--type", string(issue.Type))

	if issue.Priority != nil {
		c.arg("--priority", strconv.Itoa(*issue.Priority))
	}
	if v := issue.Description.Value(); v != "" {
		c.textFlag("--description", v)
	}
	if v := issue.AcceptanceCriteria.Value(); v != "" {
		c.textFlag("--acceptance", v)
	}
	if v := issue.Design.Value(); v != "" {
		c.textFlag("--design", v)
	}
	if len(issue.Labels) > 0 {
		c.textFlag("--labels", strings.Join(issue.Labels, ","))
	}
	if v := issue.Parent.Value(); v != "" {
		c.arg("--parent", v)
	}
	if len(issue.Dependencies) > 0 {
		deps := make([]string, len(issue.Dependencies))
		for i, d := range issue.Dependencies {
			deps[i] = model.DepBlocks + ":" + d
		}
		c.arg("--deps", strings.Join(deps, ","))
	}

	return c, nil
}
