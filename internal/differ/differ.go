// Package differ computes the sparse change set between two versions of an
// issue.
package differ

import (
	"github.com/fancypantalons/bdedit/internal/filter"
	"github.com/fancypantalons/bdedit/internal/model"
)

// Diff returns the changes that turn original into modified.
//
// ID, type and the timestamps are never compared. A field that was present
// in original and is absent in modified is reported as "" (removed). Label
// and dependency lists are sorted, so the result is stable for equal inputs.
func Diff(original, modified model.Issue) model.ChangeSet {
	var cs model.ChangeSet

	if original.Title != modified.Title {
		cs.Metadata.Title = model.StringPtr(modified.Title)
	}
	if original.PriorityOrDefault() != modified.PriorityOrDefault() {
		cs.Metadata.Priority = model.IntPtr(modified.PriorityOrDefault())
	}
	cs.Metadata.Assignee = diffOptional(original.Assignee, modified.Assignee)

	if original.Status != modified.Status && modified.Status != "" {
		status := modified.Status
		cs.Status = &status
	}

	cs.Labels = diffSet(original.Labels, modified.Labels)
	cs.Dependencies = diffSet(original.Dependencies, modified.Dependencies)

	if cs.Parent = diffOptional(original.Parent, modified.Parent); cs.Parent != nil {
		cs.PreviousParent = model.StringPtr(original.Parent.Value())
	}

	cs.Sections.Description = diffSection(original.Description, modified.Description)
	cs.Sections.AcceptanceCriteria = diffSection(original.AcceptanceCriteria, modified.AcceptanceCriteria)
	cs.Sections.Design = diffSection(original.Design, modified.Design)
	cs.Sections.Notes = diffSection(original.Notes, modified.Notes)

	return cs
}

// diffOptional compares a single-value optional field such as the assignee.
// Absent and empty are treated alike: both mean "not set".
func diffOptional(a, b model.Text) *string {
	if a.Value() == b.Value() {
		return nil
	}
	return model.StringPtr(b.Value())
}

// diffSection compares a free-text section, where absent and empty differ.
// Removing a section that had content clears it.
func diffSection(a, b model.Text) *string {
	if a.Equal(b) {
		return nil
	}
	if !b.Present() {
		if a.Value() == "" {
			return nil
		}
		return model.StringPtr("")
	}
	return model.StringPtr(b.Value())
}

func diffSet(original, modified []string) model.SetChange {
	return model.SetChange{
		Add:    filter.Difference(modified, original),
		Remove: filter.Difference(original, modified),
	}
}

// ImmutableChanges lists the fields that differ between original and
// modified but cannot be changed on an existing issue. Diff ignores them.
func ImmutableChanges(original, modified model.Issue) []string {
	var fields []string
	if modified.Type != "" && original.Type != modified.Type {
		fields = append(fields, "type")
	}
	if !model.IsNewID(modified.ID) && original.ID != modified.ID {
		fields = append(fields, "id")
	}
	return fields
}
