package model

// SetChange is the add/remove partition for a set-valued field.
type SetChange struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// IsEmpty reports whether nothing is added or removed.
func (s SetChange) IsEmpty() bool {
	return len(s.Add) == 0 && len(s.Remove) == 0
}

// MetadataChange holds changed scalar fields. A nil field is unchanged.
// Assignee set to "" means the assignee is removed.
type MetadataChange struct {
	Title    *string `json:"title,omitempty"`
	Priority *int    `json:"priority,omitempty"`
	Assignee *string `json:"assignee,omitempty"`
}

// IsEmpty reports whether no metadata field changed.
func (m MetadataChange) IsEmpty() bool {
	return m.Title == nil && m.Priority == nil && m.Assignee == nil
}

// SectionChange holds changed free-text sections. A nil field is unchanged;
// "" clears the section.
type SectionChange struct {
	Description        *string `json:"description,omitempty"`
	AcceptanceCriteria *string `json:"acceptance_criteria,omitempty"`
	Design             *string `json:"design,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// IsEmpty reports whether no section changed.
func (s SectionChange) IsEmpty() bool {
	return s.Description == nil && s.AcceptanceCriteria == nil && s.Design == nil && s.Notes == nil
}

// ChangeSet is the sparse difference between two issues. Only changed
// fields are set; the zero value means "no changes".
type ChangeSet struct {
	Metadata     MetadataChange `json:"metadata,omitzero"`
	Status       *Status        `json:"status,omitempty"`
	Labels       SetChange      `json:"labels,omitzero"`
	Dependencies SetChange      `json:"dependencies,omitzero"`
	// Parent is the new parent id; "" removes the parent.
	Parent *string `json:"parent,omitempty"`
	// PreviousParent is the parent the issue had before the change, when
	// known. A pointer to "" means the issue had no parent. It does not count
	// as a change on its own.
	PreviousParent *string       `json:"previous_parent,omitempty"`
	Sections       SectionChange `json:"sections,omitzero"`
}

// IsEmpty reports whether the change set carries no changes.
func (c ChangeSet) IsEmpty() bool {
	return c.Metadata.IsEmpty() &&
		c.Status == nil &&
		c.Labels.IsEmpty() &&
		c.Dependencies.IsEmpty() &&
		c.Parent == nil &&
		c.Sections.IsEmpty()
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
