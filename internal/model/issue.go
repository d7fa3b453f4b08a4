package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// NewIssueID is the placeholder id shown for issues that do not exist yet.
const NewIssueID = "(new)"

// Status represents the workflow state of an issue.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusClosed     Status = "closed"
)

// Query-only states accepted by list filters. They are never stored on an issue.
const (
	StatusReady Status = "ready"
	StatusStale Status = "stale"
	StatusAll   Status = "all"
)

var validStatuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusBlocked,
	StatusClosed,
}

var queryStatuses = []Status{
	StatusReady,
	StatusStale,
	StatusAll,
}

// ValidateStatus returns an error if s is not a storable status.
func ValidateStatus(s Status) error {
	for _, v := range validStatuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid status %q: must be one of %v", s, validStatuses)
}

// ValidateStatusFilter accepts storable statuses plus the query-only states.
func ValidateStatusFilter(s Status) error {
	for _, v := range queryStatuses {
		if s == v {
			return nil
		}
	}
	return ValidateStatus(s)
}

// Color returns a color name string suitable for terminal rendering.
func (s Status) Color() string {
	switch s {
	case StatusOpen:
		return "blue"
	case StatusInProgress:
		return "yellow"
	case StatusBlocked:
		return "red"
	case StatusClosed:
		return "green"
	default:
		return "white"
	}
}

// IssueType represents the category of an issue.
type IssueType string

const (
	TypeBug     IssueType = "bug"
	TypeFeature IssueType = "feature"
	TypeTask    IssueType = "task"
	TypeEpic    IssueType = "epic"
	TypeChore   IssueType = "chore"
)

var validIssueTypes = []IssueType{
	TypeBug,
	TypeFeature,
	TypeTask,
	TypeEpic,
	TypeChore,
}

// ValidateIssueType returns an error if t is not a recognized issue type.
func ValidateIssueType(t IssueType) error {
	for _, v := range validIssueTypes {
		if t == v {
			return nil
		}
	}
	return fmt.Errorf("invalid issue type %q: must be one of %v", t, validIssueTypes)
}

// Color returns a color name string suitable for terminal rendering.
func (t IssueType) Color() string {
	switch t {
	case TypeBug:
		return "red"
	case TypeFeature:
		return "green"
	case TypeEpic:
		return "magenta"
	case TypeChore:
		return "gray"
	default:
		return "white"
	}
}

// Priority bounds. 0 is critical, 4 is backlog.
const (
	MinPriority     = 0
	MaxPriority     = 4
	DefaultPriority = 2
)

// ValidatePriority returns an error if p is outside 0-4.
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return fmt.Errorf("invalid priority %d: must be between %d and %d", p, MinPriority, MaxPriority)
	}
	return nil
}

// PriorityColor returns a color name for a numeric priority.
func PriorityColor(p int) string {
	switch p {
	case 0:
		return "red"
	case 1:
		return "yellow"
	case 2:
		return "blue"
	default:
		return "gray"
	}
}

// IsNewID reports whether id denotes an issue that has not been created yet.
func IsNewID(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || id == NewIssueID
}

// Issue is the structured form of one tracked issue.
//
// Labels and Dependencies have set semantics; their order carries no meaning.
// Parent, Assignee and the four free-text sections are tri-state so that a
// field the user cleared can be told apart from one that was never there.
// Timestamps are kept as the tracker reported them and are never compared.
type Issue struct {
	ID                 string
	Title              string
	Type               IssueType
	Status             Status
	Priority           *int
	Assignee           Text
	Labels             []string
	Dependencies       []string
	Parent             Text
	Description        Text
	AcceptanceCriteria Text
	Design             Text
	Notes              Text
	CreatedAt          string
	UpdatedAt          string
	ClosedAt           string
}

// PriorityOrDefault returns the issue priority, or DefaultPriority when unset.
func (i Issue) PriorityOrDefault() int {
	if i.Priority == nil {
		return DefaultPriority
	}
	return *i.Priority
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// dependencyJSON covers both dependency shapes bd emits: the show form
// ({"id", "dependency_type"}) and the export form ({"depends_on_id", "type"}).
type dependencyJSON struct {
	ID             string `json:"id,omitempty"`
	DependencyType string `json:"dependency_type,omitempty"`
	DependsOnID    string `json:"depends_on_id,omitempty"`
	Type           string `json:"type,omitempty"`
}

func (d dependencyJSON) target() string {
	if d.DependsOnID != "" {
		return d.DependsOnID
	}
	return d.ID
}

func (d dependencyJSON) kind() string {
	if d.DependencyType != "" {
		return d.DependencyType
	}
	return d.Type
}

// issueJSON is the bd wire format for Issue.
type issueJSON struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	IssueType          string           `json:"issue_type,omitempty"`
	Status             string           `json:"status,omitempty"`
	Priority           *int             `json:"priority,omitempty"`
	Assignee           *string          `json:"assignee,omitempty"`
	Labels             []string         `json:"labels,omitempty"`
	Dependencies       []dependencyJSON `json:"dependencies,omitempty"`
	Parent             *string          `json:"parent,omitempty"`
	Description        *string          `json:"description,omitempty"`
	AcceptanceCriteria *string          `json:"acceptance_criteria,omitempty"`
	Design             *string          `json:"design,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
	CreatedAt          string           `json:"created_at,omitempty"`
	UpdatedAt          string           `json:"updated_at,omitempty"`
	ClosedAt           string           `json:"closed_at,omitempty"`
}

// MarshalJSON implements custom JSON serialization for Issue.
func (i Issue) MarshalJSON() ([]byte, error) {
	j := issueJSON{
		ID:                 i.ID,
		Title:              i.Title,
		IssueType:          string(i.Type),
		Status:             string(i.Status),
		Priority:           i.Priority,
		Assignee:           i.Assignee.Ptr(),
		Labels:             i.Labels,
		Parent:             i.Parent.Ptr(),
		Description:        i.Description.Ptr(),
		AcceptanceCriteria: i.AcceptanceCriteria.Ptr(),
		Design:             i.Design.Ptr(),
		Notes:              i.Notes.Ptr(),
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
		ClosedAt:           i.ClosedAt,
	}
	for _, dep := range i.Dependencies {
		j.Dependencies = append(j.Dependencies, dependencyJSON{DependsOnID: dep, Type: DepBlocks})
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements custom JSON deserialization for Issue.
// A parent-child dependency edge populates Parent unless a top-level parent
// field is present. Blocking edges (or edges with no type) populate
// Dependencies; other relation kinds are not editable and are dropped.
func (i *Issue) UnmarshalJSON(data []byte) error {
	var j issueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	*i = Issue{
		ID:                 j.ID,
		Title:              j.Title,
		Type:               IssueType(j.IssueType),
		Status:             Status(j.Status),
		Priority:           j.Priority,
		Assignee:           TextFromPtr(j.Assignee),
		Labels:             []string{},
		Dependencies:       []string{},
		Parent:             TextFromPtr(j.Parent),
		Description:        TextFromPtr(j.Description),
		AcceptanceCriteria: TextFromPtr(j.AcceptanceCriteria),
		Design:             TextFromPtr(j.Design),
		Notes:              TextFromPtr(j.Notes),
		CreatedAt:          j.CreatedAt,
		UpdatedAt:          j.UpdatedAt,
		ClosedAt:           j.ClosedAt,
	}
	i.Labels = append(i.Labels, j.Labels...)

	for _, dep := range j.Dependencies {
		target := dep.target()
		if target == "" {
			continue
		}
		if dep.kind() == DepParentChild {
			if !i.Parent.Present() {
				i.Parent = NewText(target)
			}
			continue
		}
		if kind := dep.kind(); kind != "" && kind != DepBlocks {
			continue
		}
		i.Dependencies = append(i.Dependencies, target)
	}

	return nil
}

// Dependency edge types understood by bd.
const (
	DepBlocks      = "blocks"
	DepParentChild = "parent-child"
)

// ParseTimestamp parses a tracker timestamp. The second return value is
// false when s is empty or not RFC 3339.
func ParseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
