// Package session runs the edit and create pipelines: render an issue,
// let the user edit it, and apply the resulting bd commands.
//
// Nothing is sent to bd until a document parses and yields a valid plan.
// Whenever a save does not go through, the edited document is kept as a
// draft so the user can resume.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fancypantalons/bdedit/internal/beads"
	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/differ"
	"github.com/fancypantalons/bdedit/internal/document"
	"github.com/fancypantalons/bdedit/internal/editor"
	"github.com/fancypantalons/bdedit/internal/logging"
	"github.com/fancypantalons/bdedit/internal/model"
)

// Tracker is the part of the bd client a session needs.
type Tracker interface {
	Show(ctx context.Context, id string) (model.Issue, error)
	Create(ctx context.Context, cmd command.Command) (model.Issue, error)
	Apply(ctx context.Context, cmds []command.Command, observe beads.Observer) error
	Program() string
}

// ConfirmFunc is asked before commands run. Returning false cancels the save.
type ConfirmFunc func(ctx context.Context, issueID string, cmds []command.Command) (bool, error)

// Session holds the collaborators of the save pipeline. DB, Confirm and
// Logger are optional.
type Session struct {
	Tracker Tracker
	Editor  editor.Launcher
	DB      *sql.DB
	Confirm ConfirmFunc
	Logger  *log.Logger
}

// Result describes what a pipeline run did.
type Result struct {
	IssueID    string
	Commands   []command.Command
	Applied    int
	Warnings   []string
	NoChanges  bool
	Canceled   bool
	DraftSaved bool
	Created    *model.Issue
}

// Plan is the outcome of comparing an edited document with the live issue.
type Plan struct {
	Original model.Issue
	Edited   model.Issue
	Changes  model.ChangeSet
	Commands []command.Command
	Warnings []string
}

// Options controls draft handling for Edit and Create.
type Options struct {
	// ResumeDraft starts from a saved draft when one exists.
	ResumeDraft bool
}

func (s *Session) logger() *log.Logger {
	if s.Logger == nil {
		return logging.Discard()
	}
	return s.Logger
}

// PlanText parses text and computes the commands that would bring original
// in line with it.
func PlanText(original model.Issue, text string) (*Plan, error) {
	edited, err := document.ParseText(text)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Original: original, Edited: edited}
	for _, field := range differ.ImmutableChanges(original, edited) {
		plan.Warnings = append(plan.Warnings, immutableWarning(field, original, edited))
	}

	plan.Changes = differ.Diff(original, edited)
	cmds, err := command.GenerateUpdate(original.ID, plan.Changes)
	if err != nil {
		return nil, err
	}
	plan.Commands = cmds
	return plan, nil
}

func immutableWarning(field string, original, edited model.Issue) string {
	switch field {
	case "type":
		return fmt.Sprintf("issue type cannot be changed after creation; keeping %q (document had %q)", original.Type, edited.Type)
	case "id":
		return fmt.Sprintf("issue id cannot be changed; editing %s (document had %q)", original.ID, edited.ID)
	default:
		return fmt.Sprintf("%s cannot be changed; ignoring", field)
	}
}

// Plan fetches the live issue and plans text against it.
func (s *Session) Plan(ctx context.Context, id, text string) (*Plan, error) {
	original, err := s.Tracker.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	return PlanText(original, text)
}

// Edit opens issue id in the editor and applies the changes the user saves.
func (s *Session) Edit(ctx context.Context, id string, opts Options) (*Result, error) {
	original, err := s.Tracker.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	id = original.ID

	text := document.FormatText(original)
	if opts.ResumeDraft {
		if draft := s.loadDraft(id); draft != nil {
			text = draft.Document
		}
	}

	edited, err := editor.EditText(ctx, s.Editor, tempPattern(id), text)
	if err != nil {
		return nil, err
	}

	return s.save(ctx, original, edited)
}

// ApplyText applies an already edited document to issue id without opening
// an editor.
func (s *Session) ApplyText(ctx context.Context, id, text string) (*Result, error) {
	original, err := s.Tracker.Show(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, original, text)
}

func (s *Session) save(ctx context.Context, original model.Issue, text string) (*Result, error) {
	res := &Result{IssueID: original.ID}

	plan, err := PlanText(original, text)
	if err != nil {
		res.DraftSaved = s.keepDraft(original.ID, text, err)
		return res, err
	}
	res.Warnings = plan.Warnings
	res.Commands = plan.Commands
	for _, w := range plan.Warnings {
		s.logger().Warn(w, "issue", original.ID)
	}

	if len(plan.Commands) == 0 {
		res.NoChanges = true
		s.dropDraft(original.ID)
		return res, nil
	}

	ok, err := s.confirm(ctx, original.ID, plan.Commands)
	if err != nil {
		res.DraftSaved = s.keepDraft(original.ID, text, err)
		return res, err
	}
	if !ok {
		res.Canceled = true
		res.DraftSaved = s.keepDraft(original.ID, text, errors.New("canceled"))
		return res, nil
	}

	applied, err := s.apply(ctx, original.ID, plan.Commands)
	res.Applied = applied
	if err != nil {
		res.DraftSaved = s.keepDraft(original.ID, text, err)
		return res, err
	}

	s.dropDraft(original.ID)
	return res, nil
}

// NewIssueTemplate returns the record a new issue document starts from.
func NewIssueTemplate() model.Issue {
	return model.Issue{
		ID:                 model.NewIssueID,
		Type:               model.TypeTask,
		Status:             model.StatusOpen,
		Priority:           model.IntPtr(model.DefaultPriority),
		Labels:             []string{},
		Dependencies:       []string{},
		Description:        model.NewText(""),
		AcceptanceCriteria: model.NewText(""),
		Design:             model.NewText(""),
	}
}

// Create opens a new-issue template in the editor and creates the issue.
// template may preset fields such as the title or parent.
func (s *Session) Create(ctx context.Context, template model.Issue, opts Options) (*Result, error) {
	text := document.FormatText(template)
	if opts.ResumeDraft {
		if draft := s.loadDraft(model.NewIssueID); draft != nil {
			text = draft.Document
		}
	}

	edited, err := editor.EditText(ctx, s.Editor, tempPattern(model.NewIssueID), text)
	if err != nil {
		return nil, err
	}
	if edited == document.FormatText(template) {
		return &Result{IssueID: model.NewIssueID, NoChanges: true}, nil
	}
	return s.CreateText(ctx, edited)
}

// CreateText creates an issue from a document. Fields create does not take
// (assignee, notes, a non-open status) are applied with a follow-up update.
func (s *Session) CreateText(ctx context.Context, text string) (*Result, error) {
	res := &Result{IssueID: model.NewIssueID}

	record, err := document.ParseText(text)
	if err != nil {
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, err)
		return res, err
	}
	if !model.IsNewID(record.ID) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("ignoring id %q: a new issue gets its id from bd", record.ID))
	}
	if record.Type != "" {
		if err := model.ValidateIssueType(record.Type); err != nil {
			verr := &document.ValidationError{Field: "type", Msg: err.Error()}
			res.DraftSaved = s.keepDraft(model.NewIssueID, text, verr)
			return res, verr
		}
	}

	create, err := command.BuildCreate(record)
	if err != nil {
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, err)
		return res, err
	}
	followUp, err := command.GenerateUpdate(model.NewIssueID, followUpChanges(record))
	if err != nil {
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, err)
		return res, err
	}
	res.Commands = append([]command.Command{create}, followUp...)

	ok, err := s.confirm(ctx, model.NewIssueID, res.Commands)
	if err != nil {
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, err)
		return res, err
	}
	if !ok {
		res.Canceled = true
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, errors.New("canceled"))
		return res, nil
	}

	created, err := s.Tracker.Create(ctx, create)
	s.journal(model.NewIssueID, []command.Command{create}, err)
	if err != nil {
		res.DraftSaved = s.keepDraft(model.NewIssueID, text, err)
		return res, err
	}
	s.dropDraft(model.NewIssueID)
	res.IssueID = created.ID
	res.Created = &created
	res.Applied = 1

	followUp, err = command.GenerateUpdate(created.ID, followUpChanges(record))
	if err != nil {
		return res, err
	}
	res.Commands = append([]command.Command{create}, followUp...)
	applied, err := s.apply(ctx, created.ID, followUp)
	res.Applied += applied
	if err != nil {
		// The issue exists now; keep the document against its real id so
		// the remaining fields can be applied with edit.
		record.ID = created.ID
		res.DraftSaved = s.keepDraft(created.ID, document.FormatText(record), err)
		return res, err
	}
	return res, nil
}

func followUpChanges(record model.Issue) model.ChangeSet {
	var cs model.ChangeSet
	if v := record.Assignee.Value(); v != "" {
		cs.Metadata.Assignee = model.StringPtr(v)
	}
	if v := record.Notes.Value(); v != "" {
		cs.Sections.Notes = model.StringPtr(v)
	}
	if record.Status != "" && record.Status != model.StatusOpen {
		status := record.Status
		cs.Status = &status
	}
	return cs
}

func (s *Session) confirm(ctx context.Context, id string, cmds []command.Command) (bool, error) {
	if s.Confirm == nil {
		return true, nil
	}
	return s.Confirm(ctx, id, cmds)
}

// apply runs cmds and journals each outcome. It returns how many succeeded.
func (s *Session) apply(ctx context.Context, id string, cmds []command.Command) (int, error) {
	if len(cmds) == 0 {
		return 0, nil
	}

	runID := s.startRun(id, len(cmds))
	err := s.Tracker.Apply(ctx, cmds, func(i int, cmd command.Command, cmdErr error) {
		if runID == 0 {
			return
		}
		if err := db.RecordCommand(s.DB, runID, id, i+1, cmd.ShellString(s.Tracker.Program()), cmdErr); err != nil {
			s.logger().Warn("could not journal command", "issue", id, "err", err)
		}
	})
	if err != nil {
		var aerr *beads.ApplyError
		if errors.As(err, &aerr) {
			return aerr.Applied(), err
		}
		return 0, err
	}
	return len(cmds), nil
}

// journal records commands run outside Apply, such as create.
func (s *Session) journal(id string, cmds []command.Command, cmdErr error) {
	runID := s.startRun(id, len(cmds))
	if runID == 0 {
		return
	}
	for i, cmd := range cmds {
		if err := db.RecordCommand(s.DB, runID, id, i+1, cmd.ShellString(s.Tracker.Program()), cmdErr); err != nil {
			s.logger().Warn("could not journal command", "issue", id, "err", err)
		}
	}
}

func (s *Session) startRun(id string, total int) int {
	if s.DB == nil {
		return 0
	}
	runID, err := db.StartRun(s.DB, id, total)
	if err != nil {
		s.logger().Warn("could not start journal run", "issue", id, "err", err)
		return 0
	}
	return runID
}

func (s *Session) loadDraft(id string) *model.Draft {
	if s.DB == nil {
		return nil
	}
	draft, err := db.GetDraft(s.DB, id)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger().Warn("could not load draft", "issue", id, "err", err)
		}
		return nil
	}
	s.logger().Info("resuming draft", "issue", id, "saved_at", draft.SavedAt)
	return draft
}

// keepDraft saves text as the draft for id and reports whether it was saved.
func (s *Session) keepDraft(id, text string, cause error) bool {
	if s.DB == nil {
		return false
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := db.SaveDraft(s.DB, id, text, msg); err != nil {
		s.logger().Error("could not save draft", "issue", id, "err", err)
		return false
	}
	s.logger().Info("draft saved", "issue", id)
	return true
}

func (s *Session) dropDraft(id string) {
	if s.DB == nil {
		return
	}
	if err := db.DeleteDraft(s.DB, id); err != nil && !errors.Is(err, db.ErrNotFound) {
		s.logger().Warn("could not delete draft", "issue", id, "err", err)
	}
}

// tempPattern names the temporary document after the issue so editors show
// something recognizable.
func tempPattern(id string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			return r
		default:
			return -1
		}
	}, id)
	if clean == "" {
		clean = "new"
	}
	return "bdedit-" + clean + "-*.md"
}
