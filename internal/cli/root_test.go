package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/beads"
	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/document"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/session"
)

func TestClassifyError(t *testing.T) {
	closeCmd, err := command.GenerateUpdate("bd-1", model.ChangeSet{Status: statusPtr(model.StatusClosed)})
	if err != nil {
		t.Fatalf("GenerateUpdate: %v", err)
	}

	tests := []struct {
		name string
		err  error
		want output.ErrorCode
	}{
		{"cmd error keeps its code", cmdErr(errors.New("x"), output.ErrConflict), output.ErrConflict},
		{"document validation", &document.ValidationError{Field: "priority", Msg: "bad"}, output.ErrValidation},
		{"wrapped transcription", fmt.Errorf("parse: %w", &document.TranscriptionError{Msg: "unterminated"}), output.ErrValidation},
		{"create validation", &command.ValidationError{Field: "title", Msg: "Title is required"}, output.ErrValidation},
		{"unknown parent", command.ErrPreviousParentUnknown, output.ErrValidation},
		{"bd failure", &beads.SubprocessError{Args: []string{"show"}, ExitCode: 1}, output.ErrSubprocess},
		{"bad json", fmt.Errorf("show: %w", beads.ErrJSONOutput), output.ErrSubprocess},
		{"apply failure", &beads.ApplyError{Index: 0, Total: 1, Command: closeCmd[0], Err: errors.New("boom")}, output.ErrSubprocess},
		{"issue not found", fmt.Errorf("show: %w", beads.ErrNotFound), output.ErrNotFound},
		{"draft not found", db.ErrNotFound, output.ErrNotFound},
		{"anything else", errors.New("disk on fire"), output.ErrGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := classifyError(tt.err)
			if got != tt.want {
				t.Errorf("classifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyErrorApplyDetails(t *testing.T) {
	cmds, err := command.GenerateUpdate("bd-1", model.ChangeSet{
		Labels: model.SetChange{Add: []string{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("GenerateUpdate: %v", err)
	}

	aerr := &beads.ApplyError{
		Index:   1,
		Total:   2,
		Command: cmds[1],
		Err:     &beads.SubprocessError{Args: cmds[1].Args, ExitCode: 3, Stderr: "label exists"},
	}

	_, details := classifyError(aerr)
	d, ok := details.(applyFailure)
	if !ok {
		t.Fatalf("details = %T, want applyFailure", details)
	}
	if d.Applied != 1 || d.FailedIndex != 1 || d.Total != 2 {
		t.Errorf("details = %+v", d)
	}
	if d.ExitCode == nil || *d.ExitCode != 3 || d.Stderr != "label exists" {
		t.Errorf("subprocess details not carried: %+v", d)
	}
	if !strings.Contains(d.FailedCommand, "label add bd-1") {
		t.Errorf("FailedCommand = %q", d.FailedCommand)
	}
}

func TestResumeHint(t *testing.T) {
	if got := resumeHint(model.NewIssueID); got != "bdedit create" {
		t.Errorf("resumeHint(new) = %q", got)
	}
	if got := resumeHint("bd-4"); got != "bdedit edit bd-4" {
		t.Errorf("resumeHint(bd-4) = %q", got)
	}
}

func newCreateFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "create"}
	addCreateFlags(cmd)
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}
	return cmd
}

func TestTemplateFromFlags(t *testing.T) {
	cmd := newCreateFlags(t, "--title", "Fix: crash on start", "--type", "bug", "--priority", "0", "--parent", "bd-1", "--label", "a,b")

	template, err := templateFromFlags(cmd)
	if err != nil {
		t.Fatalf("templateFromFlags: %v", err)
	}
	if template.Title != "Fix: crash on start" || template.Type != model.TypeBug {
		t.Errorf("template = %+v", template)
	}
	if template.PriorityOrDefault() != 0 {
		t.Errorf("priority = %d, want 0", template.PriorityOrDefault())
	}
	if template.Parent.Value() != "bd-1" {
		t.Errorf("parent = %q", template.Parent.Value())
	}
	if strings.Join(template.Labels, ",") != "a,b" {
		t.Errorf("labels = %v", template.Labels)
	}
	if template.ID != model.NewIssueID {
		t.Errorf("id = %q, want %q", template.ID, model.NewIssueID)
	}
}

func TestTemplateFromFlagsRejectsBadValues(t *testing.T) {
	tests := [][]string{
		{"--type", "story"},
		{"--priority", "7"},
		{"--parent", ""},
	}
	for _, args := range tests {
		cmd := newCreateFlags(t, args...)
		_, err := templateFromFlags(cmd)
		var ce *CmdError
		if !errors.As(err, &ce) || ce.Code != output.ErrValidation {
			t.Errorf("templateFromFlags(%v) error = %v, want validation error", args, err)
		}
	}
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("---\ntitle: x\n---\n"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	got, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument: %v", err)
	}
	if got != "---\ntitle: x\n---\n" {
		t.Errorf("readDocument = %q", got)
	}

	_, err = readDocument(filepath.Join(t.TempDir(), "missing.md"))
	if code, _ := classifyError(err); code != output.ErrNotFound {
		t.Errorf("missing file classified as %q, want NOT_FOUND", code)
	}
}

func TestReadDocumentRejectsOversizeInput(t *testing.T) {
	issue := model.Issue{
		ID:          "bd-1",
		Title:       "Big",
		Type:        model.TypeTask,
		Status:      model.StatusOpen,
		Description: model.NewText(strings.Repeat("x", maxDocumentSize)),
		Notes:       model.NewText("keep me"),
	}
	path := filepath.Join(t.TempDir(), "big.md")
	if err := os.WriteFile(path, []byte(document.FormatText(issue)), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	got, err := readDocument(path)
	if err == nil {
		t.Fatalf("readDocument returned %d bytes without error", len(got))
	}
	if code, _ := classifyError(err); code != output.ErrValidation {
		t.Errorf("oversize document classified as %q, want VALIDATION", code)
	}
}

func TestReadDocumentAcceptsMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact.md")
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), maxDocumentSize), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	got, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument: %v", err)
	}
	if len(got) != maxDocumentSize {
		t.Errorf("len = %d, want %d", len(got), maxDocumentSize)
	}
}

func TestRawDocumentRoundTripsWithoutChanges(t *testing.T) {
	issue := model.Issue{
		ID:          "bd-1",
		Title:       "Fix it",
		Type:        model.TypeBug,
		Status:      model.StatusOpen,
		Priority:    model.IntPtr(2),
		Labels:      []string{"ui"},
		Description: model.NewText("Fix it"),
		Notes:       model.NewText("line one\nline two"),
	}

	var stdout bytes.Buffer
	writeRawDocument(&output.Writer{Stdout: &stdout}, issue)

	plan, err := session.PlanText(issue, stdout.String())
	if err != nil {
		t.Fatalf("PlanText: %v", err)
	}
	if len(plan.Commands) != 0 {
		t.Errorf("commands for unchanged document = %q, want none", command.Strings(plan.Commands, "bd"))
	}
}

func TestRelatedIDs(t *testing.T) {
	issue := model.Issue{ID: "bd-7", Dependencies: []string{"bd-3"}, Parent: model.NewText("bd-1")}
	if got := relatedIDs(issue); strings.Join(got, ",") != "bd-3,bd-1" {
		t.Errorf("relatedIDs = %q", got)
	}
	if got := relatedIDs(model.Issue{ID: "bd-1", Parent: model.NewText("")}); len(got) != 0 {
		t.Errorf("relatedIDs for bare issue = %q, want none", got)
	}
}

func TestFormatConfigHumanPlain(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	t.Setenv("BDEDIT_PATH", "")

	info := configInfo{
		ConfigPath:    "/x/config.toml",
		DBPath:        "/x/bdedit.db",
		DBSizeBytes:   2048,
		SchemaVersion: 2,
		BDCommand:     "bd",
		Editor:        "vi",
		Timeout:       "30s",
		Confirm:       true,
	}

	got := formatConfigHuman(info, true)
	for _, want := range []string{
		"Config file:    /x/config.toml (not found)",
		"Database size:  2.0 KiB",
		"Schema version: 2",
		"Work dir:       (not set)",
		"BDEDIT_PATH:    (not set)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}

	got = formatConfigHuman(info, false)
	if strings.Contains(got, "Schema version") || !strings.Contains(got, "(created on first edit)") {
		t.Errorf("unexpected output without database:\n%s", got)
	}
}

func statusPtr(s model.Status) *model.Status { return &s }
