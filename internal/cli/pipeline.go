package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/beads"
	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/editor"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
	"github.com/fancypantalons/bdedit/internal/session"
)

const maxDocumentSize = 1 << 20 // 1 MiB

func newSession(cmd *cobra.Command) *session.Session {
	cfg := getCfg(cmd)
	return &session.Session{
		Tracker: getClient(cmd),
		Editor:  editor.NewTerminal(cfg.Editor),
		DB:      getDB(cmd),
		Confirm: confirmFunc(cmd),
		Logger:  getLogger(cmd),
	}
}

// confirmFunc returns the prompt shown before commands run, or nil when
// confirmation is turned off by --yes or the confirm setting.
func confirmFunc(cmd *cobra.Command) session.ConfirmFunc {
	yes, _ := cmd.Flags().GetBool("yes")
	if yes || !getCfg(cmd).Confirm {
		return nil
	}

	w := getWriter(cmd)
	program := getClient(cmd).Program()

	return func(ctx context.Context, issueID string, cmds []command.Command) (bool, error) {
		if w.JSONMode {
			return false, cmdErr(
				fmt.Errorf("refusing to run %d command(s) without --yes in JSON mode", len(cmds)),
				output.ErrValidation,
			)
		}

		fmt.Fprint(w.Stderr, render.RenderPlan(issueID, command.Strings(cmds, program), nil))

		var ok bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Run these commands against %s?", issueID)).
					Affirmative("Apply").
					Negative("Cancel").
					Value(&ok),
			),
		)

		if err := form.RunWithContext(ctx); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return false, nil
			}
			return false, fmt.Errorf("interactive form failed: %w", err)
		}
		return ok, nil
	}
}

// readDocument reads a document from path, or from stdin when path is "-".
func readDocument(path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", cmdErr(fmt.Errorf("opening %s: %w", path, err), output.ErrNotFound)
		}
		defer f.Close()
		r = f
	}

	lr := &io.LimitedReader{R: r, N: maxDocumentSize + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(data)) > maxDocumentSize {
		return "", cmdErr(fmt.Errorf("document %s exceeds %d bytes", path, maxDocumentSize), output.ErrValidation)
	}
	return string(data), nil
}

// saveResult is the JSON wire format for edit, create and apply.
type saveResult struct {
	IssueID    string       `json:"issue_id"`
	Commands   []string     `json:"commands"`
	Applied    int          `json:"applied"`
	Warnings   []string     `json:"warnings"`
	NoChanges  bool         `json:"no_changes"`
	Canceled   bool         `json:"canceled"`
	DraftSaved bool         `json:"draft_saved"`
	Issue      *model.Issue `json:"issue,omitempty"`
}

// finishSave reports the outcome of a save pipeline and passes err through
// for the root command to classify.
func finishSave(cmd *cobra.Command, res *session.Result, err error) error {
	w := getWriter(cmd)
	program := getClient(cmd).Program()

	if res == nil {
		return err
	}

	if !w.JSONMode {
		for _, warning := range res.Warnings {
			w.Warn("%s", warning)
		}
	}

	if err != nil {
		var aerr *beads.ApplyError
		if errors.As(err, &aerr) && aerr.Applied() > 0 {
			w.Info("%d of %d command(s) were applied before the failure", aerr.Applied(), aerr.Total)
		}
		if res.DraftSaved {
			w.Info("Your edits were saved as a draft; resume with: %s", resumeHint(res.IssueID))
		}
		return err
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	result := saveResult{
		IssueID:    res.IssueID,
		Commands:   command.Strings(res.Commands, program),
		Applied:    res.Applied,
		Warnings:   warnings,
		NoChanges:  res.NoChanges,
		Canceled:   res.Canceled,
		DraftSaved: res.DraftSaved,
		Issue:      res.Created,
	}

	var msg string
	switch {
	case res.NoChanges:
		msg = fmt.Sprintf("No changes to %s", res.IssueID)
	case res.Canceled:
		msg = "Canceled; nothing was applied"
		if res.DraftSaved {
			msg += fmt.Sprintf(" (draft saved, resume with: %s)", resumeHint(res.IssueID))
		}
	case res.Created != nil:
		msg = fmt.Sprintf("Created %s: %s", res.Created.ID, res.Created.Title)
	default:
		msg = fmt.Sprintf("Applied %d command(s) to %s", res.Applied, res.IssueID)
	}

	w.Success(result, msg)
	return nil
}

func resumeHint(issueID string) string {
	if model.IsNewID(issueID) {
		return "bdedit create"
	}
	return "bdedit edit " + issueID
}
