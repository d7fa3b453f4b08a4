package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
)

type draftsResult struct {
	Drafts []model.Draft `json:"drafts"`
	Total  int           `json:"total"`
}

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Manage documents saved from failed or canceled edits",
}

var draftsListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List saved drafts",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		drafts, err := db.ListDrafts(getDB(cmd))
		if err != nil {
			return cmdErr(fmt.Errorf("listing drafts: %w", err), output.ErrGeneral)
		}

		w.Success(draftsResult{Drafts: drafts, Total: len(drafts)}, render.RenderDrafts(drafts))
		return nil
	},
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved draft",
	Long:  `Print a saved draft. Use "(new)" for the draft of an issue that was never created.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		draft, err := db.GetDraft(getDB(cmd), args[0])
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("no draft saved for %s", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("fetching draft: %w", err), output.ErrGeneral)
		}

		if draft.Error != "" {
			w.Info("Saved after: %s", draft.Error)
		}
		w.Success(draft, draft.Document)
		return nil
	},
}

var draftsDiscardCmd = &cobra.Command{
	Use:     "discard <id>",
	Short:   "Delete a saved draft",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		if err := db.DeleteDraft(getDB(cmd), args[0]); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return cmdErr(fmt.Errorf("no draft saved for %s", args[0]), output.ErrNotFound)
			}
			return cmdErr(fmt.Errorf("discarding draft: %w", err), output.ErrGeneral)
		}

		w.Success(struct {
			IssueID string `json:"issue_id"`
		}{args[0]}, fmt.Sprintf("Discarded draft for %s", args[0]))
		return nil
	},
}

func init() {
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsShowCmd)
	draftsCmd.AddCommand(draftsDiscardCmd)
	rootCmd.AddCommand(draftsCmd)
}
