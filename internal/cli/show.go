package cli

import (
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/document"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
)

var showCmd = &cobra.Command{
	Use:         "show <id>",
	Short:       "Show an issue",
	Long:        "Show a read-only preview of an issue. With --raw, print the editable document instead.",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		issue, err := getClient(cmd).Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			writeRawDocument(w, issue)
			return nil
		}

		var related map[string]model.Issue
		if !w.JSONMode {
			related = getClient(cmd).ShowMany(cmd.Context(), relatedIDs(issue))
		}
		w.Success(issue, render.RenderDetail(issue, related))
		return nil
	},
}

// relatedIDs lists the parent and blockers whose titles the detail view shows.
func relatedIDs(issue model.Issue) []string {
	ids := append([]string{}, issue.Dependencies...)
	if p := issue.Parent.Value(); p != "" {
		ids = append(ids, p)
	}
	return ids
}

// writeRawDocument prints the editable document so it can be passed back to
// apply unchanged.
func writeRawDocument(w *output.Writer, issue model.Issue) {
	w.Raw(issue, document.FormatText(issue))
}

func init() {
	showCmd.Flags().Bool("raw", false, "Print the editable Markdown document")
	rootCmd.AddCommand(showCmd)
}
