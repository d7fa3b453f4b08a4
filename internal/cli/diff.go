package cli

import (
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/command"
	"github.com/fancypantalons/bdedit/internal/document"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/render"
	"github.com/fancypantalons/bdedit/internal/session"
)

// diffResult is the JSON wire format for the diff command.
type diffResult struct {
	IssueID  string          `json:"issue_id"`
	Changes  model.ChangeSet `json:"changes"`
	Commands []string        `json:"commands"`
	Warnings []string        `json:"warnings"`
}

var diffCmd = &cobra.Command{
	Use:   "diff <id> <file>",
	Short: "Preview the commands an edited document would run",
	Long: `Compare a document with the live issue and print the bd commands that
"bdedit apply" would run, followed by a line diff of the document. Nothing
is executed. Use "-" to read the document from stdin.`,
	Args:        cobra.ExactArgs(2),
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		client := getClient(cmd)

		text, err := readDocument(args[1])
		if err != nil {
			return err
		}

		original, err := client.Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		plan, err := session.PlanText(original, text)
		if err != nil {
			return err
		}

		commands := command.Strings(plan.Commands, client.Program())
		warnings := plan.Warnings
		if warnings == nil {
			warnings = []string{}
		}

		contextLines, _ := cmd.Flags().GetInt("context")
		human := render.RenderPlan(original.ID, commands, plan.Warnings)
		if len(plan.Commands) > 0 {
			human += "\n" + render.RenderTextDiff(document.FormatText(original), text, max(contextLines, 0))
		}

		w.Success(diffResult{
			IssueID:  original.ID,
			Changes:  plan.Changes,
			Commands: commands,
			Warnings: warnings,
		}, human)
		return nil
	},
}

func init() {
	diffCmd.Flags().IntP("context", "C", 3, "Lines of unchanged text around each change")
	rootCmd.AddCommand(diffCmd)
}
