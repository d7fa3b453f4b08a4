package cli

import (
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/session"
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an issue in your editor and apply the changes",
	Long: `Open an issue as a Markdown document in your editor. When the editor exits,
the document is compared with the live issue and the resulting bd commands
are run in order. If a save does not go through, the edited document is kept
as a draft and the next edit resumes from it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		discard, _ := cmd.Flags().GetBool("discard-draft")

		res, err := newSession(cmd).Edit(cmd.Context(), args[0], session.Options{ResumeDraft: !discard})
		return finishSave(cmd, res, err)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <id> <file>",
	Short: "Apply an edited document to an issue without opening an editor",
	Long: `Parse a document written by "bdedit show --raw" (or edited elsewhere),
compare it with the live issue and run the resulting bd commands. Use "-" to
read the document from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readDocument(args[1])
		if err != nil {
			return err
		}

		res, err := newSession(cmd).ApplyText(cmd.Context(), args[0], text)
		return finishSave(cmd, res, err)
	},
}

func init() {
	editCmd.Flags().Bool("discard-draft", false, "Start from the live issue even if a draft exists")
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(applyCmd)
}
