package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/session"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Write a new issue in your editor and create it",
	Long: `Open a new-issue template in your editor and create the issue when the
editor exits. Flags preset fields of the template. With --file the document
is read from a file (or stdin with "-") and no editor is opened.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := newSession(cmd)

		if path, _ := cmd.Flags().GetString("file"); path != "" {
			text, err := readDocument(path)
			if err != nil {
				return err
			}
			res, err := s.CreateText(cmd.Context(), text)
			return finishSave(cmd, res, err)
		}

		template, err := templateFromFlags(cmd)
		if err != nil {
			return err
		}

		discard, _ := cmd.Flags().GetBool("discard-draft")
		res, err := s.Create(cmd.Context(), template, session.Options{ResumeDraft: !discard})
		return finishSave(cmd, res, err)
	},
}

func templateFromFlags(cmd *cobra.Command) (model.Issue, error) {
	template := session.NewIssueTemplate()

	if cmd.Flags().Changed("title") {
		template.Title, _ = cmd.Flags().GetString("title")
	}

	if cmd.Flags().Changed("type") {
		typ, _ := cmd.Flags().GetString("type")
		if err := model.ValidateIssueType(model.IssueType(typ)); err != nil {
			return model.Issue{}, cmdErr(err, output.ErrValidation)
		}
		template.Type = model.IssueType(typ)
	}

	if cmd.Flags().Changed("priority") {
		p, _ := cmd.Flags().GetInt("priority")
		if err := model.ValidatePriority(p); err != nil {
			return model.Issue{}, cmdErr(err, output.ErrValidation)
		}
		template.Priority = model.IntPtr(p)
	}

	if cmd.Flags().Changed("parent") {
		parent, _ := cmd.Flags().GetString("parent")
		if parent == "" {
			return model.Issue{}, cmdErr(fmt.Errorf("parent id must not be empty"), output.ErrValidation)
		}
		template.Parent = model.NewText(parent)
	}

	if cmd.Flags().Changed("label") {
		template.Labels, _ = cmd.Flags().GetStringSlice("label")
	}

	return template, nil
}

func addCreateFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("title", "t", "", "Preset the title")
	cmd.Flags().StringP("type", "T", "", "Preset the issue type")
	cmd.Flags().IntP("priority", "p", model.DefaultPriority, "Preset the priority (0-4)")
	cmd.Flags().String("parent", "", "Preset the parent issue ID")
	cmd.Flags().StringSliceP("label", "l", nil, "Preset labels (repeatable)")
	cmd.Flags().StringP("file", "f", "", "Create from a document file instead of opening an editor (\"-\" for stdin)")
	cmd.Flags().Bool("discard-draft", false, "Start from a fresh template even if a draft exists")
}

func init() {
	addCreateFlags(createCmd)
	rootCmd.AddCommand(createCmd)
}
