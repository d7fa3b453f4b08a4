package cli

import (
	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/beads"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
)

type listResult struct {
	Issues []model.Issue `json:"issues"`
	Total  int           `json:"total"`
}

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List issues",
	Long:        `List issues through bd. --status also accepts "ready", "stale" and "all".`,
	Aliases:     []string{"ls"},
	Args:        cobra.NoArgs,
	Annotations: map[string]string{"skipDB": "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)

		status, _ := cmd.Flags().GetString("status")
		typ, _ := cmd.Flags().GetString("type")
		labels, _ := cmd.Flags().GetStringSlice("label")
		limit, _ := cmd.Flags().GetInt("limit")
		treeMode, _ := cmd.Flags().GetBool("tree")

		if status != "" {
			if err := model.ValidateStatusFilter(model.Status(status)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}
		if typ != "" {
			if err := model.ValidateIssueType(model.IssueType(typ)); err != nil {
				return cmdErr(err, output.ErrValidation)
			}
		}

		issues, err := getClient(cmd).List(cmd.Context(), beads.ListOptions{
			Status: model.Status(status),
			Type:   model.IssueType(typ),
			Labels: labels,
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		w.Success(listResult{Issues: issues, Total: len(issues)}, render.RenderTable(issues, treeMode))
		return nil
	},
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("type", "T", "", "Filter by issue type")
	listCmd.Flags().StringSliceP("label", "l", nil, "Filter by label (repeatable)")
	listCmd.Flags().IntP("limit", "n", 0, "Maximum number of issues (0 for bd's default)")
	listCmd.Flags().Bool("tree", false, "Show parent/child hierarchy")
	rootCmd.AddCommand(listCmd)
}
