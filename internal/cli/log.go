package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fancypantalons/bdedit/internal/db"
	"github.com/fancypantalons/bdedit/internal/model"
	"github.com/fancypantalons/bdedit/internal/output"
	"github.com/fancypantalons/bdedit/internal/render"
)

// logResult is the JSON wire format for the log command output.
type logResult struct {
	IssueID string               `json:"issue_id,omitempty"`
	Entries []model.JournalEntry `json:"entries"`
	Total   int                  `json:"total"`
}

var logCmd = &cobra.Command{
	Use:   "log [id]",
	Short: "Show the bd commands bdedit has run",
	Long: `Show the journal of bd commands run by edit, create and apply, newest save
first. Without an id, every issue is shown. --prune-days deletes saves older
than the given number of days before listing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		if cmd.Flags().Changed("prune-days") {
			days, _ := cmd.Flags().GetInt("prune-days")
			if days < 0 {
				return cmdErr(fmt.Errorf("--prune-days must not be negative"), output.ErrValidation)
			}
			cutoff := time.Now().AddDate(0, 0, -days)
			n, err := db.PruneJournal(conn, cutoff)
			if err != nil {
				return cmdErr(fmt.Errorf("pruning journal: %w", err), output.ErrGeneral)
			}
			w.Info("Pruned %d save(s) older than %d day(s)", n, days)
		}

		var issueID string
		if len(args) == 1 {
			issueID = args[0]
		}

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := db.GetJournal(conn, issueID, max(limit, 0))
		if err != nil {
			return cmdErr(fmt.Errorf("fetching journal: %w", err), output.ErrGeneral)
		}

		w.Success(logResult{
			IssueID: issueID,
			Entries: entries,
			Total:   len(entries),
		}, render.RenderJournal(entries))
		return nil
	},
}

func init() {
	logCmd.Flags().IntP("limit", "n", 50, "Maximum number of commands to show (0 for all)")
	logCmd.Flags().Int("prune-days", 0, "Delete saves older than this many days first")
	rootCmd.AddCommand(logCmd)
}
