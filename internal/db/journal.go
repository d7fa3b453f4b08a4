package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fancypantalons/bdedit/internal/model"
)

// StartRun records the start of an apply run of total commands and returns
// its id.
func StartRun(db *sql.DB, issueID string, total int) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := db.Exec(
		`INSERT INTO apply_runs (issue_id, total, created_at) VALUES (?, ?, ?)`,
		issueID, total, now,
	)
	if err != nil {
		return 0, fmt.Errorf("starting apply run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading apply run id: %w", err)
	}
	return int(id), nil
}

// RecordCommand logs the outcome of one command in a run. seq is 1-based.
func RecordCommand(ex execer, runID int, issueID string, seq int, command string, cmdErr error) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var errMsg string
	if cmdErr != nil {
		errMsg = cmdErr.Error()
	}
	_, err := ex.Exec(
		`INSERT INTO apply_log (run_id, issue_id, seq, command, ok, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, issueID, seq, command, cmdErr == nil, nullIfEmpty(errMsg), now,
	)
	if err != nil {
		return fmt.Errorf("recording command: %w", err)
	}
	return nil
}

// GetJournal returns logged commands for an issue, newest run first and in
// execution order within a run. An empty issueID returns every issue.
func GetJournal(db *sql.DB, issueID string, limit int) ([]model.JournalEntry, error) {
	query := `SELECT id, run_id, issue_id, seq, command, ok, error, created_at
	          FROM apply_log`
	var args []any
	if issueID != "" {
		query += " WHERE issue_id = ?"
		args = append(args, issueID)
	}
	query += " ORDER BY run_id DESC, seq ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := []model.JournalEntry{}
	for rows.Next() {
		var e model.JournalEntry
		var errMsg sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.RunID, &e.IssueID, &e.Seq, &e.Command, &e.OK, &errMsg, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal row: %w", err)
		}
		e.Error = errMsg.String

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal created_at: %w", err)
		}
		e.CreatedAt = t

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal rows: %w", err)
	}

	return entries, nil
}

// PruneJournal deletes runs started before cutoff along with their
// commands, and returns the number of runs removed.
func PruneJournal(db *sql.DB, cutoff time.Time) (int, error) {
	res, err := db.Exec(
		`DELETE FROM apply_runs WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}
	return int(n), nil
}
