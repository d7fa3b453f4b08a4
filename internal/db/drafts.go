package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fancypantalons/bdedit/internal/model"
)

// SaveDraft stores the document for an issue, replacing any earlier draft.
// Drafts for issues that do not exist yet use model.NewIssueID.
func SaveDraft(ex execer, issueID, document, errMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := ex.Exec(
		`INSERT INTO drafts (issue_id, document, error, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(issue_id) DO UPDATE SET
		   document = excluded.document,
		   error = excluded.error,
		   saved_at = excluded.saved_at`,
		issueID, document, nullIfEmpty(errMsg), now,
	)
	if err != nil {
		return fmt.Errorf("saving draft for %s: %w", issueID, err)
	}
	return nil
}

// GetDraft returns the saved draft for an issue, or ErrNotFound.
func GetDraft(db *sql.DB, issueID string) (*model.Draft, error) {
	row := db.QueryRow(
		`SELECT issue_id, document, error, saved_at FROM drafts WHERE issue_id = ?`,
		issueID,
	)
	d, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListDrafts returns all drafts, most recently saved first.
func ListDrafts(db *sql.DB) ([]model.Draft, error) {
	rows, err := db.Query(
		`SELECT issue_id, document, error, saved_at FROM drafts ORDER BY saved_at DESC, issue_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	drafts := []model.Draft{}
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating draft rows: %w", err)
	}
	return drafts, nil
}

// DeleteDraft removes the draft for an issue. It returns ErrNotFound when
// there is none.
func DeleteDraft(ex execer, issueID string) error {
	res, err := ex.Exec(`DELETE FROM drafts WHERE issue_id = ?`, issueID)
	if err != nil {
		return fmt.Errorf("deleting draft for %s: %w", issueID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting draft for %s: %w", issueID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*model.Draft, error) {
	var d model.Draft
	var errMsg sql.NullString
	var savedAt string
	if err := row.Scan(&d.IssueID, &d.Document, &errMsg, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning draft row: %w", err)
	}
	d.Error = errMsg.String

	t, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing draft saved_at: %w", err)
	}
	d.SavedAt = t
	return &d, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
