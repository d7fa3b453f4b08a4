package model

import "time"

// JournalEntry records one bd command executed while saving an issue.
type JournalEntry struct {
	ID        int       `json:"id"`
	RunID     int       `json:"run_id"`
	IssueID   string    `json:"issue_id"`
	Seq       int       `json:"seq"`
	Command   string    `json:"command"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is an edited document that has not been applied yet.
type Draft struct {
	IssueID  string    `json:"issue_id"`
	Document string    `json:"document"`
	Error    string    `json:"error,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}
