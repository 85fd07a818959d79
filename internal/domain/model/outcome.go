package model

import "time"

// OutcomeRecord is a persisted review outcome. Records sharing a RunID were
// produced by the same submission.
type OutcomeRecord struct {
	ID           int64
	RunID        string
	RepoFullName string // Empty for submission-level messages.
	PRNumber     int
	Action       Action
	Applied      bool
	Severity     Severity
	Message      string
	CreatedAt    time.Time
}
