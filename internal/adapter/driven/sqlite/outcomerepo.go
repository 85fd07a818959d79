package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OutcomeStore = (*OutcomeRepo)(nil)

// defaultOutcomeLimit applies when ListRecent is called without a positive limit.
const defaultOutcomeLimit = 50

// OutcomeRepo is the SQLite implementation of the OutcomeStore port.
type OutcomeRepo struct {
	db  *DB
	now func() time.Time
}

// NewOutcomeRepo creates a new OutcomeRepo.
func NewOutcomeRepo(db *DB) *OutcomeRepo {
	return &OutcomeRepo{db: db, now: time.Now}
}

// Record inserts all records in one transaction. Records without a
// CreatedAt are stamped with the current time.
func (r *OutcomeRepo) Record(ctx context.Context, records []model.OutcomeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const query = `
		INSERT INTO review_outcomes
			(run_id, repo_full_name, pr_number, action, applied, severity, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = r.now()
		}

		_, err := stmt.ExecContext(ctx,
			rec.RunID,
			rec.RepoFullName,
			rec.PRNumber,
			string(rec.Action),
			rec.Applied,
			string(rec.Severity),
			rec.Message,
			formatTime(createdAt),
		)
		if err != nil {
			return fmt.Errorf("insert outcome for run %s: %w", rec.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcomes: %w", err)
	}
	return nil
}

// ListRecent returns up to limit records, newest first.
func (r *OutcomeRepo) ListRecent(ctx context.Context, limit int) ([]model.OutcomeRecord, error) {
	if limit <= 0 {
		limit = defaultOutcomeLimit
	}

	const query = `
		SELECT id, run_id, repo_full_name, pr_number, action, applied, severity, message, created_at
		FROM review_outcomes
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent outcomes: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// ListByRun returns the records of one submission in insertion order.
func (r *OutcomeRepo) ListByRun(ctx context.Context, runID string) ([]model.OutcomeRecord, error) {
	const query = `
		SELECT id, run_id, repo_full_name, pr_number, action, applied, severity, message, created_at
		FROM review_outcomes
		WHERE run_id = ?
		ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes for run %s: %w", runID, err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

func scanOutcomes(rows *sql.Rows) ([]model.OutcomeRecord, error) {
	records := []model.OutcomeRecord{}
	for rows.Next() {
		var rec model.OutcomeRecord
		var action, severity, createdAt string

		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.RepoFullName, &rec.PRNumber,
			&action, &rec.Applied, &severity, &rec.Message, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		rec.Action = model.Action(action)
		rec.Severity = model.Severity(severity)

		var err error
		rec.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for outcome %d: %w", rec.ID, err)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return records, nil
}
