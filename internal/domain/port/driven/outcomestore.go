package driven

import (
	"context"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

// OutcomeStore defines the driven port for the review outcome log.
type OutcomeStore interface {
	Record(ctx context.Context, records []model.OutcomeRecord) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.OutcomeRecord, error)
	// ListByRun returns every record of one submission in insertion order.
	ListByRun(ctx context.Context, runID string) ([]model.OutcomeRecord, error)
}
