package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
	"github.com/ericfisherdev/ghbulkreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingStore = (*SettingRepo)(nil)

// SettingRepo is the SQLite implementation of the SettingStore port. All keys
// live under a single section.
type SettingRepo struct {
	db      *DB
	section string
}

// NewSettingRepo creates a SettingRepo scoped to model.DefaultSettingSection.
func NewSettingRepo(db *DB) *SettingRepo {
	return &SettingRepo{db: db, section: model.DefaultSettingSection}
}

// Get returns the stored value for key, or "" when it was never set.
func (r *SettingRepo) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM settings WHERE section = ? AND key = ?`

	var value string
	err := r.db.Reader.QueryRowContext(ctx, query, r.section, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value for key.
func (r *SettingRepo) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (section, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (section, key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`

	if _, err := r.db.Writer.ExecContext(ctx, query, r.section, key, value); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM settings WHERE section = ? AND key = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, r.section, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}
