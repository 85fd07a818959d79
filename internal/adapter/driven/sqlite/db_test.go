package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/ghbulkreview/internal/domain/model"
)

func TestNewDB_FileRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ghbulkreview.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.Writer))
	require.NoError(t, NewSettingRepo(db).Set(ctx, model.SettingAuthor, "alice"))
	require.NoError(t, db.Close())

	reopened, err := NewDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	require.NoError(t, RunMigrations(reopened.Writer), "migrations are idempotent")

	val, err := NewSettingRepo(reopened).Get(ctx, model.SettingAuthor)
	require.NoError(t, err)
	assert.Equal(t, "alice", val)
}

func TestNewDB_WALMode(t *testing.T) {
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "wal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.Reader.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}
