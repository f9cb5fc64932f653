package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// expectedMigrationCount is the number of migrations we expect to have.
// Update this when adding new migrations.
const expectedMigrationCount = 2

func TestMigrations_FreshDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	store, err := NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, expectedMigrationCount, count)
}

func TestMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	store, err := NewStorage(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// reopening must not re-run applied migrations
	store, err = NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	var count int
	err = store.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, expectedMigrationCount, count)
}

func TestMigrations_SchemaUsable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	store, err := NewStorage(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec(`SELECT id, threshold FROM reconciliation_runs LIMIT 1`)
	assert.NoError(t, err)
	_, err = store.db.Exec(`SELECT match_id, run_id FROM reconciliation_matches LIMIT 1`)
	assert.NoError(t, err)
}
