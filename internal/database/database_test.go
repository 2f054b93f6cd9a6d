package database

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/testutil"
)

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipeline.db")
	db, err := Open(Config{Path: path}, testutil.Logger())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"pipeline_runs", "road_names", "migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.db")
	db, err := Open(Config{Path: path}, testutil.Logger())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(Config{Path: path}, testutil.Logger())
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM migrations").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestTransactionRollback(t *testing.T) {
	db, err := Open(Config{Path: filepath.Join(t.TempDir(), "pipeline.db")}, testutil.Logger())
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = Transaction(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO road_names (road_name, geopoint, updated_at) VALUES ('Via Roma', '1,1', 0)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM road_names").Scan(&count))
	assert.Equal(t, 0, count)
}
