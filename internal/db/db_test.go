package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPragmasApplied verifies that essential PRAGMAs are set on new databases.
func TestPragmasApplied(t *testing.T) {
	db, _ := setupTestDB(t)

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.Equal(t, 5000, busyTimeout)

	var synchronous int
	require.NoError(t, db.QueryRow("PRAGMA synchronous").Scan(&synchronous))
	assert.Equal(t, 1, synchronous, "synchronous should be NORMAL")

	var tempStore int
	require.NoError(t, db.QueryRow("PRAGMA temp_store").Scan(&tempStore))
	assert.Equal(t, 2, tempStore, "temp_store should be MEMORY")

	var foreignKeys int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys))
	assert.Equal(t, 1, foreignKeys)
}

func TestNewDB_ReopenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db1, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db1.Close())

	db2, err := NewDB(path)
	require.NoError(t, err)
	defer db2.Close()

	assert.Equal(t, path, db2.Path())
	version, dirty, err := db2.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestNewDB_BadPath(t *testing.T) {
	_, err := NewDB(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.Error(t, err)
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n))
	return n > 0
}

func TestMigrations_DownAndUp(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)
	assert.False(t, tableExists(t, db, "runs"))

	require.NoError(t, db.MigrateUp())
	assert.True(t, tableExists(t, db, "runs"))
	assert.True(t, tableExists(t, db, "run_axes"))

	require.NoError(t, db.MigrateDown())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, tableExists(t, db, "run_axes"))
	assert.True(t, tableExists(t, db, "run_counts"))

	require.NoError(t, db.MigrateTo(2))
	assert.True(t, tableExists(t, db, "run_axes"))

	// Up at the latest version is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestMigrateForce(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.MigrateForce(1))
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	assert.False(t, tableExists(t, db, "runs"), "force does not run migrations")
}

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	testCases := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"no action", nil, "Usage:", true},
		{"status empty", []string{"status"}, "Current version: 0 (dirty: false)", false},
		{"up", []string{"up"}, "Current version: 2", false},
		{"down", []string{"down"}, "Current version: 1", false},
		{"version", []string{"version", "2"}, "Current version: 2", false},
		{"version missing arg", []string{"version"}, "", true},
		{"version bad arg", []string{"version", "two"}, "", true},
		{"force", []string{"force", "1"}, "Current version: 1", false},
		{"help", []string{"help"}, "Actions:", false},
		{"unknown", []string{"sideways"}, "Usage:", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			err := RunMigrateCommand(&out, tc.args, path)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tc.want != "" {
				assert.True(t, strings.Contains(out.String(), tc.want), "output %q missing %q", out.String(), tc.want)
			}
		})
	}
}
