package db

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		mode   Mode
		txlock bool
	}{
		{ModeWrite, true},
		{ModeRead, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			dsn := buildDSN("/tmp/bar.sqlite", tt.mode)
			assert.True(t, strings.HasPrefix(dsn, "/tmp/bar.sqlite?"))
			assert.Contains(t, dsn, "_journal_mode=WAL")
			assert.Contains(t, dsn, "_busy_timeout=5000")
			assert.Contains(t, dsn, "_synchronous=NORMAL")
			if tt.txlock {
				assert.Contains(t, dsn, "_txlock=immediate")
			} else {
				assert.NotContains(t, dsn, "_txlock")
			}
		})
	}
}

func TestOpenSQLite_InvalidMode(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), "bogus", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpenSQLite_Write(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), ModeWrite, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenSQLite_ReadPoolSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")

	db, err := OpenSQLite(path, ModeRead, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, defaultReadConns, db.Stats().MaxOpenConnections)

	db6, err := OpenSQLite(path, ModeRead, 6)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db6.Close() })
	assert.Equal(t, 6, db6.Stats().MaxOpenConnections)
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/x.db", ModeWrite, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestMigrate(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "x.db"), ModeWrite, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	n, err := Migrate(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = Migrate(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, n, "second run applies nothing")

	v, err := SchemaVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = db.Exec(`INSERT INTO debugbar_snapshots (id, data, created_at) VALUES ('a', x'00', 0)`)
	require.NoError(t, err)
}

func TestOpenSQLite_ConcurrentReaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.db")
	w, err := OpenSQLite(path, ModeWrite, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	_, err = Migrate(context.Background(), w)
	require.NoError(t, err)
	for i := range 20 {
		_, err = w.Exec(`INSERT INTO debugbar_snapshots (id, data, created_at) VALUES (?, ?, ?)`, i, []byte("{}"), i)
		require.NoError(t, err)
	}

	r, err := OpenSQLite(path, ModeRead, 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			var n int
			errs[idx] = r.QueryRow(`SELECT count(*) FROM debugbar_snapshots`).Scan(&n)
		}(i)
	}
	wg.Wait()
	for i, e := range errs {
		assert.NoError(t, e, "reader %d", i)
	}
}
