package database

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantBusy string
	}{
		{name: "default busy timeout", cfg: Config{Path: "/tmp/bizflow.db"}, wantBusy: "5000"},
		{name: "configured busy timeout", cfg: Config{Path: "/tmp/bizflow.db", BusyTimeout: 250 * time.Millisecond}, wantBusy: "250"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dsn(tt.cfg)
			require.True(t, strings.HasPrefix(got, "file:/tmp/bizflow.db?"))

			q, err := url.ParseQuery(strings.SplitN(got, "?", 2)[1])
			require.NoError(t, err)
			assert.Equal(t, "WAL", q.Get("_journal_mode"))
			assert.Equal(t, "immediate", q.Get("_txlock"))
			assert.Equal(t, "on", q.Get("_foreign_keys"))
			assert.Equal(t, tt.wantBusy, q.Get("_busy_timeout"))
		})
	}
}

func TestInTx(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	_, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	insert := func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)")
		return err
	}
	count := func() int {
		var n int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&n))
		return n
	}

	boom := errors.New("boom")
	err = db.InTx(ctx, func(tx *sql.Tx) error {
		require.NoError(t, insert(tx))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, count())

	assert.Panics(t, func() {
		_ = db.InTx(ctx, func(tx *sql.Tx) error {
			require.NoError(t, insert(tx))
			panic("bad step")
		})
	})
	assert.Zero(t, count())

	require.NoError(t, db.InTx(ctx, insert))
	assert.Equal(t, 1, count())
}
