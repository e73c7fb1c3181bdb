package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/stdlib"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu      sync.Mutex
	records []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := map[string]slog.Value{"msg": slog.StringValue(r.Message)}
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.records = append(h.records, m)
	return nil
}

func (h *captureHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(_ string) slog.Handler { return h }

func (h *captureHandler) recordsFor(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.records {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) last(t *testing.T) map[string]slog.Value {
	t.Helper()
	recs := h.recordsFor(t, "sql")
	require.NotEmpty(t, recs, "expected at least one sql log record")
	return recs[len(recs)-1]
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

func openLogged(t *testing.T) (*sql.DB, *captureHandler) {
	t.Helper()
	handler := &captureHandler{}
	connector, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, ":memory:", slog.New(handler))
	require.NoError(t, err)
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db, handler
}

func TestNewLoggingConnector(t *testing.T) {
	t.Run("nil driver is rejected", func(t *testing.T) {
		_, err := NewLoggingConnector(nil, ":memory:", nil)
		require.Error(t, err)
	})

	t.Run("nil logger uses default", func(t *testing.T) {
		conn, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, ":memory:", nil)
		require.NoError(t, err)
		lc, ok := conn.(*loggingConnector)
		require.True(t, ok)
		assert.NotNil(t, lc.logger)
	})

	t.Run("pgx driver is accepted", func(t *testing.T) {
		conn, err := NewLoggingConnector(stdlib.GetDefaultDriver(), "postgres://localhost/climate", nil)
		require.NoError(t, err)
		assert.Equal(t, stdlib.GetDefaultDriver(), conn.Driver())
	})
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	db, handler := openLogged(t)

	_, err := db.Exec(`CREATE TABLE measurement (station TEXT, date TEXT, prcp REAL)`)
	require.NoError(t, err)
	got := handler.last(t)
	assert.Equal(t, "exec", got["op"].String())
	assert.Equal(t, `CREATE TABLE measurement (station TEXT, date TEXT, prcp REAL)`, got["sql"].String())
	_, hasDuration := got["duration_us"]
	assert.True(t, hasDuration)

	handler.reset()
	var one int
	require.NoError(t, db.QueryRow(`SELECT 1`).Scan(&one))
	got = handler.last(t)
	assert.Equal(t, "query", got["op"].String())
	assert.Equal(t, `SELECT 1`, got["sql"].String())
}

func TestLoggingConnector_ArgsLogged(t *testing.T) {
	db, handler := openLogged(t)

	_, err := db.Exec(`CREATE TABLE measurement (station TEXT, date TEXT, prcp REAL)`)
	require.NoError(t, err)
	handler.reset()

	_, err = db.Exec(`INSERT INTO measurement (station, date, prcp) VALUES ($1, $2, $3)`, "USC00519397", "2016-08-23", nil)
	require.NoError(t, err)

	got := handler.last(t)
	assert.Equal(t, "exec", got["op"].String())
	args, ok := got["args"].Any().([]string)
	require.True(t, ok, "args should be a []string, got %T", got["args"].Any())
	assert.Equal(t, []string{"USC00519397", "2016-08-23", "NULL"}, args)
}

func TestLoggingConnector_ErrorLogged(t *testing.T) {
	db, handler := openLogged(t)

	_, err := db.Query(`SELECT * FROM missing_table`)
	require.Error(t, err)

	// prepare fails before any statement runs, so nothing is logged as a query
	assert.Empty(t, handler.recordsFor(t, "sql"))
}

func TestLoggingConnector_Transaction(t *testing.T) {
	db, handler := openLogged(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE station (station TEXT)`)
	require.NoError(t, err)
	handler.reset()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, `INSERT INTO station (station) VALUES ($1)`, "USC00519281")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM station`).Scan(&n))
	assert.Equal(t, 1, n)
	assert.Len(t, handler.recordsFor(t, "sql"), 2)
}

func TestLoggingConnector_PingSucceeds(t *testing.T) {
	db, _ := openLogged(t)
	require.NoError(t, db.Ping())
}

func TestFormatArg(t *testing.T) {
	assert.Equal(t, "NULL", formatArg(nil))
	assert.Equal(t, "abc", formatArg([]byte("abc")))
	assert.Equal(t, "0.08", formatArg(0.08))
	assert.Equal(t, "42", formatArg(int64(42)))
}
