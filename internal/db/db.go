package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/stdlib"
	sqlite3 "github.com/mattn/go-sqlite3"

	"climate-server/internal/config"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// ErrDatasetMissing is returned when the configured SQLite file does not exist.
var ErrDatasetMissing = errors.New("dataset file not found")

// ErrSchemaMissing is returned when the store lacks the measurement or station
// table.
var ErrSchemaMissing = errors.New("dataset tables not found")

// ErrNotReadOnly is returned when a read-only DSN asks for another SQLite mode.
var ErrNotReadOnly = errors.New("sqlite DSN must be read-only")

// retryInterval is the first backoff step between startup pings.
var retryInterval = 500 * time.Millisecond

type pinger interface {
	PingContext(ctx context.Context) error
}

// Open connects to the dataset read-only. A missing SQLite file or a store
// without the measurement and station tables is an error.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	return open(ctx, cfg, logger, true)
}

// OpenWritable connects with write access, creating the SQLite file and its
// directory when needed. Only the dataset loader uses it.
func OpenWritable(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	return open(ctx, cfg, logger, false)
}

func open(ctx context.Context, cfg config.Config, logger *slog.Logger, readOnly bool) (*sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(cfg, readOnly)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		connector, err := NewLoggingConnector(driverFor(cfg.Driver), dsn, logger)
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := pingWithRetry(ctx, db, cfg.ConnectRetries, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if readOnly {
		if err := checkTables(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	logger.Info("database connected", "driver", cfg.Driver, "read_only", readOnly)
	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// pingWithRetry pings once, then up to retries more times with exponential
// backoff. Cancelling ctx stops the loop.
func pingWithRetry(ctx context.Context, p pinger, retries int, logger *slog.Logger) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = retryInterval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		return p.PingContext(ctx)
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("database not reachable, retrying",
			"attempt", attempt,
			"retry_in", next.String(),
			"error", err,
		)
	}
	return backoff.RetryNotify(op, b, notify)
}

func driverFor(name string) driver.Driver {
	if name == DriverPostgres {
		return stdlib.GetDefaultDriver()
	}
	return &sqlite3.SQLiteDriver{}
}

// buildDSN turns DB_DSN or SQLITE_PATH into a go-sqlite3 DSN. Read-only
// connections always carry mode=ro, even when DB_DSN names a file directly,
// and the file must already exist.
func buildDSN(cfg config.Config, readOnly bool) (string, error) {
	if cfg.Driver == DriverPostgres {
		if cfg.DSN == "" {
			return "", fmt.Errorf("DB_DSN is required for driver %s", DriverPostgres)
		}
		return cfg.DSN, nil
	}

	source := cfg.Path
	if cfg.DSN != "" {
		source = cfg.DSN
	}
	if source == "" {
		return "", fmt.Errorf("SQLITE_PATH is empty")
	}

	path, query, _ := strings.Cut(strings.TrimPrefix(source, "file:"), "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("invalid sqlite DSN %q: %w", source, err)
	}
	mode := values.Get("mode")
	if readOnly && mode != "" && mode != "ro" {
		return "", fmt.Errorf("%w: mode=%s", ErrNotReadOnly, mode)
	}

	if !inMemory(path, values) {
		if readOnly {
			if _, err := os.Stat(path); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return "", fmt.Errorf("%w: %s", ErrDatasetMissing, path)
				}
				return "", fmt.Errorf("stat %s: %w", path, err)
			}
		} else if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	// mode=ro makes SQLite refuse any write on the connection and refuse to
	// create the file.
	var params []string
	if mode == "" {
		if readOnly {
			params = append(params, "mode=ro")
		} else {
			params = append(params, "mode=rwc")
		}
	}
	if !values.Has("_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !readOnly && !values.Has("_foreign_keys") {
		params = append(params, "_foreign_keys=on")
	}

	dsn := "file:" + path
	if query != "" {
		dsn += "?" + query
		if len(params) > 0 {
			dsn += "&" + strings.Join(params, "&")
		}
	} else if len(params) > 0 {
		dsn += "?" + strings.Join(params, "&")
	}
	return dsn, nil
}

func inMemory(path string, values url.Values) bool {
	return path == "" || path == ":memory:" || values.Get("vfs") == "memdb" || values.Get("mode") == "memory"
}

// checkTables fails when the connected store lacks either dataset table.
func checkTables(ctx context.Context, db *sql.DB) error {
	for _, table := range []string{"measurement", "station"} {
		rows, err := db.QueryContext(ctx, "SELECT 1 FROM "+table+" LIMIT 0")
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSchemaMissing, table, err)
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("close %s probe: %w", table, err)
		}
	}
	return nil
}
