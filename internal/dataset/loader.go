package dataset

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"climate-server/internal/db"
	"climate-server/internal/modules/climate/types"
)

//go:embed sql/insert-station.sql
var insertStationSQL string

//go:embed sql/insert-measurement.sql
var insertMeasurementSQL string

//go:embed sql/count-rows.sql
var countRowsSQL string

// ErrNotEmpty is returned when the target store already holds rows.
var ErrNotEmpty = errors.New("store already contains climate data")

// errNoCopy means the pooled connection is not a bare pgx connection, which
// happens when statement logging wraps it.
var errNoCopy = errors.New("connection does not support COPY")

// Summary reports how many rows a load inserted.
type Summary struct {
	Stations     int
	Measurements int
}

type Loader struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

func NewLoader(sqlDB *sql.DB, driver string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{db: sqlDB, driver: driver, logger: logger}
}

// Load parses both CSV streams, then creates the schema and inserts every row
// in a single transaction. Nothing is written if either file is malformed or
// the store is not empty.
func (l *Loader) Load(ctx context.Context, stations io.Reader, measurements io.Reader) (Summary, error) {
	start := time.Now()

	st, err := ReadStations(stations)
	if err != nil {
		return Summary{}, err
	}
	ms, err := ReadMeasurements(measurements)
	if err != nil {
		return Summary{}, err
	}
	l.logger.Info("dataset parsed", "stations", len(st), "measurements", len(ms))

	if l.driver == db.DriverPostgres {
		err = l.copyLoad(ctx, st, ms)
		if errors.Is(err, errNoCopy) {
			l.logger.Debug("COPY unavailable, falling back to inserts")
			err = l.insertLoad(ctx, st, ms)
		}
	} else {
		err = l.insertLoad(ctx, st, ms)
	}
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Stations: len(st), Measurements: len(ms)}
	l.logger.Info("dataset loaded",
		"stations", sum.Stations,
		"measurements", sum.Measurements,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sum, nil
}

func (l *Loader) insertLoad(ctx context.Context, st []types.Station, ms []Measurement) (err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				l.logger.Error("rollback", "error", rbErr)
			}
		}
	}()

	if err = CreateSchema(ctx, tx); err != nil {
		return err
	}
	if err = ensureEmpty(tx.QueryRowContext(ctx, countRowsSQL)); err != nil {
		return err
	}

	stStmt, err := tx.PrepareContext(ctx, insertStationSQL)
	if err != nil {
		return fmt.Errorf("prepare station insert: %w", err)
	}
	defer func() { _ = stStmt.Close() }()
	for i, s := range st {
		if _, err = stStmt.ExecContext(ctx, i+1, s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
			return fmt.Errorf("insert station %q: %w", s.Station, err)
		}
	}

	mStmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer func() { _ = mStmt.Close() }()
	for i, m := range ms {
		if _, err = mStmt.ExecContext(ctx, i+1, m.Station, m.Date, nullable(m.Prcp), nullable(m.Tobs)); err != nil {
			return fmt.Errorf("insert measurement %s/%s: %w", m.Station, m.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// copyLoad uses the PostgreSQL COPY protocol through the pgx connection
// underneath database/sql.
func (l *Loader) copyLoad(ctx context.Context, st []types.Station, ms []Measurement) error {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		sc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return errNoCopy
		}
		return pgx.BeginFunc(ctx, sc.Conn(), func(tx pgx.Tx) error {
			steps, err := schemaSteps()
			if err != nil {
				return err
			}
			for _, s := range steps {
				for _, stmt := range s.statements {
					if _, err := tx.Exec(ctx, stmt); err != nil {
						return fmt.Errorf("schema %s_%s: %w", s.version, s.name, err)
					}
				}
			}
			if err := ensureEmpty(tx.QueryRow(ctx, countRowsSQL)); err != nil {
				return err
			}

			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"station"},
				[]string{"id", "station", "name", "latitude", "longitude", "elevation"},
				pgx.CopyFromSlice(len(st), func(i int) ([]any, error) {
					s := st[i]
					return []any{i + 1, s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation}, nil
				}),
			); err != nil {
				return fmt.Errorf("copy stations: %w", err)
			}

			if _, err := tx.CopyFrom(ctx,
				pgx.Identifier{"measurement"},
				[]string{"id", "station", "date", "prcp", "tobs"},
				pgx.CopyFromSlice(len(ms), func(i int) ([]any, error) {
					m := ms[i]
					return []any{i + 1, m.Station, m.Date, nullable(m.Prcp), nullable(m.Tobs)}, nil
				}),
			); err != nil {
				return fmt.Errorf("copy measurements: %w", err)
			}
			return nil
		})
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func ensureEmpty(row scanner) error {
	var n int64
	if err := row.Scan(&n); err != nil {
		return fmt.Errorf("count rows: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w (%d rows)", ErrNotEmpty, n)
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
