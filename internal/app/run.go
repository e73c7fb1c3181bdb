package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"climate-server/internal/config"
	"climate-server/internal/dataset"
	db "climate-server/internal/db"
	httpapi "climate-server/internal/httpapi"
	climate "climate-server/internal/modules/climate"
	"climate-server/internal/modules/climate/controller"
)

const shutdownTimeout = 10 * time.Second

// Run serves the climate API until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbConnectRetries", cfg.ConnectRetries,
		"referenceDate", cfg.ReferenceDate(),
		"strictDates", cfg.StrictDates,
	)

	dbConn, err := db.Open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	mux := httpapi.NewMux(dbConn)
	climate.RegisterFeature(mux, dbConn, controller.Options{
		ReferenceDate: cfg.ReferenceDate(),
		StrictDates:   cfg.StrictDates,
	})

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// Load creates the schema in a fresh store and fills it from the two CSV
// files.
func Load(ctx context.Context, cfg config.Config, stationsPath, measurementsPath string) (dataset.Summary, error) {
	stations, err := os.Open(stationsPath)
	if err != nil {
		return dataset.Summary{}, fmt.Errorf("open stations csv: %w", err)
	}
	defer func() { _ = stations.Close() }()

	measurements, err := os.Open(measurementsPath)
	if err != nil {
		return dataset.Summary{}, fmt.Errorf("open measurements csv: %w", err)
	}
	defer func() { _ = measurements.Close() }()

	dbConn, err := db.OpenWritable(ctx, cfg, slog.Default())
	if err != nil {
		return dataset.Summary{}, err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	return dataset.NewLoader(dbConn, cfg.Driver, slog.Default()).Load(ctx, stations, measurements)
}
