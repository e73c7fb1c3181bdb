package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"climate-server/internal/modules/climate/types"
)

//go:embed sql/get-precipitation.sql
var getPrecipitationSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

//go:embed sql/get-most-active-station.sql
var getMostActiveStationSQL string

//go:embed sql/get-temperature-observations.sql
var getTemperatureObservationsSQL string

//go:embed sql/get-temperature-stats-from.sql
var getTemperatureStatsFromSQL string

//go:embed sql/get-temperature-stats-range.sql
var getTemperatureStatsRangeSQL string

// ClimateRepository is the read-only data access layer over the measurement
// and station tables. Dates are ISO-8601 strings compared lexically.
type ClimateRepository interface {
	GetPrecipitation(ctx context.Context, from string) ([]types.Precipitation, error)
	GetStations(ctx context.Context) ([]types.Station, error)
	// GetMostActiveStation returns the station with the most measurement rows,
	// ties going to the lowest identifier. ok is false for an empty table.
	GetMostActiveStation(ctx context.Context) (station string, ok bool, err error)
	GetTemperatureObservations(ctx context.Context, station string, from string) ([]types.TemperatureObservation, error)
	// GetTemperatureStats aggregates tobs over date >= start, and date <= *end
	// when end is non-nil.
	GetTemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ClimateRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetPrecipitation(ctx context.Context, from string) ([]types.Precipitation, error) {
	rows, err := r.db.QueryContext(ctx, getPrecipitationSQL, from)
	if err != nil {
		return nil, fmt.Errorf("query precipitation: %w", err)
	}
	defer closeRows(rows, "precipitation")

	out := make([]types.Precipitation, 0)
	for rows.Next() {
		var (
			p    types.Precipitation
			prcp sql.NullFloat64
		)
		if err := rows.Scan(&p.Date, &prcp); err != nil {
			return nil, fmt.Errorf("scan precipitation: %w", err)
		}
		p.Precipitation = nullableFloat(prcp)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]types.Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	defer closeRows(rows, "stations")

	out := make([]types.Station, 0)
	for rows.Next() {
		var s types.Station
		if err := rows.Scan(&s.Station, &s.Name, &s.Latitude, &s.Longitude, &s.Elevation); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetMostActiveStation(ctx context.Context) (string, bool, error) {
	var station string
	err := r.db.QueryRowContext(ctx, getMostActiveStationSQL).Scan(&station)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query most active station: %w", err)
	}
	return station, true, nil
}

func (r *repositoryImpl) GetTemperatureObservations(ctx context.Context, station string, from string) ([]types.TemperatureObservation, error) {
	rows, err := r.db.QueryContext(ctx, getTemperatureObservationsSQL, station, from)
	if err != nil {
		return nil, fmt.Errorf("query temperature observations: %w", err)
	}
	defer closeRows(rows, "temperature observations")

	out := make([]types.TemperatureObservation, 0)
	for rows.Next() {
		var (
			o    types.TemperatureObservation
			tobs sql.NullFloat64
		)
		if err := rows.Scan(&o.Date, &tobs); err != nil {
			return nil, fmt.Errorf("scan temperature observation: %w", err)
		}
		o.Tobs = nullableFloat(tobs)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetTemperatureStats(ctx context.Context, start string, end *string) (types.TemperatureStats, error) {
	var row *sql.Row
	if end == nil {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsFromSQL, start)
	} else {
		row = r.db.QueryRowContext(ctx, getTemperatureStatsRangeSQL, start, *end)
	}

	var lo, avg, hi sql.NullFloat64
	if err := row.Scan(&lo, &avg, &hi); err != nil {
		return types.TemperatureStats{}, fmt.Errorf("query temperature stats: %w", err)
	}
	return types.TemperatureStats{
		Min: nullableFloat(lo),
		Avg: nullableFloat(avg),
		Max: nullableFloat(hi),
	}, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Error("close rows", "query", what, "error", err)
	}
}
