package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DateLayout is the ISO-8601 calendar date layout used by the dataset.
const DateLayout = "2006-01-02"

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  int
	LogSQL          bool

	// DatasetEndDate is the last date present in the dataset. The default lower
	// bound for "last 12 months" queries is derived from it once at startup.
	DatasetEndDate time.Time
	StrictDates    bool
}

// NewViper returns a viper instance reading the environment, with the
// defaults registered. Keys map to upper-case environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("app_env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("db_driver", "sqlite3")
	v.SetDefault("sqlite_path", "hawaii.sqlite")
	v.SetDefault("db_max_open_conns", "4")
	v.SetDefault("db_max_idle_conns", "4")
	v.SetDefault("db_conn_max_lifetime", "0s")
	v.SetDefault("db_connect_retries", "0")
	v.SetDefault("db_log_sql", "false")
	v.SetDefault("dataset_end_date", "2017-08-23")
	v.SetDefault("strict_dates", "false")
	return v
}

func LoadFromEnv() (Config, error) {
	return Load(NewViper())
}

func Load(v *viper.Viper) (Config, error) {
	appEnv := get(v, "app_env")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(get(v, "log_level"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := get(v, "http_addr")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	driver := get(v, "db_driver")
	switch driver {
	case "sqlite3", "pgx":
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: sqlite3, pgx)", driver)
	}
	dsn := get(v, "db_dsn")
	path := get(v, "sqlite_path")
	if driver == "pgx" && dsn == "" {
		return Config{}, fmt.Errorf("DB_DSN is required when DB_DRIVER is pgx")
	}

	maxOpenConns, err := getInt(v, "db_max_open_conns")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := getInt(v, "db_max_idle_conns")
	if err != nil {
		return Config{}, err
	}
	connectRetries, err := getInt(v, "db_connect_retries")
	if err != nil {
		return Config{}, err
	}
	if connectRetries < 0 {
		return Config{}, fmt.Errorf("invalid DB_CONNECT_RETRIES %d: must be >= 0", connectRetries)
	}

	connMaxLifetimeStr := get(v, "db_conn_max_lifetime")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQL, err := getBool(v, "db_log_sql")
	if err != nil {
		return Config{}, err
	}
	strictDates, err := getBool(v, "strict_dates")
	if err != nil {
		return Config{}, err
	}

	endDateStr := get(v, "dataset_end_date")
	endDate, err := time.Parse(DateLayout, endDateStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DATASET_END_DATE %q (expected YYYY-MM-DD): %w", endDateStr, err)
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        httpAddr,
		Driver:          driver,
		DSN:             dsn,
		Path:            path,
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		ConnectRetries:  connectRetries,
		LogSQL:          logSQL,
		DatasetEndDate:  endDate,
		StrictDates:     strictDates,
	}, nil
}

// ReferenceDate is one year (365 days) before the dataset end date, formatted
// as YYYY-MM-DD.
func (c Config) ReferenceDate() string {
	return c.DatasetEndDate.AddDate(0, 0, -365).Format(DateLayout)
}

func get(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func getInt(v *viper.Viper, key string) (int, error) {
	s := get(v, key)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), s, err)
	}
	return n, nil
}

func getBool(v *viper.Viper, key string) (bool, error) {
	s := get(v, key)
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", strings.ToUpper(key), s, err)
	}
	return b, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
