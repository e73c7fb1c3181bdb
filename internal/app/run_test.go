package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-server/internal/config"
	"climate-server/internal/dataset"
)

const stationsCSV = "station,name,latitude,longitude,elevation\n" +
	"USC00519281,\"WAIHEE 837.5, HI US\",21.45167,-157.84889,32.9\n"

const measurementsCSV = "station,date,prcp,tobs\n" +
	"USC00519281,2017-08-22,0.06,76\n" +
	"USC00519281,2017-08-23,,78\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func testConfig(t *testing.T, path string) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:         "dev",
		LogLevel:       slog.LevelInfo,
		HTTPAddr:       pickFreeAddr(t),
		Driver:         "sqlite3",
		Path:           path,
		MaxOpenConns:   2,
		MaxIdleConns:   2,
		DatasetEndDate: time.Date(2017, 8, 23, 0, 0, 0, 0, time.UTC),
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, filepath.Join(dir, "data", "hawaii.sqlite"))

	sum, err := Load(context.Background(), cfg,
		writeFile(t, dir, "stations.csv", stationsCSV),
		writeFile(t, dir, "measurements.csv", measurementsCSV))
	require.NoError(t, err)
	assert.Equal(t, dataset.Summary{Stations: 1, Measurements: 2}, sum)
}

func TestLoad_MissingCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, filepath.Join(dir, "hawaii.sqlite"))

	_, err := Load(context.Background(), cfg, filepath.Join(dir, "nope.csv"), filepath.Join(dir, "nope2.csv"))
	require.Error(t, err)
	_, statErr := os.Stat(cfg.Path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no database should be created")
}

func TestRun_MissingDatasetIsFatal(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "absent.sqlite"))

	err := Run(context.Background(), cfg)
	require.Error(t, err)
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, filepath.Join(dir, "hawaii.sqlite"))
	_, err := Load(context.Background(), cfg,
		writeFile(t, dir, "stations.csv", stationsCSV),
		writeFile(t, dir, "measurements.csv", measurementsCSV))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	base := "http://" + cfg.HTTPAddr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/api/v1.0/2017-08-23")
	require.NoError(t, err)
	var stats []map[string]*float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	require.Len(t, stats, 1)
	require.NotNil(t, stats[0]["Max_Tobs"])
	assert.Equal(t, 78.0, *stats[0]["Max_Tobs"])

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
