package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"climate-server/internal/config"
	"climate-server/internal/modules/climate/types"
)

// Measurement is one row of the measurements CSV. Prcp and Tobs are nil for
// empty cells.
type Measurement struct {
	Station string
	Date    string
	Prcp    *float64
	Tobs    *float64
}

var (
	stationColumns     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementColumns = []string{"station", "date", "prcp", "tobs"}
)

// ReadStations parses a stations CSV with a header row naming at least
// station, name, latitude, longitude and elevation, in any order.
func ReadStations(r io.Reader) ([]types.Station, error) {
	cr, idx, err := newReader(r, stationColumns)
	if err != nil {
		return nil, fmt.Errorf("stations: %w", err)
	}

	var out []types.Station
	seen := make(map[string]bool)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stations: %w", err)
		}
		line, _ := cr.FieldPos(0)

		s := types.Station{
			Station: strings.TrimSpace(rec[idx["station"]]),
			Name:    strings.TrimSpace(rec[idx["name"]]),
		}
		if s.Station == "" {
			return nil, fmt.Errorf("stations line %d: empty station identifier", line)
		}
		if seen[s.Station] {
			return nil, fmt.Errorf("stations line %d: duplicate station %q", line, s.Station)
		}
		seen[s.Station] = true

		for _, f := range []struct {
			col string
			dst *float64
		}{
			{"latitude", &s.Latitude},
			{"longitude", &s.Longitude},
			{"elevation", &s.Elevation},
		} {
			v, err := parseFloat(rec[idx[f.col]])
			if err != nil || v == nil {
				return nil, fmt.Errorf("stations line %d: invalid %s %q", line, f.col, rec[idx[f.col]])
			}
			*f.dst = *v
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadMeasurements parses a measurements CSV with a header row naming at least
// station, date, prcp and tobs. Dates must be YYYY-MM-DD so lexical ordering
// matches calendar ordering.
func ReadMeasurements(r io.Reader) ([]Measurement, error) {
	cr, idx, err := newReader(r, measurementColumns)
	if err != nil {
		return nil, fmt.Errorf("measurements: %w", err)
	}

	var out []Measurement
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("measurements: %w", err)
		}
		line, _ := cr.FieldPos(0)

		m := Measurement{
			Station: strings.TrimSpace(rec[idx["station"]]),
			Date:    strings.TrimSpace(rec[idx["date"]]),
		}
		if m.Station == "" {
			return nil, fmt.Errorf("measurements line %d: empty station identifier", line)
		}
		if _, err := time.Parse(config.DateLayout, m.Date); err != nil {
			return nil, fmt.Errorf("measurements line %d: invalid date %q", line, m.Date)
		}
		if m.Prcp, err = parseFloat(rec[idx["prcp"]]); err != nil {
			return nil, fmt.Errorf("measurements line %d: invalid prcp %q", line, rec[idx["prcp"]])
		}
		if m.Tobs, err = parseFloat(rec[idx["tobs"]]); err != nil {
			return nil, fmt.Errorf("measurements line %d: invalid tobs %q", line, rec[idx["tobs"]])
		}
		out = append(out, m)
	}
	return out, nil
}

func newReader(r io.Reader, required []string) (*csv.Reader, map[string]int, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		// tolerate a UTF-8 BOM on the first column
		h = strings.TrimPrefix(h, "\ufeff")
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", col)
		}
	}
	return cr, idx, nil
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
