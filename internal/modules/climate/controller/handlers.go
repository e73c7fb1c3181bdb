package controller

import (
	"log/slog"
	"net/http"

	"climate-server/internal/modules/climate/types"
	"climate-server/internal/utils"
)

func (c *climateControllerImpl) handleWelcome(w http.ResponseWriter, r *http.Request) {
	utils.WriteHTML(w, http.StatusOK, welcomePage)
}

func (c *climateControllerImpl) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	data, err := c.repository.GetPrecipitation(r.Context(), c.opts.ReferenceDate)
	if err != nil {
		slog.ErrorContext(r.Context(), "precipitation: query failed", "from", c.opts.ReferenceDate, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load precipitation")
		return
	}
	utils.WriteJSON(w, http.StatusOK, data)
}

func (c *climateControllerImpl) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := c.repository.GetStations(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "stations: query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, stations)
}

func (c *climateControllerImpl) handleTobs(w http.ResponseWriter, r *http.Request) {
	station, ok, err := c.repository.GetMostActiveStation(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "tobs: most active station query failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	if !ok {
		utils.WriteJSON(w, http.StatusOK, []types.TemperatureObservation{})
		return
	}

	observations, err := c.repository.GetTemperatureObservations(r.Context(), station, c.opts.ReferenceDate)
	if err != nil {
		slog.ErrorContext(r.Context(), "tobs: query failed", "station", station, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature observations")
		return
	}
	utils.WriteJSON(w, http.StatusOK, observations)
}

func (c *climateControllerImpl) handleStatsFrom(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start", c.opts.StrictDates)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.writeStats(w, r, start, nil)
}

func (c *climateControllerImpl) handleStatsRange(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "start", c.opts.StrictDates)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseDateParam(r, "end", c.opts.StrictDates)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	c.writeStats(w, r, start, &end)
}

func (c *climateControllerImpl) writeStats(w http.ResponseWriter, r *http.Request, start string, end *string) {
	stats, err := c.repository.GetTemperatureStats(r.Context(), start, end)
	if err != nil {
		attrs := []any{"start", start, "error", err}
		if end != nil {
			attrs = append(attrs, "end", *end)
		}
		slog.ErrorContext(r.Context(), "temperature stats: query failed", attrs...)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load temperature statistics")
		return
	}
	utils.WriteJSON(w, http.StatusOK, []types.TemperatureStats{stats})
}
