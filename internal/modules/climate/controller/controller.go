package controller

import (
	"net/http"

	"climate-server/internal/modules/climate/repository"
)

type ClimateController interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Options are fixed at startup and shared read-only by every request.
type Options struct {
	// ReferenceDate is the YYYY-MM-DD lower bound for the "last 12 months"
	// endpoints.
	ReferenceDate string
	// StrictDates rejects start/end values that are not YYYY-MM-DD.
	StrictDates bool
}

type climateControllerImpl struct {
	repository repository.ClimateRepository
	opts       Options
}

func NewClimateController(repository repository.ClimateRepository, opts Options) ClimateController {
	return &climateControllerImpl{repository: repository, opts: opts}
}

func (c *climateControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", c.handleWelcome)
	mux.HandleFunc("GET /api/v1.0/precipitation", c.handlePrecipitation)
	mux.HandleFunc("GET /api/v1.0/stations", c.handleStations)
	mux.HandleFunc("GET /api/v1.0/tobs", c.handleTobs)
	mux.HandleFunc("GET /api/v1.0/{start}", c.handleStatsFrom)
	mux.HandleFunc("GET /api/v1.0/{start}/{end}", c.handleStatsRange)
}
