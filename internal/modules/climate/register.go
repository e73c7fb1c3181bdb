package climate

import (
	"database/sql"
	"net/http"

	"climate-server/internal/modules/climate/controller"
	"climate-server/internal/modules/climate/repository"
)

func RegisterFeature(mux *http.ServeMux, db *sql.DB, opts controller.Options) {
	climateRepository := repository.NewRepository(db)
	climateController := controller.NewClimateController(climateRepository, opts)
	climateController.RegisterRoutes(mux)
}
