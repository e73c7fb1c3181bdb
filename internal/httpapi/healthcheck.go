package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"

	"climate-server/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	db *sql.DB
}

func newHealthchecker(db *sql.DB) healthchecker {
	return &healthcheckerImpl{db: db}
}

// handleHealthz round-trips SELECT 1 so a dead or locked store shows up.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	var ok int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1`).Scan(&ok); err != nil {
		slog.ErrorContext(r.Context(), "healthz: database check failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to check database connectivity")
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func registerHealthcheck(mux *http.ServeMux, db *sql.DB) {
	h := newHealthchecker(db)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}
