package httpapi

import (
	"database/sql"
	"net/http"

	"climate-server/internal/metrics"
)

// NewMux returns a mux carrying the operational routes. Feature modules
// register their own routes on it.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}
