package httpapi

import (
	"net/http"
	"time"

	"climate-server/internal/config"
)

func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
