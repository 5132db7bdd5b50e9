package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты сервиса.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	mux.Handle("GET /healthz", chain(http.HandlerFunc(h.Healthz)))
	mux.Handle("GET /status", chain(http.HandlerFunc(h.Status)))

	mux.Handle("GET /api/v1/instances", chain(http.HandlerFunc(h.ListInstances)))
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("GET /api/v1/jobs/{name}", chain(http.HandlerFunc(h.GetJob)))
}
