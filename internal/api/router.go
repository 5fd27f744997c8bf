package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/coordination"
	"github.com/fieldmesh/fieldcoord/internal/ws"
)

// NewRouter builds the HTTP mux: control endpoints, the snapshot
// websocket and Prometheus metrics, wrapped with CORS for the display
// layer.
func NewRouter(service *coordination.Service, hub *ws.Hub, gatherer prometheus.Gatherer,
	allowedOrigins []string, logger zerolog.Logger) http.Handler {
	handlers := NewHandlers(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /devices", handlers.RegisterDevice)
	mux.HandleFunc("POST /devices/{id}/location", handlers.UpdateLocation)
	mux.HandleFunc("DELETE /devices/{id}", handlers.RemoveDevice)
	mux.HandleFunc("PUT /topology/mode", handlers.SetTopologyMode)
	mux.HandleFunc("PUT /routes/selected", handlers.SelectRoute)
	mux.HandleFunc("PUT /routes/auto", handlers.SetAutoRouting)
	mux.HandleFunc("GET /snapshot", handlers.GetSnapshot)
	mux.Handle("GET /ws", hub)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}
