// internal/api/router.go
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/retea-se/halo-3c-dashboard/internal/auth"
)

// SetupRouter wires all HTTP endpoints. Everything under /api except login
// requires a valid JWT or API key; /health and /metrics are open.
func SetupRouter(h *Handler, authMgr *auth.Manager) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authMgr.Middleware)

			r.Get("/auth/me", h.HandleMe)

			r.Get("/sensors/latest", h.HandleLatestSensors)
			r.Get("/sensors/history", h.HandleSensorHistory)

			r.Get("/events", h.HandleEvents)
			r.Get("/events/latest", h.HandleLatestEvents)
			r.Post("/events/ack/{id}", h.HandleAckEvent)

			r.Get("/occupancy/status", h.HandleOccupancyStatus)
			r.Get("/occupancy/history", h.HandleOccupancyHistory)
			r.Get("/occupancy/config", h.HandleOccupancyConfig)

			r.Get("/predictive/status", h.HandlePredictiveStatus)
			r.Get("/predictive/rules", h.HandlePredictiveRules)
			r.Get("/predictive/alerts", h.HandlePredictiveAlerts)
			r.Post("/predictive/analyze", h.HandlePredictiveAnalyze)

			r.Get("/beacons", h.HandleBeacons)
			r.Get("/beacons/alerts", h.HandleBeaconAlerts)
			r.Get("/beacons/{beaconID}/history", h.HandleBeaconHistory)

			r.Get("/system/status", h.HandleSystemStatus)
			r.Get("/system/device", h.HandleDeviceInfo)
		})
	})

	// Websocket event stream; token accepted via query parameter.
	r.Group(func(r chi.Router) {
		r.Use(authMgr.Middleware)
		r.Get("/ws", h.HandleWebSocket)
	})

	return r
}
