package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Unmatched routes get the same JSON envelope as handler errors so
	// clients never have to special-case chi's plain-text defaults.
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method "+r.Method+" not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Delete("/{name}", s.handleRemoveDevice)
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Post("/", s.handleCreateSensor)
			r.Get("/", s.handleAllSensorData)
			r.Post("/enable", s.handleEnableAllSensors)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleSensorData)
				r.Post("/enable", s.handleEnableSensor)
				r.Put("/sample-rate", s.handleSetSampleRate)
			})
		})

		r.Route("/switches", func(r chi.Router) {
			r.Post("/", s.handleCreateSwitch)
			r.Get("/", s.handleAllSwitchStates)
			r.Put("/state", s.handleSetAllSwitches)
			r.Post("/enable", s.handleEnableAllSwitches)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleSwitchState)
				r.Put("/state", s.handleSetSwitch)
				r.Post("/enable", s.handleEnableSwitch)
			})
		})

		// Live fleet updates
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports server health including dependency status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.manager.Count(),
	}

	if s.db != nil {
		health["database"] = componentStatus(s.db.HealthCheck(r.Context()))
	}
	if s.mqtt != nil {
		health["mqtt"] = componentStatus(s.mqtt.HealthCheck(r.Context()))
	}

	writeJSON(w, http.StatusOK, health)
}

func componentStatus(err error) string {
	if err != nil {
		return "unhealthy"
	}
	return "ok"
}
