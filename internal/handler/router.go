/*
Package handler provides the HTTP handlers and routing setup for the signaling relay.

This file defines the main Router, applying middleware like request ids, logging, CORS
and panic recovery before delegating to the API handlers and the WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"signalroom/internal/pkg/logx"
	"signalroom/internal/pkg/resp"
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		stats := deps.Manager.Stats()

		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"connections": stats.Connections,
			"rooms":       stats.Rooms,
			"users":       stats.Users,
		})
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/rooms", HandleListRooms(deps))
		api.With(deps.UpgradeLimiter.Middleware).Post("/covers/presign", HandlePresignCover(deps))
	})

	r.Get("/ws", HandleWebSocket(wsUpgrader, deps))

	return r
}
