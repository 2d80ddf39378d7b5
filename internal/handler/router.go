/*
Package handler provides the HTTP handlers and routing setup for the EduLive
class session server.

This file defines the main Router, applying middleware like logging, CORS and
IP-based rate limiting before delegating requests to the class, whiteboard,
recording and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"edulive/internal/pkg/auth/jwt"
	"edulive/internal/pkg/limiter"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/resp"
)

const (
	CreateRate  = 0.05
	CreateBurst = 2
	JoinRate    = 0.2
	JoinBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global
// and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
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
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "EduLive Class Session Server",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/class", func(class chi.Router) {
			rateLimitedCreateHandler := createLimiter.Middleware(HandleCreateClass(deps))
			class.Post("/create", http.HandlerFunc(rateLimitedCreateHandler.ServeHTTP))
			class.Post("/join", HandleJoinClass(deps))

			class.Get("/{id}", HandleGetClass(deps))
			class.Post("/{id}/settings", HandleUpdateSettings(deps))
			class.Post("/{id}/end", HandleEndClass(deps))

			class.Get("/{id}/whiteboard", HandleGetWhiteboard(deps))
			class.Post("/{id}/whiteboard", HandleSaveWhiteboard(deps))
		})

		api.Route("/recording", func(rec chi.Router) {
			rec.Post("/presign-upload", HandlePresignRecordingUpload(deps))
			rec.Get("/presign-download", HandlePresignRecordingDownload(deps))
			rec.Post("/delete", HandleDeleteRecording(deps))
		})
	})

	r.Get("/ws/{classID}", HandleWebSocket(wsUpgrader, joinLimiter, deps))

	return r
}
