/*
Package handler provides the HTTP handler for WebSocket connection upgrading
and initialization.

HandleWebSocket rate limits, validates the class access token carried in the
query string, upgrades the connection, and starts the client lifecycle pumps.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"edulive/internal/app/hub"
	"edulive/internal/app/perms"
	"edulive/internal/app/store"
	"edulive/internal/pkg/auth/jwt"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/limiter"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process event channel
// connection requests. The token query parameter must carry a class access
// token for the class in the URL.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		classID := chi.URLParam(r, "classID")
		if classID == "" {
			logx.Warn("WebSocket request rejected: Missing class id")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		tokenString := r.URL.Query().Get("token")
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: Missing token", "class_id", classID)
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingToken))
			return
		}

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid token", "class_id", classID, "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidToken))
			return
		}

		// The token authorizes exactly one class.
		if payload.ClassID != classID {
			logx.Warn("WebSocket request rejected: Token class mismatch",
				"class_id", classID, "token_class_id", payload.ClassID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		class, err := deps.Store.GetClassByID(r.Context(), classID)
		if err != nil {
			if errors.Is(err, store.ErrClassNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrClassNotFound))
				return
			}
			logx.Error(err, "failed to load class for channel join", "class_id", classID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if class.Ended() {
			resp.RespondError(w, r, errs.NewError(errs.ErrClassEnded))
			return
		}

		room := deps.Manager.GetOrCreateRoom(class.ID, class.TeacherID, class.MaxParticipants, class.Settings)
		if room.IsFull() {
			logx.Info("WebSocket connection rejected: Class is full.", "class_id", classID)
			resp.RespondError(w, r, errs.NewError(errs.ErrClassFull))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := hub.NewClient(room, conn, payload.ID, payload.DisplayName, perms.ParseRole(payload.Role))

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered",
			"client_id", payload.ID, "class_id", classID)

		room.RegisterClient(client)

		client.ReadPump()
	}
}
