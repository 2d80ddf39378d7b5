package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"edulive/internal/pkg/auth/jwt"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/req"
	"edulive/internal/pkg/resp"
)

// WhiteboardInput wraps the opaque drawing snapshot. The server never
// interprets the drawing format.
type WhiteboardInput struct {
	Notes json.RawMessage `json:"notes"`
}

// maxWhiteboardBytes bounds the persisted snapshot size.
const maxWhiteboardBytes = 1 << 20

// HandleGetWhiteboard returns the saved whiteboard snapshot for a class.
// Any participant holding a class token may read it.
func HandleGetWhiteboard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingToken))
			return
		}

		class, customErr := loadClass(deps, r, chi.URLParam(r, "id"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		notes, err := deps.Store.GetWhiteboardNotes(r.Context(), class.ID)
		if err != nil {
			logx.Error(err, "failed to load whiteboard notes", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"notes": notes,
		})
	}
}

// HandleSaveWhiteboard persists a whiteboard snapshot. Teacher only.
func HandleSaveWhiteboard(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, customErr := requireClassControl(deps, r, chi.URLParam(r, "id"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var input WhiteboardInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if len(input.Notes) == 0 || len(input.Notes) > maxWhiteboardBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.SaveWhiteboardNotes(r.Context(), class.ID, input.Notes); err != nil {
			logx.Error(err, "failed to save whiteboard notes", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
