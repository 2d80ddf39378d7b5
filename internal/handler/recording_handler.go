package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"edulive/internal/app/storage"
	"edulive/internal/pkg/auth/jwt"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/req"
	"edulive/internal/pkg/resp"
)

const (
	// presignedRecordingURLDuration is the lifetime of issued presigned URLs.
	presignedRecordingURLDuration = 15 * time.Minute

	// maxRecordingBytes caps a single uploaded recording segment (2 GiB).
	maxRecordingBytes = int64(2) << 30

	// recordingMimeType is the only accepted recording container.
	recordingMimeType = "video/webm"
)

// PresignRecordingInput defines the JSON input for the upload presign endpoint.
type PresignRecordingInput struct {
	ClassID  string `json:"classId"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignRecordingUpload generates a time-limited presigned URL for
// uploading one recording segment. Only the class teacher may upload.
func HandlePresignRecordingUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PresignRecordingInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		class, customErr := requireClassControl(deps, r, input.ClassID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.FileSize <= 0 || input.FileSize > maxRecordingBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.MimeType != recordingMimeType {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnsupportedMediaType))
			return
		}

		recordingID := uuid.New().String()
		key := storage.RecordingKey(class.ID, recordingID)

		url, err := deps.Recordings.PresignUpload(
			r.Context(),
			key,
			input.MimeType,
			input.FileSize,
			presignedRecordingURLDuration,
		)
		if err != nil {
			logx.Error(err, "failed to presign recording upload", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
			"recordingId":  recordingID,
			"key":          key,
		})
	}
}

// HandlePresignRecordingDownload generates a time-limited presigned URL for
// downloading a recording. Any participant holding a class token for the
// recording's class may download it.
func HandlePresignRecordingDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingToken))
			return
		}

		key := r.URL.Query().Get("k")
		if key == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		// Keys are scoped per class; the caller's token must match.
		expectedPrefix := "recordings/" + payload.ClassID + "/"
		if !strings.HasPrefix(key, expectedPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if _, err := deps.Recordings.GetObjectMetadata(r.Context(), key); err != nil {
			if errors.Is(err, storage.ErrRecordingNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			logx.Error(err, "failed to check recording metadata", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		url, err := deps.Recordings.PresignDownload(r.Context(), key, presignedRecordingURLDuration)
		if err != nil {
			logx.Error(err, "failed to presign recording download", "key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"presignedUrl": url,
		})
	}
}

// DeleteRecordingInput defines the JSON input for the delete endpoint.
type DeleteRecordingInput struct {
	ClassID string `json:"classId"`
	Key     string `json:"key"`
}

// HandleDeleteRecording removes a recording object. Teacher only.
func HandleDeleteRecording(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input DeleteRecordingInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		class, customErr := requireClassControl(deps, r, input.ClassID)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		expectedPrefix := "recordings/" + class.ID + "/"
		if !strings.HasPrefix(input.Key, expectedPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Recordings.Delete(r.Context(), input.Key); err != nil {
			logx.Error(err, "failed to delete recording", "key", input.Key)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
