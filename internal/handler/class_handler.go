/*
Package handler provides the HTTP handlers for the class lifecycle: creating
a class, joining by share code, reading class metadata, updating settings and
ending the session.
*/
package handler

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"edulive/internal/app/perms"
	"edulive/internal/app/store"
	"edulive/internal/pkg/auth/jwt"
	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/logx"
	"edulive/internal/pkg/randx"
	"edulive/internal/pkg/req"
	"edulive/internal/pkg/resp"
)

// classCodeRetries bounds share-code generation attempts on collisions.
const classCodeRetries = 5

// classView is the wire representation of a persisted class.
type classView struct {
	ID               string              `json:"id"`
	Code             string              `json:"code"`
	Title            string              `json:"title"`
	TeacherID        string              `json:"teacherId"`
	Sections         []string            `json:"sections,omitempty"`
	MaxParticipants  int                 `json:"maxParticipants"`
	Settings         perms.ClassSettings `json:"settings"`
	RequiresPassword bool                `json:"requiresPassword,omitempty"`
}

func viewOf(c *store.Class) classView {
	return classView{
		ID:               c.ID,
		Code:             c.Code,
		Title:            c.Title,
		TeacherID:        c.TeacherID,
		Sections:         c.Sections,
		MaxParticipants:  c.MaxParticipants,
		Settings:         c.Settings,
		RequiresPassword: c.PasswordHash != "",
	}
}

// CreateClassInput is the body of the class creation endpoint.
type CreateClassInput struct {
	Title           string               `json:"title"`
	Sections        []string             `json:"sections"`
	MaxParticipants int                  `json:"maxParticipants"`
	Password        string               `json:"password"`
	Settings        *perms.ClassSettings `json:"settings"`
}

// HandleCreateClass creates a live class owned by the authenticated caller
// and returns it together with the teacher's channel token.
func HandleCreateClass(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrMissingToken))
			return
		}

		var input CreateClassInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		titleLen := utf8.RuneCountInString(input.Title)
		if titleLen == 0 || titleLen > 200 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if input.MaxParticipants < 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		passwordHash := ""
		if input.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}
			passwordHash = string(hashed)
		}

		settings := perms.DefaultClassSettings()
		if input.Settings != nil {
			settings = *input.Settings
		}

		var class *store.Class
		for attempt := 0; attempt < classCodeRetries; attempt++ {
			code, err := randx.ClassCode()
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
				return
			}

			class, err = deps.Store.CreateClass(r.Context(), store.CreateClassParams{
				Code:            code,
				Title:           input.Title,
				TeacherID:       payload.ID,
				Sections:        input.Sections,
				MaxParticipants: input.MaxParticipants,
				Settings:        settings,
				PasswordHash:    passwordHash,
			})
			if err == nil {
				break
			}
			if store.IsUniqueViolation(err) {
				logx.Warn("class code collision, retrying", "code", code)
				class = nil
				continue
			}

			logx.Error(err, "failed to create class")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}
		if class == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrClassCodeExists))
			return
		}

		token, err := channelToken(deps, class, payload.ID, payload.DisplayName, perms.RoleTeacher)
		if err != nil {
			logx.Error(err, "failed to generate teacher channel token", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"liveClass": viewOf(class),
			"token":     token,
		})
	}
}

// JoinClassInput is the body of the join-by-share-code endpoint. RoomToken is
// the share code from an invite link.
type JoinClassInput struct {
	RoomToken string      `json:"roomToken"`
	Password  string      `json:"password"`
	Guest     *GuestInput `json:"guest"`
}

// GuestInput identifies an anonymous participant. A returning guest may
// present the id handed out on an earlier join to keep its identity.
type GuestInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// guestIdentity resolves a guest's participant id and display name,
// generating whichever is absent. A presented id must carry the guest
// prefix so it can never collide with an authenticated user id.
func guestIdentity(g *GuestInput) (string, string, *errs.CustomError) {
	if g == nil || (g.ID == "" && g.Name == "") {
		return "", "", errs.NewError(errs.ErrGuestDetailsRequired)
	}

	id := g.ID
	switch {
	case id == "":
		generated, err := randx.GuestID()
		if err != nil {
			return "", "", errs.NewError(errs.ErrUnknown)
		}
		id = generated
	case !randx.IsValidGuestID(id):
		return "", "", errs.NewError(errs.ErrInvalidParams)
	}

	name := g.Name
	if name == "" {
		fallback, err := randx.GuestDisplayName()
		if err != nil {
			return "", "", errs.NewError(errs.ErrUnknown)
		}
		name = fallback
	}

	return id, name, nil
}

// HandleJoinClass resolves a share code into a class access grant: the class
// descriptor, the caller's role, their derived permissions and a channel
// token. Password and guest-details requirements surface as business codes.
func HandleJoinClass(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input JoinClassInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if !randx.IsValidClassCode(input.RoomToken) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		class, err := deps.Store.GetClassByCode(r.Context(), input.RoomToken)
		if err != nil {
			if errors.Is(err, store.ErrClassNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrClassNotFound))
				return
			}
			logx.Error(err, "failed to load class by code")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if class.Ended() {
			resp.RespondError(w, r, errs.NewError(errs.ErrClassEnded))
			return
		}

		if class.PasswordHash != "" {
			if input.Password == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrPasswordRequired))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(class.PasswordHash), []byte(input.Password)); err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidPassword))
				return
			}
		}

		if room := deps.Manager.GetRoom(class.ID); room != nil && room.IsFull() {
			resp.RespondError(w, r, errs.NewError(errs.ErrClassFull))
			return
		}

		// Identity: an authenticated caller keeps their id; an anonymous
		// one must provide guest details and gets a generated identity.
		var (
			userID      string
			displayName string
			role        perms.Role
		)

		if payload := jwt.GetPayloadFromContext(r); payload != nil {
			userID = payload.ID
			displayName = payload.DisplayName
			if userID == class.TeacherID {
				role = perms.RoleTeacher
			} else {
				role = perms.ParseRole(payload.Role)
				if role == perms.RoleTeacher {
					// Teachers of other classes join as students here.
					role = perms.RoleStudent
				}
			}
		} else {
			id, name, customErr := guestIdentity(input.Guest)
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			userID = id
			displayName = name
			role = perms.RoleGuest
		}

		token, err := channelToken(deps, class, userID, displayName, role)
		if err != nil {
			logx.Error(err, "failed to generate channel token", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		grant := map[string]any{
			"liveClass":   viewOf(class),
			"userRole":    role.String(),
			"permissions": perms.Derive(role, class.Settings, nil),
			"settings":    class.Settings,
			"token":       token,
		}
		if role == perms.RoleGuest {
			// Echo the id so a returning guest can present it next time.
			grant["guestId"] = userID
		}
		resp.RespondSuccess(w, r, grant)
	}
}

// channelToken signs a class access token for one participant.
func channelToken(deps *AppDeps, class *store.Class, userID, displayName string, role perms.Role) (string, error) {
	return jwt.GenerateToken(&jwt.Payload{
		ID:          userID,
		ClassID:     class.ID,
		Role:        role.String(),
		DisplayName: displayName,
	}, deps.Config.JWTSecret, jwt.ClassAccessExpiration)
}

// HandleGetClass returns the class descriptor for enrolled callers. The
// session uses it as its metadata refresh backstop.
func HandleGetClass(deps *AppDeps) http.HandlerFunc {
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

		resp.RespondSuccess(w, r, map[string]any{
			"liveClass": viewOf(class),
		})
	}
}

// HandleUpdateSettings persists a settings change. Only the class teacher or
// a privileged role may update; the channel broadcast follows separately.
func HandleUpdateSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, customErr := requireClassControl(deps, r, chi.URLParam(r, "id"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		var settings perms.ClassSettings
		if customErr := req.BindJSON(r, &settings); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.UpdateSettings(r.Context(), class.ID, settings); err != nil {
			logx.Error(err, "failed to persist settings", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleEndClass stamps the class as finished and stops its room, ejecting
// every connected participant.
func HandleEndClass(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		class, customErr := requireClassControl(deps, r, chi.URLParam(r, "id"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if err := deps.Store.EndClass(r.Context(), class.ID); err != nil {
			logx.Error(err, "failed to end class", "class_id", class.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if room := deps.Manager.GetRoom(class.ID); room != nil {
			room.Stop()
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// loadClass fetches a class by URL id and maps store errors to business codes.
func loadClass(deps *AppDeps, r *http.Request, classID string) (*store.Class, *errs.CustomError) {
	if classID == "" {
		return nil, errs.NewError(errs.ErrInvalidParams)
	}

	class, err := deps.Store.GetClassByID(r.Context(), classID)
	if err != nil {
		if errors.Is(err, store.ErrClassNotFound) {
			return nil, errs.NewError(errs.ErrClassNotFound)
		}
		logx.Error(err, "failed to load class", "class_id", classID)
		return nil, errs.NewError(errs.ErrUnknown)
	}
	return class, nil
}

// requireClassControl loads the class and verifies the caller controls it.
func requireClassControl(deps *AppDeps, r *http.Request, classID string) (*store.Class, *errs.CustomError) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return nil, errs.NewError(errs.ErrMissingToken)
	}

	class, customErr := loadClass(deps, r, classID)
	if customErr != nil {
		return nil, customErr
	}

	if payload.ID != class.TeacherID && !perms.ParseRole(payload.Role).IsPrivileged() {
		return nil, errs.NewError(errs.ErrNotClassTeacher)
	}
	return class, nil
}
