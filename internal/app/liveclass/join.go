package liveclass

import (
	"context"
	"errors"

	"edulive/internal/app/classapi"
	"edulive/internal/app/media"
	"edulive/internal/app/perms"
	"edulive/internal/pkg/errs"
)

// JoinRequest carries everything needed to resolve a class join through the
// REST collaborator.
type JoinRequest struct {
	// RoomToken is the share token from a class invite link.
	RoomToken string

	// Password is required when the class is password protected; leave
	// empty on the first attempt and retry after IsPasswordRequired.
	Password string

	// Guest provides the display name for unauthenticated joins; leave nil
	// on the first attempt and retry after IsGuestDetailsRequired.
	Guest *classapi.GuestDetails

	// UserID and DisplayName identify an authenticated caller. For guests
	// the platform assigns both and they may be left empty.
	UserID      string
	DisplayName string
}

// JoinByToken resolves a share token into a ready-to-connect Session. The
// returned session is not yet connected; call Connect on it. Password and
// guest-details requirements surface as *classapi.APIError values testable
// with IsPasswordRequired and IsGuestDetailsRequired.
func JoinByToken(ctx context.Context, api *classapi.Client, req JoinRequest, delegate media.Delegate, opts ...Option) (*Session, error) {
	result, err := api.JoinByToken(ctx, req.RoomToken, req.Password, req.Guest)
	if err != nil {
		return nil, err
	}
	return sessionFromJoin(api, result, req, delegate, opts)
}

// JoinByClassID loads a class by id and builds a session for an already
// authenticated caller. channelToken authorizes the websocket channel.
func JoinByClassID(ctx context.Context, api *classapi.Client, classID, channelToken string, req JoinRequest, delegate media.Delegate, opts ...Option) (*Session, error) {
	class, err := api.JoinByClassID(ctx, classID)
	if err != nil {
		return nil, err
	}
	result := &classapi.JoinResult{
		Class:        *class,
		Settings:     class.Settings,
		ChannelToken: channelToken,
	}
	return sessionFromJoin(api, result, req, delegate, opts)
}

// sessionFromJoin builds the session from a join result. The role comes from
// the platform when present and is otherwise derived by comparing the caller
// to the class teacher.
func sessionFromJoin(api *classapi.Client, result *classapi.JoinResult, req JoinRequest, delegate media.Delegate, opts []Option) (*Session, error) {
	identity := Identity{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		AuthToken:   result.ChannelToken,
	}
	if req.Guest != nil && identity.DisplayName == "" {
		identity.DisplayName = req.Guest.Name
	}

	switch {
	case result.Role != "":
		identity.Role = perms.ParseRole(result.Role)
	case identity.UserID != "" && identity.UserID == result.Class.TeacherID:
		identity.Role = perms.RoleTeacher
	case req.Guest != nil:
		identity.Role = perms.RoleGuest
	default:
		identity.Role = perms.RoleStudent
	}

	class := ClassInfo{
		ID:              result.Class.ID,
		Title:           result.Class.Title,
		TeacherID:       result.Class.TeacherID,
		Sections:        result.Class.Sections,
		MaxParticipants: result.Class.MaxParticipants,
	}

	s := New(identity, class, api, delegate, opts...)
	s.applySettings(result.Settings)
	return s, nil
}

// IsPasswordRequired reports whether a join failed because the class needs a
// password.
func IsPasswordRequired(err error) bool {
	return apiErrorCode(err) == errs.ErrPasswordRequired
}

// IsInvalidPassword reports whether a join failed because the supplied
// password was wrong.
func IsInvalidPassword(err error) bool {
	return apiErrorCode(err) == errs.ErrInvalidPassword
}

// IsGuestDetailsRequired reports whether a join failed because the platform
// needs a guest display name first.
func IsGuestDetailsRequired(err error) bool {
	return apiErrorCode(err) == errs.ErrGuestDetailsRequired
}

// IsClassFull reports whether a join failed on the participant limit.
func IsClassFull(err error) bool {
	return apiErrorCode(err) == errs.ErrClassFull
}

func apiErrorCode(err error) int {
	var apiErr *classapi.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
