package liveclass

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"edulive/internal/app/classapi"
	"edulive/internal/app/perms"
	"edulive/internal/pkg/errs"
)

// classAPIStub serves the platform's {code, message, data} envelope for the
// join endpoints.
func classAPIStub(t *testing.T, handler func(path string, body []byte) (code int, message string, data any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		code, message, data := handler(r.URL.Path, body)

		resp := map[string]any{"code": code, "message": message}
		if data != nil {
			resp["data"] = data
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestJoinByTokenPasswordRequired(t *testing.T) {
	srv := classAPIStub(t, func(path string, body []byte) (int, string, any) {
		if path != "/api/class/join" {
			t.Fatalf("unexpected path %s", path)
		}
		var req struct {
			Password string `json:"password"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Password == "" {
			return errs.ErrPasswordRequired, "This class requires a password.", nil
		}
		return 0, "", classapi.JoinResult{
			Class:        classapi.LiveClass{ID: "c1", Title: "Algebra", TeacherID: "t1"},
			Role:         "student",
			Settings:     perms.DefaultClassSettings(),
			ChannelToken: "chan-token",
		}
	})
	defer srv.Close()

	api := classapi.NewClient(srv.URL, "")

	_, err := JoinByToken(context.Background(), api, JoinRequest{RoomToken: "AbC123"}, nil, WithPollInterval(-1))
	if !IsPasswordRequired(err) {
		t.Fatalf("first join err = %v, want password-required", err)
	}
	if IsInvalidPassword(err) || IsClassFull(err) {
		t.Fatal("error matched the wrong condition")
	}

	s, err := JoinByToken(context.Background(), api, JoinRequest{
		RoomToken: "AbC123",
		Password:  "secret",
		UserID:    "u1",
	}, nil, WithPollInterval(-1))
	if err != nil {
		t.Fatalf("retry with password: %v", err)
	}
	if s.identity.Role != perms.RoleStudent {
		t.Fatalf("role = %v, want student", s.identity.Role)
	}
	if s.identity.AuthToken != "chan-token" {
		t.Fatal("channel token not carried into the session")
	}
	s.Cleanup()
}

func TestJoinByTokenGuestFlow(t *testing.T) {
	srv := classAPIStub(t, func(_ string, body []byte) (int, string, any) {
		var req struct {
			Guest *classapi.GuestDetails `json:"guest"`
		}
		_ = json.Unmarshal(body, &req)
		if req.Guest == nil || req.Guest.Name == "" {
			return errs.ErrGuestDetailsRequired, "Please provide your name to join as a guest.", nil
		}
		return 0, "", classapi.JoinResult{
			Class:        classapi.LiveClass{ID: "c1", TeacherID: "t1"},
			Role:         "guest",
			Settings:     perms.DefaultClassSettings(),
			ChannelToken: "chan-token",
		}
	})
	defer srv.Close()

	api := classapi.NewClient(srv.URL, "")

	_, err := JoinByToken(context.Background(), api, JoinRequest{RoomToken: "AbC123"}, nil, WithPollInterval(-1))
	if !IsGuestDetailsRequired(err) {
		t.Fatalf("anonymous join err = %v, want guest-details-required", err)
	}

	s, err := JoinByToken(context.Background(), api, JoinRequest{
		RoomToken: "AbC123",
		Guest:     &classapi.GuestDetails{Name: "Visitor"},
	}, nil, WithPollInterval(-1))
	if err != nil {
		t.Fatalf("guest join: %v", err)
	}
	if s.identity.Role != perms.RoleGuest {
		t.Fatalf("role = %v, want guest", s.identity.Role)
	}
	if s.identity.DisplayName != "Visitor" {
		t.Fatalf("display name = %q, want guest name", s.identity.DisplayName)
	}
	set := s.SelfPermissions()
	if set.CanSpeak || set.CanVideo {
		t.Fatalf("guest granted media rights: %+v", set)
	}
	if !set.CanChat {
		t.Fatal("guest denied chat under default settings")
	}
	s.Cleanup()
}

func TestJoinByClassIDDerivesTeacherRole(t *testing.T) {
	settings := perms.DefaultClassSettings()
	settings.AllowChat = false

	srv := classAPIStub(t, func(path string, _ []byte) (int, string, any) {
		if path != "/api/class/c1" {
			t.Fatalf("unexpected path %s", path)
		}
		return 0, "", map[string]any{
			"liveClass": classapi.LiveClass{
				ID: "c1", Title: "Algebra", TeacherID: "t1", Settings: settings,
			},
		}
	})
	defer srv.Close()

	api := classapi.NewClient(srv.URL, "auth-token")

	s, err := JoinByClassID(context.Background(), api, "c1", "chan-token", JoinRequest{
		UserID:      "t1",
		DisplayName: "Prof",
	}, nil, WithPollInterval(-1))
	if err != nil {
		t.Fatalf("JoinByClassID: %v", err)
	}
	defer s.Cleanup()

	if !s.IsTeacher() {
		t.Fatal("class owner not recognized as teacher")
	}
	if s.Settings() != settings {
		t.Fatalf("settings = %+v, want the platform's", s.Settings())
	}
	// Teacher permissions ignore the restrictive chat policy.
	if !s.SelfPermissions().CanChat {
		t.Fatal("teacher lost chat under AllowChat=false")
	}
}

func TestJoinByClassIDNotFound(t *testing.T) {
	srv := classAPIStub(t, func(string, []byte) (int, string, any) {
		return errs.ErrClassNotFound, "Live class not found.", nil
	})
	defer srv.Close()

	api := classapi.NewClient(srv.URL, "auth-token")

	_, err := JoinByClassID(context.Background(), api, "missing", "tok", JoinRequest{UserID: "u1"}, nil)
	if err == nil {
		t.Fatal("join against a missing class succeeded")
	}
	var apiErr *classapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != errs.ErrClassNotFound {
		t.Fatalf("err = %v, want class-not-found API error", err)
	}
}
