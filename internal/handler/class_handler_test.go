package handler

import (
	"strings"
	"testing"

	"edulive/internal/pkg/errs"
	"edulive/internal/pkg/randx"
)

func TestGuestIdentityGeneratesMissingFields(t *testing.T) {
	id, name, customErr := guestIdentity(&GuestInput{Name: "Visitor"})
	if customErr != nil {
		t.Fatalf("name-only guest: %v", customErr)
	}
	if !randx.IsValidGuestID(id) {
		t.Fatalf("generated id %q is not a valid guest id", id)
	}
	if name != "Visitor" {
		t.Fatalf("name = %q, want provided name kept", name)
	}

	returning, err := randx.GuestID()
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}
	id, name, customErr = guestIdentity(&GuestInput{ID: returning})
	if customErr != nil {
		t.Fatalf("id-only guest: %v", customErr)
	}
	if id != returning {
		t.Fatalf("id = %q, want presented id %q kept", id, returning)
	}
	if !strings.HasPrefix(name, "Guest_") {
		t.Fatalf("fallback name = %q, want generated guest name", name)
	}
}

func TestGuestIdentityKeepsProvidedFields(t *testing.T) {
	returning, err := randx.GuestID()
	if err != nil {
		t.Fatalf("GuestID: %v", err)
	}

	id, name, customErr := guestIdentity(&GuestInput{ID: returning, Name: "Visitor"})
	if customErr != nil {
		t.Fatalf("full guest input: %v", customErr)
	}
	if id != returning || name != "Visitor" {
		t.Fatalf("identity = (%q, %q), want presented values kept", id, name)
	}
}

func TestGuestIdentityRejectsBadInput(t *testing.T) {
	if _, _, customErr := guestIdentity(nil); customErr == nil || customErr.Code != errs.ErrGuestDetailsRequired {
		t.Fatalf("nil guest err = %v, want guest-details-required", customErr)
	}
	if _, _, customErr := guestIdentity(&GuestInput{Email: "v@example.com"}); customErr == nil || customErr.Code != errs.ErrGuestDetailsRequired {
		t.Fatalf("empty guest err = %v, want guest-details-required", customErr)
	}

	for _, bad := range []string{"user-42", "guest_", "guest_ABC", "Guest_AbC123", "guest_AbC1234"} {
		if _, _, customErr := guestIdentity(&GuestInput{ID: bad, Name: "Visitor"}); customErr == nil || customErr.Code != errs.ErrInvalidParams {
			t.Fatalf("id %q err = %v, want invalid-params", bad, customErr)
		}
	}
}
