package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{
		ID:          "u1",
		ClassID:     "c1",
		Role:        "teacher",
		DisplayName: "Prof",
	}

	token, err := GenerateToken(payload, testSecret, ClassAccessExpiration)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	parsed, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if parsed.ID != "u1" || parsed.ClassID != "c1" || parsed.Role != "teacher" || parsed.DisplayName != "Prof" {
		t.Fatalf("parsed payload = %+v", parsed)
	}
	if parsed.Issuer != TokenIssuer {
		t.Fatalf("issuer = %q, want %q", parsed.Issuer, TokenIssuer)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1", ClassID: "c1"}, testSecret, ClassAccessExpiration)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("token signed with a different secret was accepted")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken(&Payload{ID: "u1", ClassID: "c1"}, testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := ParseToken(token, testSecret); err == nil {
		t.Fatal("expired token was accepted")
	}
}

func TestIdentityExtractorMiddleware(t *testing.T) {
	var got *Payload
	handler := IdentityExtractorMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPayloadFromContext(r)
	}))

	// No header: anonymous, request still served.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != nil {
		t.Fatal("anonymous request produced a payload")
	}

	// Garbage token: still anonymous, never an error response.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got != nil {
		t.Fatal("invalid token produced a payload")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid token interrupted the request: HTTP %d", rec.Code)
	}

	// Valid token: payload lands in the context.
	token, err := GenerateToken(&Payload{ID: "u1", ClassID: "c1", Role: "student"}, testSecret, ClassAccessExpiration)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.ID != "u1" || got.ClassID != "c1" {
		t.Fatalf("payload from context = %+v", got)
	}
}
