package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a class access token.
// A token authorizes one identity to join exactly one live class, so the
// class id travels inside the token rather than in the request body.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, used for validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the unified participant identifier: a registered user ID or a
	// client-generated guest ID, depending on Role.
	ID string `json:"id"`

	// ClassID is the live class the token holder may join.
	ClassID string `json:"class_id"`

	// Role is the participant's role in the class ("teacher", "admin",
	// "hod", "dean", "student" or "guest").
	Role string `json:"role"`

	// DisplayName is the name shown to other participants.
	DisplayName string `json:"display_name"`
}
