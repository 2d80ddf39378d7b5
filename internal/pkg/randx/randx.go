/*
Package randx generates cryptographically secure random identifiers.

It produces fixed-length Base62 class codes, UUID message identifiers, and
validates the client-generated guest IDs used by unauthenticated participants.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	// Base62Chars is the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 character set.
	Base62Len = int64(len(Base62Chars))

	// ClassCodeLength is the fixed length of a generated class code.
	ClassCodeLength = 6

	// GuestIDPrefix is the required prefix of client-generated guest IDs.
	GuestIDPrefix = "guest_"

	// GuestIDRawLength is the fixed length of the Base62 part of a guest ID.
	GuestIDRawLength = 6
)

// ClassCode generates a Base62 class join code using crypto/rand.
func ClassCode() (string, error) {
	result := make([]byte, ClassCodeLength)

	for i := 0; i < ClassCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for class code: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID returns a UUID v4 string used as a chat message identifier.
func MessageID() string {
	return uuid.New().String()
}

// IsValidClassCode reports whether code has the expected length and alphabet.
func IsValidClassCode(code string) bool {
	if len(code) != ClassCodeLength {
		return false
	}

	for _, char := range code {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// GuestID generates a server-assigned guest identifier, e.g. "guest_x4T9kQ".
func GuestID() (string, error) {
	result := make([]byte, GuestIDRawLength)

	for i := 0; i < GuestIDRawLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for guest id: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return GuestIDPrefix + string(result), nil
}

// IsValidGuestID reports whether id is a well-formed client-generated guest ID.
func IsValidGuestID(id string) bool {
	if !strings.HasPrefix(id, GuestIDPrefix) {
		return false
	}

	rawID := id[len(GuestIDPrefix):]

	if len(rawID) != GuestIDRawLength {
		return false
	}

	for _, char := range rawID {
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// GuestDisplayName generates a fallback display name for guests who join
// without providing one, e.g. "Guest_x4T9kQ".
func GuestDisplayName() (string, error) {
	const randomLength = 6
	result := make([]byte, randomLength)

	for i := 0; i < randomLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for display name: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return "Guest_" + string(result), nil
}
