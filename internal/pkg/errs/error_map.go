package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
// Entries without an explicit Status default to HTTP 200 with a business code,
// matching how the web client consumes the response envelope.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Class and Session Business Logic Errors
	ErrClassNotFound:     {Code: ErrClassNotFound, Message: "Live class not found."},
	ErrClassCodeExists:   {Code: ErrClassCodeExists, Message: "Class code already exists."},
	ErrClassFull:         {Code: ErrClassFull, Message: "This class is full."},
	ErrClassEnded:        {Code: ErrClassEnded, Message: "This class has ended."},
	ErrNotClassTeacher:   {Code: ErrNotClassTeacher, Message: "Only the class teacher can do that."},
	ErrChatDisabled:      {Code: ErrChatDisabled, Message: "Chat is disabled in this class."},
	ErrHandRaiseDisabled: {Code: ErrHandRaiseDisabled, Message: "Hand raising is disabled in this class."},
	ErrMessageTooLong:    {Code: ErrMessageTooLong, Message: "Message is too long."},

	// 3xxx: Identity and Security Errors
	ErrMissingToken:         {Code: ErrMissingToken, Message: "An access token is required to join this class.", Status: http.StatusUnauthorized},
	ErrInvalidToken:         {Code: ErrInvalidToken, Message: "Your access token is invalid or expired.", Status: http.StatusUnauthorized},
	ErrPasswordRequired:     {Code: ErrPasswordRequired, Message: "This class requires a password."},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Incorrect class password."},
	ErrGuestDetailsRequired: {Code: ErrGuestDetailsRequired, Message: "Please provide your name to join as a guest."},
	ErrUnauthorized:         {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:       {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed: {Code: ErrStorageFailed, Message: "Recording storage is unavailable. Please try again later."},
}
