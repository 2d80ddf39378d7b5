/*
Package errs provides custom error types and application-level error code constants.

These codes identify specific business or system errors both internally and in
responses sent to clients of the class session server.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body is not well-formed JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate exceeded the configured limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Class and Session Business Logic Errors
const (
	// ErrClassNotFound indicates that no live class exists for the given id or code.
	ErrClassNotFound = 2101

	// ErrClassCodeExists indicates that a class with the requested code already exists.
	ErrClassCodeExists = 2102

	// ErrClassFull indicates that the class reached its participant limit.
	ErrClassFull = 2103

	// ErrClassEnded indicates that the class session is no longer running.
	ErrClassEnded = 2104

	// ErrNotClassTeacher indicates that a teacher-only operation was attempted
	// by a participant who does not control the class.
	ErrNotClassTeacher = 2201

	// ErrChatDisabled indicates that chat is currently disabled by class settings.
	ErrChatDisabled = 2202

	// ErrHandRaiseDisabled indicates that hand raising is disabled by class settings.
	ErrHandRaiseDisabled = 2203

	// ErrMessageTooLong indicates that a chat message exceeded the length limit.
	ErrMessageTooLong = 2204
)

// 3xxx: Identity and Security Errors
const (
	// ErrMissingToken indicates that no access token was supplied where one is required.
	ErrMissingToken = 3001

	// ErrInvalidToken indicates that the supplied access token failed validation.
	ErrInvalidToken = 3002

	// ErrPasswordRequired indicates that the class requires a join password.
	ErrPasswordRequired = 3003

	// ErrInvalidPassword indicates that the supplied join password is incorrect.
	ErrInvalidPassword = 3004

	// ErrGuestDetailsRequired indicates that an unauthenticated join needs a
	// guest display name (and optionally an email) before it can proceed.
	ErrGuestDetailsRequired = 3005

	// ErrUnauthorized indicates that the caller lacks a valid identity for the operation.
	ErrUnauthorized = 3006
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal server error.
	ErrUnknown = 5000

	// ErrStorageFailed indicates a failure talking to the recording storage backend.
	ErrStorageFailed = 5001
)
