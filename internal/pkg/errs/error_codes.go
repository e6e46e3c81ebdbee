/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific relay or system errors both inside the server
and in the error envelopes sent back to WebSocket clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that a required field was missing or malformed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrInvalidMessage indicates that a WebSocket frame was not a valid envelope,
	// or that its payload did not match the shape expected for its type.
	ErrInvalidMessage = 1008
)

// 2xxx: Room and User Signaling Errors
const (
	// ErrRoomNotFound indicates that the room id is not present in the room registry.
	ErrRoomNotFound = 2103

	// ErrUserNotFound indicates that the user id is not present in the user registry.
	ErrUserNotFound = 2301
)

// 4xxx: Cover Upload Errors
const (
	// ErrStorageDisabled indicates that no object storage is configured on this server.
	ErrStorageDisabled = 4001

	// ErrFileTypeInvalid indicates that the cover file name or MIME type is not an allowed image type.
	ErrFileTypeInvalid = 4002

	// ErrFileSizeTooLarge indicates that the cover file exceeds the size limit.
	ErrFileSizeTooLarge = 4003
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the storage backend rejected a request.
	ErrFileStorageFailed = 5001
)
