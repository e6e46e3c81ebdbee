/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, WebSocket error envelopes and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the CustomError template for every application error code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrInvalidMessage:       {Code: ErrInvalidMessage, Message: "Malformed message: %s"},

	// 2xxx: Room and User Signaling Errors
	ErrRoomNotFound: {Code: ErrRoomNotFound, Message: "Room does not exist or has been closed.", Status: http.StatusNotFound},
	ErrUserNotFound: {Code: ErrUserNotFound, Message: "User does not exist.", Status: http.StatusNotFound},

	// 4xxx: Cover Upload Errors
	ErrStorageDisabled:  {Code: ErrStorageDisabled, Message: "Cover uploads are not enabled on this server.", Status: http.StatusNotImplemented},
	ErrFileTypeInvalid:  {Code: ErrFileTypeInvalid, Message: "Cover must be a JPEG, PNG, WebP or GIF image.", Status: http.StatusBadRequest},
	ErrFileSizeTooLarge: {Code: ErrFileSizeTooLarge, Message: "Cover is too large (max %d MB).", Status: http.StatusRequestEntityTooLarge},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "Storage request failed. Please try again.", Status: http.StatusBadGateway},
}
