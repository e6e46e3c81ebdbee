/*
Package errs provides custom error types and application-level error code constants.

This file defines the CustomError struct, which implements the standard Go error interface
and carries a business code, a user-facing message and an HTTP status code, so the same
value can be rendered either as an HTTP response or as a WebSocket error envelope.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"signalroom/internal/pkg/logx"
)

// CustomError is the custom error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code used when the error is returned over HTTP.
	Status int
}

// Error implements the standard Go error interface.
func (e CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// NewError constructs a new *CustomError from a predefined error code.
// details are printf arguments for templates containing a verb. For ErrUnknown,
// a first detail of type error is logged instead. Unknown codes map to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		unknownErr := errorMap[ErrUnknown]
		return &CustomError{
			Code:    unknownErr.Code,
			Message: unknownErr.Message,
			Status:  unknownErr.Status,
		}
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	hasVerb := strings.Contains(customErr.Message, "%")

	switch {
	case code == ErrUnknown && len(details) > 0:
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
		}
	case len(details) > 0 && hasVerb:
		customErr.Message = fmt.Sprintf(customErr.Message, details...)
	case len(details) > 0:
		logx.Warn("Details provided for error, but message template has no formatting placeholders. Details ignored.",
			"code", code)
	case hasVerb:
		// template expects a detail that was not supplied
		customErr.Message = strings.TrimSpace(customErr.Message[:strings.Index(customErr.Message, "%")])
		customErr.Message = strings.TrimSuffix(customErr.Message, ":") + "."
	}

	return &customErr
}

// From converts any error into a *CustomError. A *CustomError anywhere in the
// chain is returned as is; everything else becomes ErrUnknown.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}
