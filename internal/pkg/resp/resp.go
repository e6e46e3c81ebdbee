/*
Package resp provides helpers for sending standardized HTTP JSON responses.

Most endpoints answer with the {code, message, data} envelope; RespondJSON is also
used directly where a client expects a bare JSON document (the room listing).
*/
package resp

import (
	"encoding/json"
	"net/http"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/logx"
)

// JSONResponse is the standard response envelope.
type JSONResponse struct {
	// Code is 0 for success, otherwise an errs code.
	Code int `json:"code"`

	// Message is the client-facing status description.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the JSON headers and writes payload with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
			"path", r.URL.Path,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write JSON response", "path", r.URL.Path, "error", err.Error())
	}
}

// RespondSuccess sends data in a success envelope (HTTP 200).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends customErr in an error envelope with its HTTP status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
