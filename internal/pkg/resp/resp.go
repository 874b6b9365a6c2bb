/*
Package resp provides helper functions for constructing and sending
standardized HTTP JSON responses.

It defines a unified JSON response structure, including a business code,
message, and optional data, and offers convenient wrappers for both success
and error responses.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"termio/internal/pkg/errs"
	"termio/internal/pkg/logx"
)

// JSONResponse defines the standardized JSON response structure returned to clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, see the errs package).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the Content-Type and sends the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)

		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":5001,"message":"Internal server error."}`))
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Error(err, "Error writing JSON response", "http_status", httpStatus)
	}
}

// RespondSuccess sends a 200 response with code 0 and the given data payload.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends the HTTP status and body corresponding to a *CustomError.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	status := customErr.Status
	if status == 0 {
		status = http.StatusOK
	}

	RespondJSON(w, r, status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
