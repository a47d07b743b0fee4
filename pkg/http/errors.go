package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every rejected request. Minutes and
// Requires2FA are only populated by the lockout and two-factor rejections.
type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	Minutes     int    `json:"minutes,omitempty"`
	Requires2FA bool   `json:"requires2FA,omitempty"`
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON encodes body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteMessage writes {"message": msg}
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageResponse{Message: message})
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorResponse(w, statusCode, ErrorResponse{Error: errorCode, Message: message})
}

// WriteErrorResponse writes a fully populated error body
func WriteErrorResponse(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	WriteJSON(w, statusCode, resp)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

// WriteLocked writes a 423 with the remaining lock time in whole minutes
func WriteLocked(w http.ResponseWriter, message string, minutes int) {
	WriteErrorResponse(w, http.StatusLocked, ErrorResponse{
		Error:   "locked",
		Message: message,
		Minutes: minutes,
	})
}

// WriteTwoFactorRequired writes the 403 that tells clients to prompt for a code
func WriteTwoFactorRequired(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusForbidden, ErrorResponse{
		Error:       "two_factor_required",
		Message:     message,
		Requires2FA: true,
	})
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
