package response

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// APIResponse is the standard response wrapper
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError represents an error response
type APIError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail describes one invalid field
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Meta contains pagination and other metadata. Page-based and
// offset-based listings fill in different fields.
type Meta struct {
	Page       int  `json:"page,omitempty"`
	PerPage    int  `json:"per_page,omitempty"`
	Limit      int  `json:"limit,omitempty"`
	Offset     *int `json:"offset,omitempty"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages,omitempty"`
}

// write encodes the envelope. Headers must be set before the status line.
func write(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func ok(status int) bool { return status >= 200 && status < 300 }

// JSON sends a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, APIResponse{Success: ok(status), Data: data})
}

// JSONWithMeta sends a list response with pagination metadata
func JSONWithMeta(w http.ResponseWriter, status int, data interface{}, meta *Meta) {
	write(w, status, APIResponse{Success: ok(status), Data: data, Meta: meta})
}

// Error sends an error envelope carrying a stable reason code
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// ValidationError sends a 400 listing every invalid field
func ValidationError(w http.ResponseWriter, details []ErrorDetail) {
	write(w, http.StatusBadRequest, APIResponse{Error: &APIError{
		Code:    "VALIDATION_FAILED",
		Message: "validation failed",
		Details: details,
	}})
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, "BAD_REQUEST", message)
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}

func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

func Forbidden(w http.ResponseWriter, message string) {
	Error(w, http.StatusForbidden, "FORBIDDEN", message)
}

// Unavailable sends a 503 asking the client to retry after the given delay
func Unavailable(w http.ResponseWriter, code, message string, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	Error(w, http.StatusServiceUnavailable, code, message)
}
