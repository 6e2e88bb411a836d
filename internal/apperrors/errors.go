// Package apperrors defines the error taxonomy shared by the HTTP surface,
// the OAuth coordinator and the Beltche API client.
package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered in JSON error bodies.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeExternalAPI  = "EXTERNAL_API_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// AppError is an operational error with a fixed HTTP status and code.
type AppError struct {
	// Status is the HTTP status this error maps to.
	Status int
	// Code is the machine readable error code.
	Code string
	// Message is safe to show to the caller.
	Message string

	// Service and UpstreamStatus are only set for external API failures.
	// UpstreamStatus is 0 when no response was received.
	Service        string
	UpstreamStatus int

	Err error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation reports malformed caller input.
func Validation(message string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: CodeValidation, Message: message}
}

// Authorization reports a missing, unknown or unrefreshable link token.
func Authorization(message string) *AppError {
	if message == "" {
		message = "Authorization required"
	}
	return &AppError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// NotFound reports an unknown resource or route.
func NotFound(resource string) *AppError {
	if resource == "" {
		resource = "Resource"
	}
	return &AppError{Status: http.StatusNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

// ExternalAPI reports a failed call to an upstream service after retries were exhausted.
func ExternalAPI(service string, upstreamStatus int, message string) *AppError {
	return &AppError{
		Status:         http.StatusBadGateway,
		Code:           CodeExternalAPI,
		Message:        message,
		Service:        service,
		UpstreamStatus: upstreamStatus,
	}
}

// RateLimit reports that the caller exceeded its request budget.
func RateLimit() *AppError {
	return &AppError{
		Status:  http.StatusTooManyRequests,
		Code:    CodeRateLimited,
		Message: "Too many requests, please try again later",
	}
}

// Internal wraps an unclassified error.
func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "An unexpected error occurred", Err: err}
}

// As extracts the *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsExternalAPI reports whether err is an external API failure.
func IsExternalAPI(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == CodeExternalAPI
}

// StatusOf returns the HTTP status err maps to; unclassified errors map to 500.
func StatusOf(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// Body is the JSON error body returned to HTTP callers.
type Body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON renders err as a JSON error body.
// Details of unclassified errors are only exposed when dev is true.
func WriteJSON(w http.ResponseWriter, err error, dev bool) {
	body := Body{Error: CodeInternal, Message: "An unexpected error occurred"}
	status := http.StatusInternalServerError

	if appErr, ok := As(err); ok && appErr.Code != CodeInternal {
		body = Body{Error: appErr.Code, Message: appErr.Message}
		status = appErr.Status
	} else if dev && err != nil {
		body.Message = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
