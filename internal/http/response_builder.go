// This file implements the builder used for every JSON response of the API,
// including the uniform error body.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes reported in the "error" field of failed responses.
const (
	CodeBadRequest       = "bad_request"
	CodeInvalidRange     = "invalid_range"
	CodeUnavailable      = "source_unavailable"
	CodeRateLimited      = "rate_limited"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeInternal         = "internal_error"
)

// ErrorBody is the payload of every non-2xx JSON response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Payload sets the value encoded as the response body.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// NoStore marks the response as not cacheable by clients.
func (b *JSONResponseBuilder) NoStore() *JSONResponseBuilder {
	return b.Header("Cache-Control", "no-store")
}

// Write encodes the payload and sends the built response. An encoding
// failure becomes a 500 with an error body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := json.Marshal(b.payload)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		b.statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: CodeInternal, Message: "failed to encode response"})
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Payload(ErrorBody{Error: code, Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// InvalidRangeError creates the 422 response shown instead of any view.
func InvalidRangeError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, CodeInvalidRange, message)
}

// UnavailableError creates a 503 response for an unreachable record source.
func UnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, message).
		Header("Retry-After", "30")
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}
