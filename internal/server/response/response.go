// Package response provides the {data, error} envelope every hubmap API
// endpoint answers with.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/hubmap/pkg/errors"
)

// Error codes carried in the envelope.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeFetchFailed        = "FETCH_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// Partial creates a response that carries data together with an error,
// used when some categories of an "all" query failed to load.
func Partial(data any, code, message, details string) Response {
	resp := Fail(code, message, details)
	resp.Data = data
	return resp
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding failure cannot be reported.
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail(CodeBadRequest, message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail(CodeNotFound, message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		CodeMethodNotAllowed,
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// RateLimited writes a 429 error response.
func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, Fail(CodeRateLimited, "Rate limit exceeded", message))
}

// FetchFailed writes a 502 error response for an upstream registry failure.
func FetchFailed(w http.ResponseWriter, err error) {
	JSON(w, http.StatusBadGateway, Fail(CodeFetchFailed, "Upstream fetch failed", err.Error()))
}

// InternalError writes a 500 error response without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		CodeInternal,
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail(CodeServiceUnavailable, "Service unavailable", message))
}

// StatusFor maps a typed error to its HTTP status and envelope code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.IsValidationError(err):
		return http.StatusBadRequest, CodeBadRequest
	case errors.IsFetchFailed(err):
		return http.StatusBadGateway, CodeFetchFailed
	case errors.IsRateLimited(err):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.IsSourceUnavailable(err):
		return http.StatusBadGateway, CodeFetchFailed
	case errors.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound
	case errors.IsCanceled(err):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// ErrorFromType maps typed errors to appropriate HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	switch code {
	case CodeBadRequest:
		BadRequest(w, err.Error(), "")
	case CodeRateLimited:
		RateLimited(w, err.Error())
	case CodeFetchFailed:
		FetchFailed(w, err)
	case CodeNotFound:
		NotFound(w, err.Error(), "")
	case CodeServiceUnavailable:
		ServiceUnavailable(w, err.Error())
	default:
		JSON(w, status, Fail(code, "Internal server error", "An unexpected error occurred"))
	}
}
