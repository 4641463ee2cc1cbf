// Package errors defines the service error taxonomy shared by every service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure independent of transport.
type ErrorCode string

const (
	CodeBadRequest         ErrorCode = "BAD_REQUEST"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	CodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeInternal           ErrorCode = "INTERNAL"
)

// Token failure reasons reported by the auth service.
const (
	ReasonExpired = "expired"
	ReasonInvalid = "invalid"
)

// ServiceError is an error carrying its HTTP mapping.
type ServiceError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"error"`
	HTTPStatus int                    `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Err        error                  `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails returns the error with an additional detail attached.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Reason returns the "reason" detail, if any.
func (e *ServiceError) Reason() string {
	if e.Details == nil {
		return ""
	}
	r, _ := e.Details["reason"].(string)
	return r
}

func newError(code ErrorCode, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

func BadRequest(message string) *ServiceError {
	return newError(CodeBadRequest, http.StatusBadRequest, message, nil)
}

// MissingField reports a required request field that was absent or empty.
func MissingField(field string) *ServiceError {
	return BadRequest(fmt.Sprintf("%s is required", field)).WithDetails("field", field)
}

func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Unauthorized"
	}
	return newError(CodeUnauthorized, http.StatusUnauthorized, message, nil)
}

// InvalidToken reports a malformed token or a bad signature.
func InvalidToken(err error) *ServiceError {
	return newError(CodeInvalidToken, http.StatusUnauthorized, "Invalid token", err).
		WithDetails("reason", ReasonInvalid)
}

// ExpiredToken reports a well-formed token whose expiry has passed.
func ExpiredToken(err error) *ServiceError {
	return newError(CodeTokenExpired, http.StatusUnauthorized, "Token has expired", err).
		WithDetails("reason", ReasonExpired)
}

func Forbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message, nil)
}

func NotFound(message string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, message, nil)
}

func Conflict(message string) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, message, nil)
}

func RateLimitExceeded(limit int, window string) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "Rate limit exceeded", nil).
		WithDetails("limit", limit).
		WithDetails("window", window)
}

// ServiceUnavailable reports that a downstream dependency could not be reached.
func ServiceUnavailable(service string, err error) *ServiceError {
	return newError(CodeServiceUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("%s service unavailable", service), err).WithDetails("service", service)
}

func Internal(message string, err error) *ServiceError {
	return newError(CodeInternal, http.StatusInternalServerError, message, err)
}

// FromStatus maps a downstream HTTP status to the matching service error.
func FromStatus(status int, message string) *ServiceError {
	if message == "" {
		message = http.StatusText(status)
	}
	switch status {
	case http.StatusBadRequest:
		return BadRequest(message)
	case http.StatusUnauthorized:
		return Unauthorized(message)
	case http.StatusForbidden:
		return Forbidden(message)
	case http.StatusNotFound:
		return NotFound(message)
	case http.StatusConflict:
		return Conflict(message)
	case http.StatusTooManyRequests:
		return newError(CodeRateLimited, status, message, nil)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return newError(CodeServiceUnavailable, http.StatusServiceUnavailable, message, nil)
	default:
		return newError(CodeInternal, http.StatusInternalServerError, message, nil)
	}
}

// GetServiceError extracts a ServiceError from an error chain.
func GetServiceError(err error) *ServiceError {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se
	}
	return nil
}

// HTTPStatus returns the HTTP status for err, 500 for unknown errors.
func HTTPStatus(err error) int {
	if se := GetServiceError(err); se != nil {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsUnauthorized reports whether err is any credential failure.
func IsUnauthorized(err error) bool {
	return HTTPStatus(err) == http.StatusUnauthorized
}

func IsForbidden(err error) bool { return HTTPStatus(err) == http.StatusForbidden }

func IsNotFound(err error) bool { return HTTPStatus(err) == http.StatusNotFound }

func IsConflict(err error) bool { return HTTPStatus(err) == http.StatusConflict }

// IsUnavailable reports whether err means a dependency was unreachable.
func IsUnavailable(err error) bool {
	se := GetServiceError(err)
	return se != nil && se.Code == CodeServiceUnavailable
}
