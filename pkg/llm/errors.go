package llm

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrorType classifies gateway failures.
type ErrorType string

const (
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeQuota     ErrorType = "quota"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error represents a structured LLM error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int // HTTP status code returned by the gateway, 0 if none
	Model      string
	Endpoint   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether a later attempt might succeed.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a new structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext creates a new structured LLM error with additional context.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// ClassifyStatus builds an Error from a known HTTP status. A zero status
// falls back to ClassifyError.
func ClassifyStatus(statusCode int, err error) *Error {
	var e *Error
	switch {
	case statusCode == 0:
		return ClassifyError(err)
	case statusCode == http.StatusTooManyRequests:
		e = NewError(ErrorTypeRateLimit, "rate limited", true, err)
	case statusCode == http.StatusPaymentRequired:
		e = NewError(ErrorTypeQuota, "usage limit reached", false, err)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case statusCode == http.StatusNotFound:
		e = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
	case statusCode >= 500:
		e = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		e = NewError(ErrorTypeUnknown, "llm error", false, err)
	}
	e.StatusCode = statusCode
	return e
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// ClassifyError categorizes an error whose status is not available as a
// typed field, using the error text.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	if m := statusCodePattern.FindStringSubmatch(errStr); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return ClassifyStatus(code, err)
		}
	}

	switch {
	case strings.Contains(lower, "rate limit"):
		return ClassifyStatus(http.StatusTooManyRequests, err)
	case strings.Contains(lower, "insufficient credits") || strings.Contains(lower, "payment required"):
		return ClassifyStatus(http.StatusPaymentRequired, err)
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "model") && (strings.Contains(lower, "not found") ||
		strings.Contains(lower, "does not exist")):
		return NewError(ErrorTypeModel, "model not found", false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return NewError(ErrorTypeEndpoint, "request timeout", true, err)
	}

	return NewError(ErrorTypeUnknown, "llm error", false, err)
}

// StatusCode returns the gateway HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.StatusCode
	}
	return 0
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
