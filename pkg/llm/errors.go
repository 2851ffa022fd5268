package llm

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorType categorizes LLM failures for retry and reporting decisions.
type ErrorType string

const (
	ErrorTypeEndpoint ErrorType = "endpoint" // Network/connectivity problems
	ErrorTypeAuth     ErrorType = "auth"     // Invalid or missing API key
	ErrorTypeModel    ErrorType = "model"    // Model not found or not available
	ErrorTypeRate     ErrorType = "rate"     // Rate limited by the provider
	ErrorTypeUnknown  ErrorType = "unknown"  // Anything else
)

// Error wraps an LLM failure with its classification.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm %s error (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm %s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether retrying the request might succeed.
// Satisfies the retry package's RetryableError interface.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ClassifyError converts a raw client error into a typed *Error.
// Already-classified errors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{
			Type:      ErrorTypeEndpoint,
			Message:   "endpoint unreachable: " + err.Error(),
			Retryable: true,
			Cause:     err,
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"):
		return &Error{
			Type:      ErrorTypeEndpoint,
			Message:   err.Error(),
			Retryable: true,
			Cause:     err,
		}
	}

	return &Error{
		Type:      ErrorTypeUnknown,
		Message:   err.Error(),
		Retryable: false,
		Cause:     err,
	}
}

func classifyAPIError(apiErr *openai.APIError, cause error) *Error {
	switch apiErr.HTTPStatusCode {
	case 401, 403:
		return &Error{
			Type:       ErrorTypeAuth,
			Message:    apiErr.Message,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  false,
			Cause:      cause,
		}
	case 404:
		return &Error{
			Type:       ErrorTypeModel,
			Message:    apiErr.Message,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  false,
			Cause:      cause,
		}
	case 429:
		return &Error{
			Type:       ErrorTypeRate,
			Message:    apiErr.Message,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  true,
			Cause:      cause,
		}
	case 500, 502, 503, 504:
		return &Error{
			Type:       ErrorTypeEndpoint,
			Message:    apiErr.Message,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  true,
			Cause:      cause,
		}
	default:
		return &Error{
			Type:       ErrorTypeUnknown,
			Message:    apiErr.Message,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  false,
			Cause:      cause,
		}
	}
}
