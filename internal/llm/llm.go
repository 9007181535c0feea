// Package llm defines the completion capability the agents depend on,
// together with the normalized provider error taxonomy and rate limiting.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer performs one completion call: a system instruction plus a user message in,
// the assistant text out.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CompleterFunc adapts a plain function to the Completer interface.
type CompleterFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

// Options are bound to a Completer at construction.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// ErrorCode defines normalized error codes across providers
type ErrorCode string

const (
	ErrRateLimited    ErrorCode = "rate_limited"
	ErrOverloaded     ErrorCode = "overloaded"
	ErrTimeout        ErrorCode = "timeout"
	ErrAuth           ErrorCode = "auth"
	ErrInvalidRequest ErrorCode = "invalid_request"
	ErrModelNotFound  ErrorCode = "model_not_found"
	ErrContextLength  ErrorCode = "context_length_exceeded"
	ErrUnavailable    ErrorCode = "service_unavailable"
	ErrEmptyResponse  ErrorCode = "empty_response"
	ErrUnknown        ErrorCode = "unknown"
)

// ProviderError represents a normalized error from any provider
type ProviderError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// CodeForStatus maps an HTTP status from the completion service to an ErrorCode.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status == 401 || status == 403:
		return ErrAuth
	case status == 404:
		return ErrModelNotFound
	case status == 408 || status == 504:
		return ErrTimeout
	case status == 429:
		return ErrRateLimited
	case status == 529:
		return ErrOverloaded
	case status == 400 || status == 422:
		return ErrInvalidRequest
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrUnknown
	}
}

// NormalizeError converts any error into a ProviderError, leaving existing ones untouched.
func NormalizeError(err error) *ProviderError {
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Code: ErrTimeout, Message: err.Error(), Err: err}
	}

	return &ProviderError{
		Code:    ErrUnknown,
		Message: err.Error(),
		Err:     err,
	}
}
