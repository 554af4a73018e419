package inference

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

var (
	ErrNoAPIKey            = errors.New("inference: API key required")
	ErrNoModel             = errors.New("inference: model required")
	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrEmptyResponse means the model answered with no text at all.
	ErrEmptyResponse = errors.New("inference: empty response")
)

// APIError is a non-2xx answer from a model API, normalised across SDKs.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited reports a 429.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsUnauthorized reports a 401: a bad or revoked key.
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

// IsServerError reports a 5xx.
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode <= 599 }

// IsRetryable reports whether the same request may succeed later.
func (e *APIError) IsRetryable() bool { return e.IsRateLimited() || e.IsServerError() }

// IsRetryable reports whether err carries a retryable APIError.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.IsRetryable()
}

// ProviderError tags an error with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return "inference [" + e.Provider + "]: " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError tags err with provider. A nil err stays nil.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError collects one error per provider a Chain tried.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	switch n := len(e.Errors); n {
	case 0:
		return "inference chain: no providers tried"
	case 1:
		return "inference chain: " + e.Errors[0].Error()
	default:
		return fmt.Sprintf("inference chain: %d providers failed, last: %v", n, e.Errors[n-1])
	}
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error { return e.Errors }

// fromSDK maps go-openai and genai error types onto *APIError. Anything else
// is only tagged with the provider.
func fromSDK(provider string, err error) error {
	var (
		oaErr  *openai.APIError
		reqErr *openai.RequestError
		gErr   genai.APIError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &oaErr):
		return &APIError{StatusCode: oaErr.HTTPStatusCode, Message: oaErr.Message, Provider: provider}
	case errors.As(err, &reqErr):
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: reqErr.Error(), Provider: provider}
	case errors.As(err, &gErr):
		return &APIError{StatusCode: gErr.Code, Message: gErr.Message, Provider: provider}
	default:
		return WrapError(provider, err)
	}
}
