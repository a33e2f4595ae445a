package llm

import (
	"errors"
	"fmt"
)

// ErrorKind separates "could not reach the provider" from "the provider said no".
type ErrorKind string

const (
	KindUnavailable   ErrorKind = "provider_unavailable"
	KindErrorResponse ErrorKind = "provider_error_response"
)

// ErrorMarker prefixes every provider failure rendered into a transcript.
const ErrorMarker = "Error: "

// ProviderError is returned by every provider on network or API failure.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func Unavailable(provider string, err error) *ProviderError {
	return &ProviderError{Kind: KindUnavailable, Provider: provider, Err: err}
}

func ErrorResponse(provider string, status int, err error) *ProviderError {
	return &ProviderError{Kind: KindErrorResponse, Provider: provider, Status: status, Err: err}
}

// KindOf reports the ErrorKind carried by err, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Render converts a provider failure into the text shown as an assistant turn.
func Render(err error) string {
	return ErrorMarker + err.Error()
}
