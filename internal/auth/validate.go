package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ValidationError represents a specific type of API key validation failure.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	// ErrTypeNoKey indicates no API key was found.
	ErrTypeNoKey ValidationErrorType = iota
	// ErrTypeInvalidKey indicates the API key is invalid or revoked.
	ErrTypeInvalidKey
	// ErrTypeNetworkError indicates a network connectivity issue.
	ErrTypeNetworkError
	// ErrTypeQuotaExceeded indicates the API quota has been exceeded.
	ErrTypeQuotaExceeded
	// ErrTypeUnknown indicates an unknown error occurred.
	ErrTypeUnknown
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidateAPIKey verifies that the API key is valid by making a minimal API call.
// It returns nil if the key is valid, or a ValidationError with a specific type
// indicating the nature of the failure.
func ValidateAPIKey(ctx context.Context, client *genai.Client) error {
	log.Debug().Msg("Validating API key with Gemini API")

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, "gemini-3-flash-preview", genai.Text("hi"), nil)
	elapsed := time.Since(start)

	if err != nil {
		verr := classifyValidationError(err)
		log.Warn().
			Err(err).
			Dur("duration", elapsed).
			Msg("API key validation call failed")
		return verr
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "validation call returned an empty response",
		}
	}

	log.Debug().Dur("duration", elapsed).Msg("API key validated")
	return nil
}

// classifyValidationError maps an API error to a ValidationError type by
// inspecting the error text. The genai SDK does not expose typed errors for
// these cases.
func classifyValidationError(err error) *ValidationError {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "api_key_invalid"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "unauthenticated"):
		return &ValidationError{
			Type:    ErrTypeInvalidKey,
			Message: "API key is invalid or revoked",
			Err:     err,
		}
	case strings.Contains(msg, "quota"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "429"):
		return &ValidationError{
			Type:    ErrTypeQuotaExceeded,
			Message: "API quota exceeded",
			Err:     err,
		}
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network"):
		return &ValidationError{
			Type:    ErrTypeNetworkError,
			Message: "network error while validating API key",
			Err:     err,
		}
	default:
		return &ValidationError{
			Type:    ErrTypeUnknown,
			Message: "API key validation failed",
			Err:     err,
		}
	}
}
