package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors for provider operations.
var (
	// ErrNotFound indicates a record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrZoneNotFound indicates the requested zone does not exist at the provider.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrConflict indicates a record already exists with the same name, type, and target.
	ErrConflict = errors.New("record already exists")

	// ErrUnauthorized indicates authentication failed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrProviderUnavailable indicates the provider API is unreachable or failing.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrUnsupportedType indicates the provider cannot manage the record type.
	ErrUnsupportedType = errors.New("record type not supported by provider")

	// ErrBulkUnsupported indicates the provider has no bulk endpoint for the operation.
	ErrBulkUnsupported = errors.New("bulk operation not supported by provider")
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("configuration error: %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ErrConfigMissing creates an error for a missing required configuration field.
func ErrConfigMissing(field string) error {
	return &ConfigError{
		Field:   field,
		Message: "required but not set",
	}
}

// ErrConfigInvalid creates an error for an invalid configuration value.
func ErrConfigInvalid(field, value, message string) error {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// APIError is a failed provider API call. Status is the HTTP status code,
// or 0 when the request never produced a response.
type APIError struct {
	Provider  string
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return fmt.Sprintf("provider %s: %s: %s", e.Provider, e.Operation, msg)
	}
	return fmt.Sprintf("provider %s: %s: status %d: %s", e.Provider, e.Operation, e.Status, msg)
}

// Unwrap exposes the sentinel matching the status as well as the cause.
func (e *APIError) Unwrap() []error {
	var errs []error
	switch {
	case e.Status == http.StatusNotFound:
		errs = append(errs, ErrNotFound)
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		errs = append(errs, ErrUnauthorized)
	case e.Status == http.StatusConflict:
		errs = append(errs, ErrConflict)
	case e.Retryable():
		errs = append(errs, ErrProviderUnavailable)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether repeating the call may succeed: server errors,
// rate limiting and transport failures. Other client errors are final.
func (e *APIError) Retryable() bool {
	return e.Status == 0 || e.Status >= 500 || e.Status == http.StatusTooManyRequests
}

// NewAPIError creates an APIError for an HTTP response.
func NewAPIError(provider, operation string, status int, message string) error {
	return &APIError{
		Provider:  provider,
		Operation: operation,
		Status:    status,
		Message:   message,
	}
}

// WrapError wraps a transport error with provider context. Errors that
// already are an *APIError only get their provider and operation filled in.
func WrapError(provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Provider == "" {
			apiErr.Provider = provider
		}
		if apiErr.Operation == "" {
			apiErr.Operation = operation
		}
		return apiErr
	}
	return &APIError{
		Provider:  provider,
		Operation: operation,
		Err:       err,
	}
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsZoneNotFound returns true if the error indicates a zone was not found.
func IsZoneNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound)
}

// IsConflict returns true if the error indicates a record already exists.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsUnauthorized returns true if the error indicates authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsProviderUnavailable returns true if the error indicates the provider is unreachable.
func IsProviderUnavailable(err error) bool {
	return errors.Is(err, ErrProviderUnavailable)
}

// IsRetryable returns true if err is an APIError worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}
