// Package errors provides the typed error taxonomy shared by the
// provider clients and the transfer engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// MinErrorStatusCode is the minimum HTTP status code considered an error.
const MinErrorStatusCode = 400

// Sentinels surfaced by the destination client for idempotent retries
// of previously partial runs.
var (
	// ErrZoneExists reports a create-zone call for a zone that already
	// exists; callers look the zone up by name instead of failing.
	ErrZoneExists = errors.New("zone already exists")

	// ErrRecordExists reports a create-record call for a record that
	// already exists; callers treat it as success.
	ErrRecordExists = errors.New("dns record already exists")

	// ErrZoneNotFound reports a zone lookup that matched nothing.
	ErrZoneNotFound = errors.New("zone not found")
)

// ValidationError reports input rejected before any request was made,
// such as a malformed domain name or record.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ProviderHTTPError represents a non-2xx response from a provider API.
type ProviderHTTPError struct {
	Provider   string
	StatusCode int
	Status     string
	Body       string
	Message    string
}

// Error implements the error interface.
func (e *ProviderHTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: HTTP error (%d %s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: HTTP error: %d %s", e.Provider, e.StatusCode, e.Status)
}

// SchemaError reports a provider response whose shape did not match the
// expected structure.
type SchemaError struct {
	Provider string
	Endpoint string
	Detail   string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape from %s: %s", e.Provider, e.Endpoint, e.Detail)
}

// ResourceLockError is the source provider's transient "resource is
// currently in use" contention state following a recent mutation on the
// same domain. It is retried inside the client and only surfaces when
// the retry budget is exhausted.
type ResourceLockError struct {
	Domain string
	Body   string
}

// Error implements the error interface.
func (e *ResourceLockError) Error() string {
	if e.Domain != "" {
		return fmt.Sprintf("resource lock on %s: %s", e.Domain, e.Body)
	}
	return fmt.Sprintf("resource lock: %s", e.Body)
}

// TimeoutError reports a polling loop (zone activation, lock clearance)
// that exhausted its budget.
type TimeoutError struct {
	Operation string
	Waited    string
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %s", e.Operation, e.Waited)
}

// IneligibleError reports a domain rejected by preflight; no mutation
// was attempted.
type IneligibleError struct {
	Domain  string
	Reasons []string
}

// Error implements the error interface.
func (e *IneligibleError) Error() string {
	return fmt.Sprintf("%s is not eligible for transfer: %v", e.Domain, e.Reasons)
}

// IsResourceLock reports whether err is (or wraps) a ResourceLockError.
func IsResourceLock(err error) bool {
	var lockErr *ResourceLockError
	return errors.As(err, &lockErr)
}

// IsProviderStatus reports whether err is a ProviderHTTPError with the
// given status code.
func IsProviderStatus(err error, statusCode int) bool {
	var httpErr *ProviderHTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == statusCode
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	return IsProviderStatus(err, http.StatusNotFound)
}
