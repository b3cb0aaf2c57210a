package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnexpectedStatus is the cause of a TransportError for non-2xx responses
var ErrUnexpectedStatus = errors.New("unexpected response status")

// TransportError represents a failed HTTP exchange: connection refused, DNS
// failure, TLS failure, timeout or a non-2xx status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying cause
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTimeout checks if the exchange hit a timeout
func (e *TransportError) IsTimeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsNotFound checks if the error indicates a not found response
func (e *TransportError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *TransportError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// DecodeError indicates a response body that is not valid JSON
type DecodeError struct {
	URL string
	Err error
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON response from %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedSchemeError is returned by Download for URLs that are not http(s)
type UnsupportedSchemeError struct {
	Scheme string
	URL    string
}

// Error implements the error interface
func (e *UnsupportedSchemeError) Error() string {
	return fmt.Sprintf("unsupported download scheme %q in %s", e.Scheme, e.URL)
}
