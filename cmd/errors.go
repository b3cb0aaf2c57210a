package cmd

import (
	"errors"
	"fmt"

	"github.com/remtav/stac-browser/auth"
	"github.com/remtav/stac-browser/filter"
	"github.com/remtav/stac-browser/transport"
)

// userMessage turns an error into the short line shown to the user
func userMessage(err error) string {
	var transportErr *transport.TransportError
	if errors.As(err, &transportErr) {
		switch {
		case transportErr.IsTimeout():
			return fmt.Sprintf("timed out reaching %s", transportErr.URL)
		case transportErr.IsUnauthorized():
			return fmt.Sprintf("not authorized by %s (status %d), check the API credentials", transportErr.URL, transportErr.StatusCode)
		case transportErr.StatusCode != 0:
			return fmt.Sprintf("failed to reach %s: server answered with status %d", transportErr.URL, transportErr.StatusCode)
		}
		return fmt.Sprintf("failed to reach %s: %v", transportErr.URL, errors.Unwrap(transportErr))
	}

	var decodeErr *transport.DecodeError
	if errors.As(err, &decodeErr) {
		return fmt.Sprintf("%s did not answer with JSON", decodeErr.URL)
	}

	var schemeErr *transport.UnsupportedSchemeError
	if errors.As(err, &schemeErr) {
		return schemeErr.Error()
	}

	var authErr *auth.UnknownTypeError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("invalid auth configuration: %v", authErr)
	}

	var compileErr *filter.CompilationError
	if errors.As(err, &compileErr) {
		return fmt.Sprintf("invalid filter expression %q: %s", compileErr.Expression, compileErr.Reason)
	}

	return err.Error()
}
