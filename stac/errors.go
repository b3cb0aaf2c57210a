package stac

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNoHref indicates a link or asset without an href
	ErrNoHref = errors.New("missing href")
	// ErrAssetNotFound indicates an asset key absent from an item
	ErrAssetNotFound = errors.New("asset not found")
	// ErrDetached indicates an item or collection that has no API to talk to
	ErrDetached = errors.New("not attached to an API")
	// ErrMissingStartTime indicates a search without a start time
	ErrMissingStartTime = errors.New("search start time is required")
	// ErrInvalidTimeRange indicates a search whose start is after its end
	ErrInvalidTimeRange = errors.New("search start time is after end time")
)

// UnsupportedMethodError is returned when a pagination link asks for an HTTP
// method other than GET or POST.
type UnsupportedMethodError struct {
	Method string
	Href   string
}

// Error implements the error interface
func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported link method %q for %s", e.Method, e.Href)
}
