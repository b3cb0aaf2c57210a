package stac

import "fmt"

const (
	// DefaultMaxPages caps how many pages one search fetches, the first
	// page included.
	DefaultMaxPages = 10
	// DefaultLimit is the page size requested when none is given
	DefaultLimit = 50
)

// PageOrder controls how items of successive pages are concatenated
type PageOrder string

const (
	// PageOrderForward returns page 1 items first, then page 2, and so on.
	PageOrderForward PageOrder = "forward"
	// PageOrderReverse places later pages ahead of earlier ones.
	PageOrderReverse PageOrder = "reverse"
)

// ParsePageOrder converts a configuration value to a PageOrder. An empty
// value selects PageOrderForward.
func ParsePageOrder(s string) (PageOrder, error) {
	switch PageOrder(s) {
	case "", PageOrderForward:
		return PageOrderForward, nil
	case PageOrderReverse:
		return PageOrderReverse, nil
	default:
		return "", fmt.Errorf("unknown page order %q (expected %q or %q)", s, PageOrderForward, PageOrderReverse)
	}
}

// Option configures an API.
type Option func(*API)

// WithMaxPages sets the pagination ceiling of searches.
func WithMaxPages(maxPages int) Option {
	return func(a *API) {
		if maxPages > 0 {
			a.maxPages = maxPages
		}
	}
}

// WithPageOrder sets how items of successive pages are concatenated.
func WithPageOrder(order PageOrder) Option {
	return func(a *API) {
		if order != "" {
			a.pageOrder = order
		}
	}
}
