package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-spatial/geom"
)

// TimeFormat is the layout of both endpoints of a search time range
const TimeFormat = "2006-01-02T15:04:05Z"

// SearchParams describes one item search.
type SearchParams struct {
	// Collections restricts the search to these collection ids
	Collections []string
	// BBox restricts the search to items intersecting the extent
	BBox *geom.Extent
	// StartTime is required
	StartTime time.Time
	// EndTime is optional. When nil only StartTime is sent.
	EndTime *time.Time
	// Query is an optional STAC query object, sent as is
	Query any
	// Limit is the page size, DefaultLimit when zero
	Limit int
	// OnNextPage is called once before every page after the first
	OnNextPage func(*API)
}

// SearchResults holds the items of every fetched page.
type SearchResults struct {
	Items []*Item
	// Pages is the number of pages fetched
	Pages int
	// Truncated reports that a next page existed beyond the page cap
	Truncated bool
}

type searchBody struct {
	Collections []string  `json:"collections"`
	BBox        []float64 `json:"bbox"`
	Time        string    `json:"time"`
	Limit       int       `json:"limit"`
	Query       any       `json:"query,omitempty"`
}

// FormatTimeRange renders a search time range in UTC. With a nil end only the
// start is returned, otherwise "<start>/<end>".
func FormatTimeRange(start time.Time, end *time.Time) string {
	if end == nil {
		return start.UTC().Format(TimeFormat)
	}
	return start.UTC().Format(TimeFormat) + "/" + end.UTC().Format(TimeFormat)
}

func (p SearchParams) body() (searchBody, error) {
	if p.StartTime.IsZero() {
		return searchBody{}, ErrMissingStartTime
	}
	if p.EndTime != nil && p.StartTime.After(*p.EndTime) {
		return searchBody{}, ErrInvalidTimeRange
	}

	body := searchBody{
		Collections: p.Collections,
		BBox:        []float64{},
		Time:        FormatTimeRange(p.StartTime, p.EndTime),
		Limit:       p.Limit,
		Query:       p.Query,
	}
	if body.Collections == nil {
		body.Collections = []string{}
	}
	if p.BBox != nil {
		body.BBox = []float64{p.BBox.MinX(), p.BBox.MinY(), p.BBox.MaxX(), p.BBox.MaxY()}
	}
	if body.Limit <= 0 {
		body.Limit = DefaultLimit
	}

	return body, nil
}

// SearchCollection posts a search to {href}/search and follows next links
// until the last page or the page cap. A transport failure on any page aborts
// the whole search.
func (a *API) SearchCollection(ctx context.Context, params SearchParams) (*SearchResults, error) {
	body, err := params.body()
	if err != nil {
		return nil, err
	}

	strategy, err := a.Auth()
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Strs("collections", body.Collections).
		Str("time", body.Time).
		Int("limit", body.Limit).
		Msg("Searching collections")

	raw, err := a.client.Request(ctx, strategy, a.href+"/search", body, nil)
	if err != nil {
		return nil, fmt.Errorf("search on %q failed: %w", a.id, err)
	}

	page, err := NewSearchResult(a, raw)
	if err != nil {
		return nil, fmt.Errorf("search on %q failed: %w", a.id, err)
	}

	results := &SearchResults{Items: page.Items(), Pages: 1}
	if next := page.Next(); next != nil {
		rest, err := a.LoadNextPage(ctx, *next, params.OnNextPage, 2, a.maxPages)
		if err != nil {
			return nil, err
		}
		results = a.concat(results, rest)
	}

	a.logger.Debug().
		Int("items", len(results.Items)).
		Int("pages", results.Pages).
		Bool("truncated", results.Truncated).
		Msg("Search finished")

	return results, nil
}

// LoadNextPage fetches the page behind link and, recursively, the pages that
// follow it. currentPage is the number of the page behind link; once it
// exceeds maxPages nothing is fetched and the result is marked truncated.
func (a *API) LoadNextPage(ctx context.Context, link Link, onNextPage func(*API), currentPage, maxPages int) (*SearchResults, error) {
	if currentPage > maxPages {
		a.logger.Warn().
			Int("max_pages", maxPages).
			Str("next", link.Href).
			Msg("Page limit reached, more results are available")
		return &SearchResults{Truncated: true}, nil
	}

	if link.Href == "" {
		return nil, fmt.Errorf("next link of %q: %w", a.id, ErrNoHref)
	}

	var payload any
	switch link.Method {
	case "", http.MethodGet:
	case http.MethodPost:
		payload = json.RawMessage("{}")
		if len(link.Body) > 0 {
			payload = link.Body
		}
	default:
		return nil, &UnsupportedMethodError{Method: link.Method, Href: link.Href}
	}

	if onNextPage != nil {
		onNextPage(a)
	}

	strategy, err := a.Auth()
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Int("page", currentPage).
		Str("method", link.Method).
		Str("href", link.Href).
		Msg("Loading next page")

	raw, err := a.client.Request(ctx, strategy, link.Href, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d of %q: %w", currentPage, a.id, err)
	}

	page, err := NewSearchResult(a, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %d of %q: %w", currentPage, a.id, err)
	}

	results := &SearchResults{Items: page.Items(), Pages: 1}
	if next := page.Next(); next != nil {
		rest, err := a.LoadNextPage(ctx, *next, onNextPage, currentPage+1, maxPages)
		if err != nil {
			return nil, err
		}
		results = a.concat(results, rest)
	}

	return results, nil
}

// concat appends the results of later pages to those of an earlier page in
// the configured order.
func (a *API) concat(earlier, later *SearchResults) *SearchResults {
	items := make([]*Item, 0, len(earlier.Items)+len(later.Items))
	if a.pageOrder == PageOrderReverse {
		items = append(items, later.Items...)
		items = append(items, earlier.Items...)
	} else {
		items = append(items, earlier.Items...)
		items = append(items, later.Items...)
	}

	return &SearchResults{
		Items:     items,
		Pages:     earlier.Pages + later.Pages,
		Truncated: later.Truncated,
	}
}
