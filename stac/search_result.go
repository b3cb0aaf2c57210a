package stac

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// SearchContext is the paging summary some catalogs attach to a page
type SearchContext struct {
	Returned int `json:"returned"`
	Limit    int `json:"limit,omitempty"`
	Matched  int `json:"matched,omitempty"`
}

// SearchResult is one page of an item search.
type SearchResult struct {
	Type     string         `json:"type"`
	Context  *SearchContext `json:"context,omitempty"`
	Features []Item         `json:"features"`
	Links    []Link         `json:"links,omitempty"`

	api *API
}

// NewSearchResult decodes one ItemCollection page returned by api
func NewSearchResult(api *API, raw json.RawMessage) (*SearchResult, error) {
	page := &SearchResult{}
	if err := json.Unmarshal(raw, page); err != nil {
		return nil, fmt.Errorf("failed to decode search page: %w", err)
	}
	page.api = api
	return page, nil
}

// API returns the API the page was fetched from
func (r *SearchResult) API() *API {
	return r.api
}

// Next returns the first link with rel "next", or nil on the last page.
func (r *SearchResult) Next() *Link {
	return findLink(r.Links, "next")
}

// Items builds a fresh item for every feature of the page. The bbox,
// properties, assets and links of each item are copies, so setting or
// deleting entries does not affect the page or other calls. Nested property
// values such as JSON objects are shared.
func (r *SearchResult) Items() []*Item {
	items := make([]*Item, 0, len(r.Features))
	for _, feature := range r.Features {
		item := feature
		item.BBox = slices.Clone(feature.BBox)
		item.Properties = maps.Clone(feature.Properties)
		item.Assets = maps.Clone(feature.Assets)
		item.Links = slices.Clone(feature.Links)
		item.api = r.api
		items = append(items, &item)
	}
	return items
}
