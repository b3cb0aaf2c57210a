// Package stac is a client for SpatioTemporal Asset Catalog APIs.
//
// An API is built from its persisted Document and a Client (usually a
// *transport.Transport). It lists the collections of a catalog and searches
// them:
//
//	api, err := stac.NewAPI(doc, transport.New(logger), logger)
//	results, err := api.SearchCollection(ctx, stac.SearchParams{
//		Collections: []string{"sentinel-2-l2a"},
//		StartTime:   start,
//		EndTime:     &end,
//	})
//
// Searches follow "next" links page by page, up to WithMaxPages pages. When
// the cap stops a search early SearchResults.Truncated is set. Items keep a
// reference to their API so their assets can be downloaded with the same
// credentials.
package stac
