package stac

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/remtav/stac-browser/transport"
)

// catalogServer serves canned responses keyed by request path and counts the
// requests it receives.
type catalogServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newCatalogServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *catalogServer {
	t.Helper()
	s := &catalogServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestAPI(t *testing.T, href string, opts ...Option) *API {
	t.Helper()
	api, err := NewAPI(Document{ID: "test", Title: "Test", Href: href}, transport.New(zerolog.Nop()), zerolog.Nop(), opts...)
	require.NoError(t, err)
	return api
}

func feature(id string) map[string]any {
	return map[string]any{
		"type":       "Feature",
		"id":         id,
		"bbox":       []float64{0, 0, 1, 1},
		"properties": map[string]any{"datetime": "2021-06-01T10:00:00Z"},
		"assets":     map[string]any{},
	}
}

func page(features []map[string]any, links ...map[string]any) map[string]any {
	if features == nil {
		features = []map[string]any{}
	}
	if links == nil {
		links = []map[string]any{}
	}
	return map[string]any{
		"type":     "FeatureCollection",
		"features": features,
		"links":    links,
	}
}

func nextLink(href, method string) map[string]any {
	return map[string]any{"rel": "next", "href": href, "method": method}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func itemIDs(items []*Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func featuresFor(prefix string, n int) []map[string]any {
	features := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		features = append(features, feature(fmt.Sprintf("%s-%d", prefix, i)))
	}
	return features
}
