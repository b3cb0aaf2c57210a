package stac

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remtav/stac-browser/transport"
)

func TestFormatTimeRange(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 30, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   *time.Time
		want  string
	}{
		{"start only", start, nil, "2021-06-01T00:00:00Z"},
		{"range", start, &end, "2021-06-01T00:00:00Z/2021-06-30T23:59:59Z"},
		{"same instant", start, &start, "2021-06-01T00:00:00Z/2021-06-01T00:00:00Z"},
		{"converted to UTC", time.Date(2021, 6, 1, 2, 0, 0, 0, time.FixedZone("CEST", 2*3600)), nil, "2021-06-01T00:00:00Z"},
		{"sub-second precision dropped", time.Date(2021, 6, 1, 0, 0, 0, 999, time.UTC), nil, "2021-06-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeRange(tt.start, tt.end))
		})
	}
}

func TestSearchCollectionRequestBody(t *testing.T) {
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		params SearchParams
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "defaults",
			params: SearchParams{StartTime: start},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{}, body["collections"])
				assert.Equal(t, []any{}, body["bbox"])
				assert.Equal(t, "2021-06-01T00:00:00Z", body["time"])
				assert.Equal(t, float64(DefaultLimit), body["limit"])
				assert.NotContains(t, body, "query")
			},
		},
		{
			name: "all fields",
			params: SearchParams{
				Collections: []string{"sentinel-2-l2a", "landsat-c2-l2"},
				BBox:        &geom.Extent{-10, 40, 5, 52},
				StartTime:   start,
				EndTime:     &end,
				Query:       map[string]any{"eo:cloud_cover": map[string]any{"gte": 0, "lte": 20}},
				Limit:       100,
			},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{"sentinel-2-l2a", "landsat-c2-l2"}, body["collections"])
				assert.Equal(t, []any{-10.0, 40.0, 5.0, 52.0}, body["bbox"])
				assert.Equal(t, "2021-06-01T00:00:00Z/2021-06-30T00:00:00Z", body["time"])
				assert.Equal(t, 100.0, body["limit"])
				assert.Equal(t, map[string]any{"eo:cloud_cover": map[string]any{"gte": 0.0, "lte": 20.0}}, body["query"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/search", r.URL.Path)
				raw, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				require.NoError(t, json.Unmarshal(raw, &body))
				writeJSON(t, w, page(nil))
			})

			api := newTestAPI(t, server.URL)
			results, err := api.SearchCollection(context.Background(), tt.params)
			require.NoError(t, err)
			assert.Empty(t, results.Items)
			assert.Equal(t, 1, results.Pages)
			tt.check(t, body)
		})
	}
}

func TestSearchCollectionInvalidParams(t *testing.T) {
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, page(nil))
	})
	api := newTestAPI(t, server.URL)

	start := time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := api.SearchCollection(context.Background(), SearchParams{})
	assert.ErrorIs(t, err, ErrMissingStartTime)

	_, err = api.SearchCollection(context.Background(), SearchParams{StartTime: start, EndTime: &end})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	assert.Zero(t, server.requests.Load())
}

func TestSearchCollectionTwoPages(t *testing.T) {
	var serverURL string
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			writeJSON(t, w, page(
				[]map[string]any{feature("a"), feature("b")},
				nextLink(serverURL+"/search/page2", "GET"),
			))
		case "/search/page2":
			assert.Equal(t, http.MethodGet, r.Method)
			writeJSON(t, w, page([]map[string]any{feature("c")}))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	serverURL = server.URL

	tests := []struct {
		name  string
		order PageOrder
		want  []string
	}{
		{"front to back", PageOrderForward, []string{"a", "b", "c"}},
		{"later pages first", PageOrderReverse, []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, server.URL, WithPageOrder(tt.order))

			var calls int
			results, err := api.SearchCollection(context.Background(), SearchParams{
				StartTime: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
				OnNextPage: func(got *API) {
					calls++
					assert.Same(t, api, got)
				},
			})
			require.NoError(t, err)

			assert.Len(t, results.Items, 3)
			assert.Equal(t, tt.want, itemIDs(results.Items))
			assert.Equal(t, 1, calls)
			assert.Equal(t, 2, results.Pages)
			assert.False(t, results.Truncated)
			for _, item := range results.Items {
				assert.Same(t, api, item.API())
			}
		})
	}
}

func TestSearchCollectionPageCap(t *testing.T) {
	// Every page links back to the search endpoint.
	var serverURL string
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, page(featuresFor(r.Method, 1), nextLink(serverURL+"/search", "GET")))
	})
	serverURL = server.URL

	t.Run("default cap", func(t *testing.T) {
		server.requests.Store(0)
		api := newTestAPI(t, server.URL)

		var calls int
		results, err := api.SearchCollection(context.Background(), SearchParams{
			StartTime:  time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
			OnNextPage: func(*API) { calls++ },
		})
		require.NoError(t, err)

		assert.Equal(t, int32(DefaultMaxPages), server.requests.Load())
		assert.Equal(t, DefaultMaxPages-1, calls)
		assert.Len(t, results.Items, DefaultMaxPages)
		assert.Equal(t, DefaultMaxPages, results.Pages)
		assert.True(t, results.Truncated)
	})

	t.Run("custom cap", func(t *testing.T) {
		server.requests.Store(0)
		api := newTestAPI(t, server.URL, WithMaxPages(3))

		results, err := api.SearchCollection(context.Background(), SearchParams{
			StartTime: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		assert.Equal(t, int32(3), server.requests.Load())
		assert.Len(t, results.Items, 3)
		assert.True(t, results.Truncated)
	})

	t.Run("single page cap", func(t *testing.T) {
		server.requests.Store(0)
		api := newTestAPI(t, server.URL, WithMaxPages(1))

		results, err := api.SearchCollection(context.Background(), SearchParams{
			StartTime: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		assert.Equal(t, int32(1), server.requests.Load())
		assert.Len(t, results.Items, 1)
		assert.True(t, results.Truncated)
	})
}

func TestLoadNextPage(t *testing.T) {
	t.Run("beyond max pages fetches nothing", func(t *testing.T) {
		server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, page(nil))
		})
		api := newTestAPI(t, server.URL)

		var calls int
		results, err := api.LoadNextPage(context.Background(), Link{Href: server.URL + "/search", Method: "GET"},
			func(*API) { calls++ }, 11, 10)
		require.NoError(t, err)

		assert.Empty(t, results.Items)
		assert.True(t, results.Truncated)
		assert.Zero(t, calls)
		assert.Zero(t, server.requests.Load())
	})

	t.Run("POST link sends its body", func(t *testing.T) {
		server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			raw, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.JSONEq(t, `{"collections":["naip"],"token":"next:abc"}`, string(raw))
			writeJSON(t, w, page([]map[string]any{feature("x")}))
		})
		api := newTestAPI(t, server.URL)

		link := Link{
			Href:   server.URL + "/search",
			Rel:    "next",
			Method: "POST",
			Body:   json.RawMessage(`{"collections":["naip"],"token":"next:abc"}`),
		}
		results, err := api.LoadNextPage(context.Background(), link, nil, 2, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, itemIDs(results.Items))
	})

	t.Run("unsupported method", func(t *testing.T) {
		server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, page(nil))
		})
		api := newTestAPI(t, server.URL)

		_, err := api.LoadNextPage(context.Background(), Link{Href: server.URL, Method: "DELETE"}, nil, 2, 10)
		var methodErr *UnsupportedMethodError
		require.ErrorAs(t, err, &methodErr)
		assert.Equal(t, "DELETE", methodErr.Method)
		assert.Zero(t, server.requests.Load())
	})
}

func TestSearchCollectionTransportFailure(t *testing.T) {
	var serverURL string
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			writeJSON(t, w, page([]map[string]any{feature("a")}, nextLink(serverURL+"/page2", "GET")))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})
	serverURL = server.URL

	api := newTestAPI(t, server.URL)
	results, err := api.SearchCollection(context.Background(), SearchParams{
		StartTime: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.Nil(t, results)

	var transportErr *transport.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadGateway, transportErr.StatusCode)
}

func TestSearchCollectionDecodeFailure(t *testing.T) {
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Service Unavailable"))
	})

	api := newTestAPI(t, server.URL)
	_, err := api.SearchCollection(context.Background(), SearchParams{
		StartTime: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	var decodeErr *transport.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestParsePageOrder(t *testing.T) {
	order, err := ParsePageOrder("")
	require.NoError(t, err)
	assert.Equal(t, PageOrderForward, order)

	order, err = ParsePageOrder("reverse")
	require.NoError(t, err)
	assert.Equal(t, PageOrderReverse, order)

	_, err = ParsePageOrder("sideways")
	assert.Error(t, err)
}
