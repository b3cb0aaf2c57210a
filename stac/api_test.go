package stac

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remtav/stac-browser/auth"
	"github.com/remtav/stac-browser/transport"
)

func TestNewAPI(t *testing.T) {
	client := transport.New(zerolog.Nop())

	t.Run("missing href", func(t *testing.T) {
		_, err := NewAPI(Document{ID: "x"}, client, zerolog.Nop())
		assert.ErrorIs(t, err, ErrNoHref)
	})

	t.Run("unknown auth type", func(t *testing.T) {
		_, err := NewAPI(Document{ID: "x", Href: "https://x", Auth: &auth.Config{Type: "basic"}}, client, zerolog.Nop())
		assert.ErrorIs(t, err, auth.ErrUnknownType)
	})

	t.Run("trailing slash trimmed", func(t *testing.T) {
		api, err := NewAPI(Document{ID: "x", Href: "https://x/v1/"}, client, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, "https://x/v1", api.Href())
	})

	t.Run("preloaded collections", func(t *testing.T) {
		api, err := NewAPI(Document{
			ID:          "x",
			Href:        "https://x",
			Collections: []json.RawMessage{json.RawMessage(`{"id":"naip","title":"NAIP"}`)},
		}, client, zerolog.Nop())
		require.NoError(t, err)
		require.Len(t, api.Collections(), 1)
		assert.Equal(t, "naip", api.Collections()[0].ID)
		assert.Same(t, api, api.Collections()[0].API())
	})

	t.Run("invalid data", func(t *testing.T) {
		_, err := NewAPI(Document{ID: "x", Href: "https://x", Data: json.RawMessage(`[1,2]`)}, client, zerolog.Nop())
		assert.Error(t, err)
	})
}

func TestAPIAuth(t *testing.T) {
	cfg := &auth.Config{Type: "bearer-token", Token: "secret"}
	api, err := NewAPI(Document{ID: "x", Href: "https://x", Auth: cfg}, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	// The API keeps its own copy of the configuration.
	cfg.Token = "changed"

	first, err := api.Auth()
	require.NoError(t, err)
	second, err := api.Auth()
	require.NoError(t, err)

	assert.Equal(t, auth.BearerToken{Token: "secret"}, first)
	assert.Equal(t, first, second)
}

func TestAPILoad(t *testing.T) {
	var serverURL string
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "k3y", r.URL.Query().Get("subscription-key"))
		writeJSON(t, w, map[string]any{
			"collections": []map[string]any{
				{"id": "sentinel-2-l2a", "title": "Sentinel-2 Level-2A"},
				{"id": "b", "title": "alpha"},
				{"id": "a", "title": "Alpha"},
				{"id": "untitled"},
			},
			"links": []map[string]any{
				{"rel": "self", "href": serverURL + "/collections"},
				{"rel": "child", "href": serverURL + "/collections/sentinel-2-l2a"},
				{"rel": "child", "href": serverURL + "/collections/a"},
			},
		})
	})
	serverURL = server.URL

	api, err := NewAPI(Document{
		ID:    "pc",
		Title: "Planetary Computer",
		Href:  server.URL,
		Auth:  &auth.Config{Type: "query-parameter", Key: "subscription-key", Value: "k3y"},
	}, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, api.Collections())

	require.NoError(t, api.Load(context.Background()))

	var ids []string
	for _, c := range api.Collections() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "b", "sentinel-2-l2a", "untitled"}, ids)
	assert.Equal(t, []string{"sentinel-2-l2a", "a"}, api.CollectionIDs())
	assert.Len(t, api.Links(), 3)

	c, ok := api.Collection("sentinel-2-l2a")
	require.True(t, ok)
	assert.Equal(t, "Sentinel-2 Level-2A", c.Title)

	version, err := api.Version()
	require.NoError(t, err)
	assert.Equal(t, DefaultVersion, version.String())
}

func TestAPILoadFailure(t *testing.T) {
	server := newCatalogServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	api := newTestAPI(t, server.URL)
	err := api.Load(context.Background())

	var transportErr *transport.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.IsUnauthorized())
}

func TestAPIVersion(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"default", `{}`, "1.0.0-beta.2", false},
		{"announced", `{"stac_version":"1.0.0"}`, "1.0.0", false},
		{"v prefix", `{"stac_version":"v0.9.0"}`, "0.9.0", false},
		{"garbage", `{"stac_version":"latest"}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, err := NewAPI(Document{ID: "x", Href: "https://x", Data: json.RawMessage(tt.data)}, transport.New(zerolog.Nop()), zerolog.Nop())
			require.NoError(t, err)

			version, err := api.Version()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, version.String())
		})
	}
}

func TestAPIDocumentRoundTrip(t *testing.T) {
	doc := Document{
		ID:    "es",
		Title: "Earth Search",
		Href:  "https://earth-search.aws.element84.com/v1",
		Auth:  &auth.Config{Type: "bearer-token", Token: "t"},
		Data:  json.RawMessage(`{"stac_version":"1.0.0","links":[{"rel":"child","href":"https://earth-search.aws.element84.com/v1/collections/naip"}]}`),
		Collections: []json.RawMessage{
			json.RawMessage(`{"id":"naip","title":"NAIP","extent":{"spatial":{"bbox":[[-125,24,-66,50]]}}}`),
		},
	}

	api, err := NewAPI(doc, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	got, err := api.Document()
	require.NoError(t, err)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	var decoded Document
	require.NoError(t, json.Unmarshal(raw, &decoded))

	again, err := NewAPI(decoded, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, api.ID(), again.ID())
	assert.Equal(t, api.Title(), again.Title())
	assert.Equal(t, api.Href(), again.Href())
	assert.Equal(t, api.CollectionIDs(), again.CollectionIDs())
	require.Len(t, decoded.Collections, 1)
	assert.JSONEq(t, string(doc.Collections[0]), string(decoded.Collections[0]))

	strategy, err := again.Auth()
	require.NoError(t, err)
	assert.Equal(t, auth.BearerToken{Token: "t"}, strategy)
}

func TestSortAPIs(t *testing.T) {
	client := transport.New(zerolog.Nop())
	newAPI := func(id, title string) *API {
		api, err := NewAPI(Document{ID: id, Title: title, Href: "https://" + id}, client, zerolog.Nop())
		require.NoError(t, err)
		return api
	}

	apis := []*API{newAPI("3", "planetary"), newAPI("2", "Earth"), newAPI("1", "earth")}
	SortAPIs(apis)

	var ids []string
	for _, api := range apis {
		ids = append(ids, api.ID())
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}
