package download

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remtav/stac-browser/stac"
	"github.com/remtav/stac-browser/transport"
)

// searchItems runs a one page search against a fake catalog whose assets are
// served by the same server.
func searchItems(t *testing.T) []*stac.Item {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			asset := func(name string) map[string]any {
				return map[string]any{"href": server.URL + "/assets/" + name}
			}
			json.NewEncoder(w).Encode(map[string]any{
				"type": "FeatureCollection",
				"features": []map[string]any{
					{"id": "scene-1", "properties": map[string]any{}, "assets": map[string]any{
						"B04": asset("scene-1_B04.tif"), "B08": asset("scene-1_B08.tif"),
					}},
					{"id": "scene-2", "properties": map[string]any{}, "assets": map[string]any{
						"B04": asset("scene-2_B04.tif"), "B08": asset("missing.tif"),
					}},
				},
				"links": []any{},
			})
		case "/assets/missing.tif":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte("data:" + r.URL.Path))
		}
	}))
	t.Cleanup(server.Close)

	api, err := stac.NewAPI(stac.Document{ID: "fake", Href: server.URL}, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	results, err := api.SearchCollection(context.Background(), stac.SearchParams{StartTime: time.Now()})
	require.NoError(t, err)
	require.Len(t, results.Items, 2)
	return results.Items
}

func TestDownload(t *testing.T) {
	items := searchItems(t)
	dir := t.TempDir()

	var mu sync.Mutex
	var steps []int
	d := New(zerolog.Nop(), WithConcurrency(2), WithProgress(func(step, total int, status string) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 4, total)
		assert.NotEmpty(t, status)
		steps = append(steps, step)
	}))

	result := d.Download(context.Background(), items, dir)

	assert.Equal(t, 4, result.Requested)
	assert.Equal(t, []int{1, 2, 3, 4}, steps)

	require.Len(t, result.Downloaded, 3)
	assert.Equal(t, Downloaded{ItemID: "scene-1", Asset: "B04", Path: filepath.Join(dir, "scene-1", "scene-1_B04.tif")}, result.Downloaded[0])

	got, err := os.ReadFile(filepath.Join(dir, "scene-2", "scene-2_B04.tif"))
	require.NoError(t, err)
	assert.Equal(t, "data:/assets/scene-2_B04.tif", string(got))

	require.Len(t, result.Failed, 1)
	assert.Equal(t, "scene-2", result.Failed[0].ItemID)
	assert.Equal(t, "B08", result.Failed[0].Asset)

	var transportErr *transport.TransportError
	require.True(t, errors.As(result.Failed[0], &transportErr))
	assert.True(t, transportErr.IsNotFound())
}

func TestDownloadSelectedAssets(t *testing.T) {
	items := searchItems(t)
	dir := t.TempDir()

	result := New(zerolog.Nop(), WithAssets("B04", " ", "SCL")).Download(context.Background(), items, dir)

	assert.Equal(t, 2, result.Requested)
	assert.Len(t, result.Downloaded, 2)
	assert.Empty(t, result.Failed)

	_, err := os.Stat(filepath.Join(dir, "scene-1", "scene-1_B08.tif"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadNothing(t *testing.T) {
	result := New(zerolog.Nop()).Download(context.Background(), nil, t.TempDir())
	assert.Zero(t, result.Requested)
	assert.Empty(t, result.Downloaded)
	assert.Empty(t, result.Failed)
}

// sharedNameItems searches a fake catalog whose scene keeps every band in a
// file called data.tif, one directory per band.
func sharedNameItems(t *testing.T) []*stac.Item {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			json.NewEncoder(w).Encode(map[string]any{
				"type": "FeatureCollection",
				"features": []map[string]any{
					{"id": "scene", "properties": map[string]any{}, "assets": map[string]any{
						"B04": map[string]any{"href": server.URL + "/scene/B04/data.tif"},
						"B08": map[string]any{"href": server.URL + "/scene/B08/data.tif"},
					}},
				},
				"links": []any{},
			})
			return
		}
		w.Write([]byte("data:" + r.URL.Path))
	}))
	t.Cleanup(server.Close)

	api, err := stac.NewAPI(stac.Document{ID: "fake", Href: server.URL}, transport.New(zerolog.Nop()), zerolog.Nop())
	require.NoError(t, err)

	results, err := api.SearchCollection(context.Background(), stac.SearchParams{StartTime: time.Now()})
	require.NoError(t, err)
	require.Len(t, results.Items, 1)
	return results.Items
}

func TestDownloadSharedFileNames(t *testing.T) {
	items := sharedNameItems(t)
	dir := t.TempDir()

	result := New(zerolog.Nop()).Download(context.Background(), items, dir)

	assert.Equal(t, 2, result.Requested)
	assert.Empty(t, result.Failed)
	require.Len(t, result.Downloaded, 2)
	assert.NotEqual(t, result.Downloaded[0].Path, result.Downloaded[1].Path)

	for _, band := range []string{"B04", "B08"} {
		got, err := os.ReadFile(filepath.Join(dir, "scene", band+"_data.tif"))
		require.NoError(t, err)
		assert.Equal(t, "data:/scene/"+band+"/data.tif", string(got))
	}

	entries, err := os.ReadDir(filepath.Join(dir, "scene"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDownloadDuplicateItems(t *testing.T) {
	items := sharedNameItems(t)
	// The same scene returned twice, as two APIs serving one catalog would
	items = append(items, items[0])
	dir := t.TempDir()

	result := New(zerolog.Nop()).Download(context.Background(), items, dir)

	assert.Equal(t, 4, result.Requested)
	assert.Len(t, result.Downloaded, 2)
	require.Len(t, result.Failed, 2)
	for _, failed := range result.Failed {
		assert.ErrorIs(t, failed, ErrDuplicateDestination)
	}
}
