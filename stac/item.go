package stac

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/geojson"

	"github.com/remtav/stac-browser/transport"
)

// Well-known item property names
const (
	PropertyDatetime   = "datetime"
	PropertyCloudCover = "eo:cloud_cover"
	PropertyPlatform   = "platform"
)

// Item is one searchable unit of a catalog, typically a single scene.
type Item struct {
	ID         string            `json:"id"`
	Collection string            `json:"collection,omitempty"`
	BBox       []float64         `json:"bbox,omitempty"`
	Geometry   *geojson.Geometry `json:"geometry,omitempty"`
	Properties map[string]any    `json:"properties"`
	Assets     map[string]Asset  `json:"assets"`
	Links      []Link            `json:"links,omitempty"`

	api *API
}

// Asset is a downloadable file referenced by an item
type Asset struct {
	Href  string   `json:"href"`
	Title string   `json:"title,omitempty"`
	Type  string   `json:"type,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// API returns the API the item was fetched from, or nil.
func (i *Item) API() *API {
	return i.api
}

// Datetime returns the acquisition time of the item
func (i *Item) Datetime() (time.Time, bool) {
	raw, ok := i.Properties[PropertyDatetime].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CloudCover returns the eo:cloud_cover percentage
func (i *Item) CloudCover() (float64, bool) {
	switch v := i.Properties[PropertyCloudCover].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// Platform returns the platform property, or an empty string
func (i *Item) Platform() string {
	platform, _ := i.Properties[PropertyPlatform].(string)
	return platform
}

// Extent returns the 2D bounding box of the item. Three dimensional boxes
// drop their elevation bounds.
func (i *Item) Extent() *geom.Extent {
	switch len(i.BBox) {
	case 4:
		return &geom.Extent{i.BBox[0], i.BBox[1], i.BBox[2], i.BBox[3]}
	case 6:
		return &geom.Extent{i.BBox[0], i.BBox[1], i.BBox[3], i.BBox[4]}
	default:
		return nil
	}
}

// AssetKeys returns the asset keys in sorted order
func (i *Item) AssetKeys() []string {
	keys := make([]string, 0, len(i.Assets))
	for key := range i.Assets {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// AssetPath returns where DownloadAsset stores the asset under dir. The file
// is named after the last segment of the asset href. When several assets of
// the item share that name, the asset key is prepended: <key>_<name>.
func (i *Item) AssetPath(key, dir string) (string, error) {
	asset, ok := i.Assets[key]
	if !ok {
		return "", fmt.Errorf("%w: %s in item %s", ErrAssetNotFound, key, i.ID)
	}
	if asset.Href == "" {
		return "", fmt.Errorf("asset %s of item %s: %w", key, i.ID, ErrNoHref)
	}

	name := assetFileName(key, asset.Href)
	for other, a := range i.Assets {
		if other != key && strings.EqualFold(assetFileName(other, a.Href), name) {
			name = key + "_" + name
			break
		}
	}

	return filepath.Join(dir, i.ID, name), nil
}

func assetFileName(key, href string) string {
	if u, err := url.Parse(href); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return key
}

// DownloadAsset downloads the asset stored under key into
// <dir>/<item id>/<file name> with the credentials of the item's API and
// returns the destination path.
func (i *Item) DownloadAsset(ctx context.Context, key, dir string, opts ...transport.DownloadOption) (string, error) {
	if i.api == nil {
		return "", fmt.Errorf("item %s: %w", i.ID, ErrDetached)
	}

	dest, err := i.AssetPath(key, dir)
	if err != nil {
		return "", err
	}

	strategy, err := i.api.Auth()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create item directory: %w", err)
	}

	if err := i.api.client.Download(ctx, strategy, i.Assets[key].Href, dest, opts...); err != nil {
		return "", fmt.Errorf("failed to download asset %s of item %s: %w", key, i.ID, err)
	}

	i.api.logger.Debug().
		Str("item", i.ID).
		Str("asset", key).
		Str("dest", dest).
		Msg("Downloaded asset")

	return dest, nil
}
