package stac

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/blang/semver"
	"github.com/rs/zerolog"

	"github.com/remtav/stac-browser/auth"
	"github.com/remtav/stac-browser/transport"
)

// DefaultVersion is reported for catalogs that do not announce a stac_version
const DefaultVersion = "1.0.0-beta.2"

// Client is the transport an API talks through. *transport.Transport
// implements it.
type Client interface {
	Request(ctx context.Context, strategy auth.Strategy, rawURL string, data any, headers map[string]string) (json.RawMessage, error)
	Download(ctx context.Context, strategy auth.Strategy, rawURL, dest string, opts ...transport.DownloadOption) error
}

// Document is the persisted form of an API. Data and Collections are optional
// and hold the last loaded catalog content.
type Document struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Href        string            `json:"href"`
	Auth        *auth.Config      `json:"auth,omitempty"`
	Data        json.RawMessage   `json:"data,omitempty"`
	Collections []json.RawMessage `json:"collections,omitempty"`
}

type catalogData struct {
	StacVersion string            `json:"stac_version"`
	Links       []Link            `json:"links"`
	Collections []json.RawMessage `json:"collections"`
}

// API is the entry point to one STAC catalog. An API must not be modified
// concurrently; concurrent searches on a loaded API are safe.
type API struct {
	id          string
	title       string
	href        string
	authConfig  *auth.Config
	data        json.RawMessage
	catalog     catalogData
	collections []*Collection

	client    Client
	logger    zerolog.Logger
	maxPages  int
	pageOrder PageOrder
}

// NewAPI builds an API from its persisted document. The auth configuration
// is validated here so a misconfigured catalog fails before any request.
func NewAPI(doc Document, client Client, logger zerolog.Logger, opts ...Option) (*API, error) {
	if doc.Href == "" {
		return nil, fmt.Errorf("api %q: %w", doc.ID, ErrNoHref)
	}
	if _, err := auth.Parse(doc.Auth); err != nil {
		return nil, fmt.Errorf("api %q: %w", doc.ID, err)
	}

	a := &API{
		id:         doc.ID,
		title:      doc.Title,
		href:       strings.TrimRight(doc.Href, "/"),
		authConfig: cloneAuthConfig(doc.Auth),
		client:     client,
		logger:     logger.With().Str("api", doc.ID).Logger(),
		maxPages:   DefaultMaxPages,
		pageOrder:  PageOrderForward,
	}
	for _, opt := range opts {
		opt(a)
	}

	if len(doc.Data) > 0 {
		if err := a.setData(doc.Data); err != nil {
			return nil, fmt.Errorf("api %q: %w", doc.ID, err)
		}
	}
	if len(doc.Collections) > 0 {
		collections, err := a.parseCollections(doc.Collections)
		if err != nil {
			return nil, fmt.Errorf("api %q: %w", doc.ID, err)
		}
		a.collections = collections
	}

	return a, nil
}

// ID returns the identity of the API
func (a *API) ID() string { return a.id }

// Title returns the display title
func (a *API) Title() string { return a.title }

// Href returns the catalog root URL without a trailing slash
func (a *API) Href() string { return a.href }

// Data returns the last loaded /collections document, or nil
func (a *API) Data() json.RawMessage { return a.data }

// Auth builds the auth strategy from the stored configuration. The strategy
// is parsed again on every call.
func (a *API) Auth() (auth.Strategy, error) {
	strategy, err := auth.Parse(a.authConfig)
	if err != nil {
		return nil, fmt.Errorf("api %q: %w", a.id, err)
	}
	return strategy, nil
}

// Load fetches {href}/collections and replaces the catalog data and
// collections of the API.
func (a *API) Load(ctx context.Context) error {
	strategy, err := a.Auth()
	if err != nil {
		return err
	}

	raw, err := a.client.Request(ctx, strategy, a.href+"/collections", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to load collections of %q: %w", a.id, err)
	}

	if err := a.setData(raw); err != nil {
		return fmt.Errorf("failed to load collections of %q: %w", a.id, err)
	}
	collections, err := a.parseCollections(a.catalog.Collections)
	if err != nil {
		return fmt.Errorf("failed to load collections of %q: %w", a.id, err)
	}
	a.collections = collections

	a.logger.Debug().Int("collections", len(collections)).Msg("Loaded collections")
	return nil
}

func (a *API) setData(raw json.RawMessage) error {
	var catalog catalogData
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return fmt.Errorf("failed to decode catalog data: %w", err)
	}
	a.data = raw
	a.catalog = catalog
	return nil
}

func (a *API) parseCollections(raws []json.RawMessage) ([]*Collection, error) {
	collections := make([]*Collection, 0, len(raws))
	for _, raw := range raws {
		c, err := parseCollection(a, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, nil
}

// Links returns the links of the loaded catalog data
func (a *API) Links() []Link {
	return slices.Clone(a.catalog.Links)
}

// CollectionIDs returns the ids of every collection referenced by the links of
// the loaded catalog data.
func (a *API) CollectionIDs() []string {
	var ids []string
	for _, link := range a.catalog.Links {
		if id, ok := CollectionIDFromHref(link.Href); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Collections returns the collections sorted by title, case-insensitively,
// with ties broken by id.
func (a *API) Collections() []*Collection {
	collections := slices.Clone(a.collections)
	slices.SortStableFunc(collections, func(x, y *Collection) int {
		if c := strings.Compare(strings.ToLower(x.DisplayTitle()), strings.ToLower(y.DisplayTitle())); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return collections
}

// Collection returns the collection with the given id
func (a *API) Collection(id string) (*Collection, bool) {
	for _, c := range a.collections {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Version returns the STAC version announced by the catalog
func (a *API) Version() (semver.Version, error) {
	version := a.catalog.StacVersion
	if version == "" {
		version = DefaultVersion
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid stac_version %q: %w", version, err)
	}
	return v, nil
}

// Document returns the persisted form of the API
func (a *API) Document() (Document, error) {
	doc := Document{
		ID:    a.id,
		Title: a.title,
		Href:  a.href,
		Auth:  cloneAuthConfig(a.authConfig),
		Data:  a.data,
	}
	for _, c := range a.collections {
		raw, err := c.MarshalJSON()
		if err != nil {
			return Document{}, fmt.Errorf("failed to encode collection %q: %w", c.ID, err)
		}
		doc.Collections = append(doc.Collections, raw)
	}
	return doc, nil
}

// SortAPIs sorts apis by title, case-insensitively, with ties broken by id.
func SortAPIs(apis []*API) {
	slices.SortStableFunc(apis, func(x, y *API) int {
		if c := strings.Compare(strings.ToLower(x.title), strings.ToLower(y.title)); c != 0 {
			return c
		}
		return strings.Compare(x.id, y.id)
	})
}

func cloneAuthConfig(cfg *auth.Config) *auth.Config {
	if cfg == nil {
		return nil
	}
	clone := *cfg
	return &clone
}
