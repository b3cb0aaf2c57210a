// Package download fetches the assets of search results to a local directory.
package download

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/remtav/stac-browser/stac"
)

// DefaultConcurrency is the number of assets downloaded at once
const DefaultConcurrency = 4

// ErrDuplicateDestination indicates an asset that would overwrite the file of
// another asset of the same run, for instance the same item returned by two
// APIs.
var ErrDuplicateDestination = errors.New("destination already used by another asset")

// ProgressFunc is called after every asset with the number of finished
// assets, the total and a short status line.
type ProgressFunc func(step, total int, status string)

// Option configures a Downloader.
type Option func(*Downloader)

// WithConcurrency sets how many assets are downloaded at once.
func WithConcurrency(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithAssets restricts downloads to the given asset keys. By default every
// asset of an item is downloaded.
func WithAssets(keys ...string) Option {
	return func(d *Downloader) {
		for _, key := range keys {
			if key = strings.TrimSpace(key); key != "" {
				d.assets = append(d.assets, key)
			}
		}
	}
}

// WithProgress sets the progress callback. Calls are serialized.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Downloader) {
		d.onProgress = fn
	}
}

// Downloader downloads item assets concurrently
type Downloader struct {
	concurrency int
	assets      []string
	onProgress  ProgressFunc
	logger      zerolog.Logger
}

// New creates a Downloader
func New(logger zerolog.Logger, opts ...Option) *Downloader {
	d := &Downloader{
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result summarizes a download run
type Result struct {
	Requested  int
	Downloaded []Downloaded
	Failed     []AssetError
}

// Downloaded describes one stored asset
type Downloaded struct {
	ItemID string
	Asset  string
	Path   string
}

// AssetError contains information about a failed asset download
type AssetError struct {
	ItemID string
	Asset  string
	Err    error
}

// Error implements the error interface
func (e AssetError) Error() string {
	return fmt.Sprintf("failed to download asset %s of item %s: %v", e.Asset, e.ItemID, e.Err)
}

// Unwrap returns the underlying cause
func (e AssetError) Unwrap() error {
	return e.Err
}

type task struct {
	item *stac.Item
	key  string
}

// tasks lists the assets to fetch, item by item, keys sorted. Assets whose
// destination is already taken are returned as failures.
func (d *Downloader) tasks(items []*stac.Item, dir string) ([]task, []AssetError) {
	var tasks []task
	var rejected []AssetError
	destinations := make(map[string]string)

	for _, item := range items {
		for _, key := range item.AssetKeys() {
			if len(d.assets) > 0 && !slices.Contains(d.assets, key) {
				continue
			}

			// Path errors are reported by the download itself
			if dest, err := item.AssetPath(key, dir); err == nil {
				if owner, taken := destinations[dest]; taken {
					rejected = append(rejected, AssetError{
						ItemID: item.ID,
						Asset:  key,
						Err:    fmt.Errorf("%w: %s (%s)", ErrDuplicateDestination, dest, owner),
					})
					continue
				}
				destinations[dest] = item.ID + "/" + key
			}

			tasks = append(tasks, task{item: item, key: key})
		}
	}
	return tasks, rejected
}

// Download stores the selected assets of items under
// <dir>/<item id>/<asset file>. A failed asset does not stop the others; every
// failure is reported in the result.
func (d *Downloader) Download(ctx context.Context, items []*stac.Item, dir string) Result {
	tasks, rejected := d.tasks(items, dir)
	result := Result{
		Requested: len(tasks) + len(rejected),
		Failed:    rejected,
	}
	if result.Requested == 0 {
		return result
	}
	for _, r := range rejected {
		d.logger.Warn().
			Err(r.Err).
			Str("item", r.ItemID).
			Str("asset", r.Asset).
			Msg("Skipping asset")
	}

	d.logger.Info().
		Int("items", len(items)).
		Int("assets", len(tasks)).
		Str("dir", dir).
		Msg("Starting downloads")

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	var mu sync.Mutex
	step := len(rejected)

	for _, t := range tasks {
		g.Go(func() error {
			path, err := t.item.DownloadAsset(ctx, t.key, dir)

			mu.Lock()
			defer mu.Unlock()

			step++
			status := fmt.Sprintf("downloaded %s/%s", t.item.ID, t.key)
			if err != nil {
				status = fmt.Sprintf("failed %s/%s", t.item.ID, t.key)
				result.Failed = append(result.Failed, AssetError{ItemID: t.item.ID, Asset: t.key, Err: err})
				d.logger.Warn().
					Err(err).
					Str("item", t.item.ID).
					Str("asset", t.key).
					Msg("Failed to download asset")
			} else {
				result.Downloaded = append(result.Downloaded, Downloaded{ItemID: t.item.ID, Asset: t.key, Path: path})
			}

			if d.onProgress != nil {
				d.onProgress(step, result.Requested, status)
			}
			// Don't stop on individual errors
			return nil
		})
	}

	g.Wait()

	slices.SortFunc(result.Downloaded, func(a, b Downloaded) int {
		return strings.Compare(a.ItemID+"/"+a.Asset, b.ItemID+"/"+b.Asset)
	})
	slices.SortFunc(result.Failed, func(a, b AssetError) int {
		return strings.Compare(a.ItemID+"/"+a.Asset, b.ItemID+"/"+b.Asset)
	})

	d.logger.Info().
		Int("downloaded", len(result.Downloaded)).
		Int("failed", len(result.Failed)).
		Msg("Downloads finished")

	return result
}
