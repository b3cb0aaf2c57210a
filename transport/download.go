package transport

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cavaliercoder/grab"

	"github.com/remtav/stac-browser/auth"
)

const defaultProgressInterval = time.Second

// Download streams the resource at rawURL into the file dest. Only http and
// https URLs are supported; any other scheme yields *UnsupportedSchemeError.
// An existing file at dest is overwritten.
func (t *Transport) Download(ctx context.Context, strategy auth.Strategy, rawURL, dest string, opts ...DownloadOption) error {
	o := &downloadOptions{interval: defaultProgressInterval}
	for _, opt := range opts {
		opt(o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse download url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return &UnsupportedSchemeError{Scheme: u.Scheme, URL: rawURL}
	}

	if strategy == nil {
		strategy = auth.None{}
	}
	authenticated, err := strategy.Authenticate(auth.Request{URL: rawURL})
	if err != nil {
		return fmt.Errorf("failed to authenticate download: %w", err)
	}

	req, err := grab.NewRequest(dest, authenticated.URL)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	for key, value := range authenticated.Headers {
		req.HTTPRequest.Header.Set(key, value)
	}

	t.logger.Debug().Str("url", rawURL).Str("dest", dest).Msg("Starting download")

	resp := t.grab.Do(req)
	if o.progress != nil {
		watchProgress(resp, o.progress, o.interval)
	}

	if err := resp.Err(); err != nil {
		downloadErr := &TransportError{Op: "download", URL: rawURL, Err: err}
		if resp.HTTPResponse != nil {
			downloadErr.StatusCode = resp.HTTPResponse.StatusCode
		}
		return downloadErr
	}

	t.logger.Debug().
		Str("url", rawURL).
		Str("dest", resp.Filename).
		Int64("bytes", resp.BytesComplete()).
		Msg("Download complete")

	return nil
}

// watchProgress reports progress on every tick until the transfer ends
func watchProgress(resp *grab.Response, fn ProgressFunc, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fn(resp.BytesComplete(), resp.Size)
		case <-resp.Done:
			fn(resp.BytesComplete(), resp.Size)
			return
		}
	}
}
