// Package transport performs authenticated JSON requests and streaming asset
// downloads against STAC APIs.
//
// A Transport applies an auth.Strategy to every outgoing request, encodes
// request bodies as JSON, enforces a fixed timeout and a TLS verification mode
// chosen at construction time. Failures are reported as *TransportError
// (network, TLS, timeout, non-2xx status) or *DecodeError (body is not JSON).
//
// Requests are not retried unless the caller opts in with WithRetries.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cavaliercoder/grab"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/remtav/stac-browser/auth"
)

// Transport issues requests on behalf of STAC APIs. It is safe for concurrent
// use.
type Transport struct {
	httpClient *http.Client
	grab       *grab.Client
	userAgent  string
	logger     zerolog.Logger
}

// New creates a Transport
func New(logger zerolog.Logger, opts ...Option) *Transport {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	roundTripper := newRoundTripper(o)

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: roundTripper,
			Timeout:   o.timeout,
		}
		if o.retries > 0 {
			httpClient = newRetryingClient(httpClient, o, logger)
		}
	}

	// Downloads stream arbitrarily large assets, so only connection setup and
	// the wait for response headers are bounded.
	downloader := grab.NewClient()
	downloader.UserAgent = o.userAgent
	downloader.HTTPClient = &http.Client{Transport: roundTripper}

	return &Transport{
		httpClient: httpClient,
		grab:       downloader,
		userAgent:  o.userAgent,
		logger:     logger,
	}
}

func newRoundTripper(o *options) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   o.timeout,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   o.timeout,
		ResponseHeaderTimeout: o.timeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: o.insecure, //nolint:gosec // debug mode only
		},
	}
}

func newRetryingClient(base *http.Client, o *options, logger zerolog.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.HTTPClient = base
	client.RetryMax = o.retries
	client.RetryWaitMin = o.retryWaitMin
	client.RetryWaitMax = o.retryWaitMax
	client.Logger = retryLogger{logger: logger}
	return client.StandardClient()
}

// Request sends one authenticated request and returns the raw JSON response.
// A non-nil data is sent as a JSON body with POST, otherwise a bodyless GET is
// issued. headers are applied on top of the defaults.
func (t *Transport) Request(ctx context.Context, strategy auth.Strategy, rawURL string, data any, headers map[string]string) (json.RawMessage, error) {
	if strategy == nil {
		strategy = auth.None{}
	}

	authenticated, err := strategy.Authenticate(auth.Request{URL: rawURL, Headers: headers, Body: data})
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}

	method := http.MethodGet
	var body io.Reader
	var payload []byte
	if authenticated.Body != nil {
		payload, err = json.Marshal(authenticated.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		method = http.MethodPost
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, authenticated.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		req.ContentLength = int64(len(payload))
	}
	for key, value := range authenticated.Headers {
		req.Header.Set(key, value)
	}

	// rawURL is logged and reported instead of the authenticated URL, which
	// may carry a secret query parameter.
	t.logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Int("body_bytes", len(payload)).
		Msg("Making STAC API request")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: method, URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	t.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Msg("Received STAC API response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			Op:         method,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrUnexpectedStatus, snippet(raw)),
		}
	}

	var doc json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &DecodeError{URL: rawURL, Err: err}
	}

	return doc, nil
}

// snippet shortens a response body for error messages
func snippet(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}

// retryLogger adapts zerolog to retryablehttp.LeveledLogger
type retryLogger struct {
	logger zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}
