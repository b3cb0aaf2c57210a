package transport

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds connection setup and, for Request, the whole exchange
	DefaultTimeout = 5 * time.Second
	// DefaultUserAgent is sent with every request
	DefaultUserAgent = "stac-browser"

	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

// Option configures a Transport.
type Option func(*options)

// options holds configuration options for the Transport.
type options struct {
	timeout      time.Duration
	insecure     bool
	retries      int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	userAgent    string
	httpClient   *http.Client
}

func defaultOptions() *options {
	return &options{
		timeout:      DefaultTimeout,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
		userAgent:    DefaultUserAgent,
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithInsecureSkipVerify disables certificate verification.
// Only meant for debug mode against development catalogs.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *options) {
		o.insecure = insecure
	}
}

// WithRetries retries failed requests up to retries times with exponential
// backoff. The default is no retries.
func WithRetries(retries int, waitMin, waitMax time.Duration) Option {
	return func(o *options) {
		if retries >= 0 {
			o.retries = retries
		}
		if waitMin > 0 {
			o.retryWaitMin = waitMin
		}
		if waitMax > 0 {
			o.retryWaitMax = waitMax
		}
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) Option {
	return func(o *options) {
		if userAgent != "" {
			o.userAgent = userAgent
		}
	}
}

// WithHTTPClient replaces the client used for Request. Timeout, TLS and retry
// options are not applied to it.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// DownloadOption configures a single Download call.
type DownloadOption func(*downloadOptions)

// ProgressFunc receives the bytes written so far and the expected size (-1 or
// 0 when the server did not announce it).
type ProgressFunc func(complete, total int64)

type downloadOptions struct {
	progress ProgressFunc
	interval time.Duration
}

// WithProgress reports download progress every interval and once on completion.
func WithProgress(fn ProgressFunc, interval time.Duration) DownloadOption {
	return func(o *downloadOptions) {
		o.progress = fn
		if interval > 0 {
			o.interval = interval
		}
	}
}
