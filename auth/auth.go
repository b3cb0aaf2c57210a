// Package auth implements the credential strategies applied to outgoing STAC
// API requests.
//
// A Strategy is selected from its serialized Config by the "type"
// discriminator:
//
//   - absent or empty: None, requests pass through untouched
//   - "query-parameter": QueryParameter, sets key=value on the URL query
//   - "bearer-token": BearerToken, sets the Authorization header
//
// Any other discriminator is rejected by Parse with an *UnknownTypeError.
package auth

import (
	"fmt"
	"maps"
	"net/url"
)

// Kind is the serialized discriminator of a Strategy
type Kind string

const (
	// KindNone is the empty discriminator
	KindNone Kind = ""
	// KindQueryParameter selects QueryParameter
	KindQueryParameter Kind = "query-parameter"
	// KindBearerToken selects BearerToken
	KindBearerToken Kind = "bearer-token"
)

// String returns the discriminator, or "none" for KindNone
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Config is the persisted form of a Strategy.
type Config struct {
	Type  string `json:"type" yaml:"type" mapstructure:"type"`
	Key   string `json:"key,omitempty" yaml:"key,omitempty" mapstructure:"key"`
	Value string `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
}

// Request is the part of an outgoing request a Strategy may rewrite.
type Request struct {
	URL     string
	Headers map[string]string
	Body    any
}

// Strategy injects credentials into a request.
type Strategy interface {
	// Authenticate returns the request with credentials applied. The input
	// request, including its header map, is never modified.
	Authenticate(req Request) (Request, error)

	// Kind returns the discriminator of the strategy
	Kind() Kind

	// Config returns the serialized form, nil for None
	Config() *Config
}

// Parse builds the Strategy described by cfg. A nil config or an empty type
// yields None.
func Parse(cfg *Config) (Strategy, error) {
	if cfg == nil {
		return None{}, nil
	}

	switch Kind(cfg.Type) {
	case KindNone:
		return None{}, nil
	case KindQueryParameter:
		return QueryParameter{Key: cfg.Key, Value: cfg.Value}, nil
	case KindBearerToken:
		return BearerToken{Token: cfg.Token}, nil
	default:
		return nil, &UnknownTypeError{Type: cfg.Type}
	}
}

// None leaves requests untouched.
type None struct{}

// Authenticate implements Strategy
func (None) Authenticate(req Request) (Request, error) {
	return req, nil
}

// Kind implements Strategy
func (None) Kind() Kind { return KindNone }

// Config implements Strategy
func (None) Config() *Config { return nil }

// QueryParameter adds a fixed query parameter to the request URL.
type QueryParameter struct {
	Key   string
	Value string
}

// Authenticate sets Key=Value on the URL query, replacing any existing values
// for Key. Applying it repeatedly yields the same URL.
func (a QueryParameter) Authenticate(req Request) (Request, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return Request{}, fmt.Errorf("failed to parse url %q: %w", req.URL, err)
	}

	query := u.Query()
	query.Set(a.Key, a.Value)
	u.RawQuery = query.Encode()

	return Request{
		URL:     u.String(),
		Headers: req.Headers,
		Body:    req.Body,
	}, nil
}

// Kind implements Strategy
func (QueryParameter) Kind() Kind { return KindQueryParameter }

// Config implements Strategy
func (a QueryParameter) Config() *Config {
	return &Config{Type: string(KindQueryParameter), Key: a.Key, Value: a.Value}
}

// BearerToken sends a token in the Authorization header.
type BearerToken struct {
	Token string
}

// Authenticate returns a copy of the headers with Authorization set.
func (a BearerToken) Authenticate(req Request) (Request, error) {
	headers := make(map[string]string, len(req.Headers)+1)
	maps.Copy(headers, req.Headers)
	headers["Authorization"] = "Bearer " + a.Token

	return Request{
		URL:     req.URL,
		Headers: headers,
		Body:    req.Body,
	}, nil
}

// Kind implements Strategy
func (BearerToken) Kind() Kind { return KindBearerToken }

// Config implements Strategy
func (a BearerToken) Config() *Config {
	return &Config{Type: string(KindBearerToken), Token: a.Token}
}
