// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package cdn

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/titlepack/titlepack/lib/netutil"
)

// DefaultBaseURL is the public title CDN download endpoint.
const DefaultBaseURL = "https://nus.cdn.c.shop.nintendowifi.net/ccs/download/"

// DefaultMaxRecordSize bounds whole-record fetches. A metadata record
// with the maximum 0xFFFF content chunks plus certificates is a little
// over 3 MiB.
const DefaultMaxRecordSize int64 = 8 << 20

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "titlepack"

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to every path. Defaults to DefaultBaseURL.
	// Must be http or https.
	BaseURL string

	// HTTPClient is used for all requests. When nil, a client is built
	// from InsecureSkipVerify and ResponseHeaderTimeout. When set, those
	// two fields are ignored.
	HTTPClient *http.Client

	// InsecureSkipVerify disables TLS certificate verification for the
	// built-in client.
	InsecureSkipVerify bool

	// ResponseHeaderTimeout bounds the wait for response headers on the
	// built-in client. There is deliberately no whole-request timeout:
	// content streams can run for minutes. Zero means 30 seconds.
	ResponseHeaderTimeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// MaxRecordSize bounds Fetch. Defaults to DefaultMaxRecordSize.
	MaxRecordSize int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client fetches objects from the CDN. Safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	userAgent     string
	maxRecordSize int64
	logger        *slog.Logger
}

// NewClient validates config and returns a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("cdn: parsing base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("cdn: base URL must be http or https (got %q)", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("cdn: base URL %q has no host", baseURL)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(config.InsecureSkipVerify, config.ResponseHeaderTimeout)
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxRecordSize := config.MaxRecordSize
	if maxRecordSize <= 0 {
		maxRecordSize = DefaultMaxRecordSize
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:       baseURL,
		httpClient:    httpClient,
		userAgent:     userAgent,
		maxRecordSize: maxRecordSize,
		logger:        logger,
	}, nil
}

func newHTTPClient(insecureSkipVerify bool, headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		headerTimeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	if insecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in
	}
	return &http.Client{Transport: transport}
}

// BaseURL returns the normalised base URL (always ending in "/").
func (client *Client) BaseURL() string {
	return client.baseURL
}

// Fetch reads the whole object at path.
func (client *Client) Fetch(ctx context.Context, path string) ([]byte, error) {
	response, err := client.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	data, err := netutil.ReadLimited(response.Body, client.maxRecordSize)
	if err != nil {
		return nil, &TransportError{Path: path, StatusCode: response.StatusCode, Err: err}
	}
	client.logger.Debug("cdn record fetched", "path", path, "bytes", len(data))
	return data, nil
}

// FetchStream opens the object at path for streaming. The caller must
// close the returned body. Read errors on the body (including context
// cancellation) surface from Read.
func (client *Client) FetchStream(ctx context.Context, path string) (io.ReadCloser, error) {
	response, err := client.get(ctx, path)
	if err != nil {
		return nil, err
	}
	client.logger.Debug("cdn stream opened", "path", path, "content_length", response.ContentLength)
	return response.Body, nil
}

func (client *Client) get(ctx context.Context, path string) (*http.Response, error) {
	target := client.baseURL + strings.TrimLeft(path, "/")
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}
	request.Header.Set("User-Agent", client.userAgent)

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, &TransportError{Path: path, Err: err}
	}

	switch {
	case response.StatusCode >= 200 && response.StatusCode < 300:
		return response, nil
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
		netutil.DrainAndClose(response.Body)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	default:
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, &TransportError{
			Path:       path,
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", strings.TrimSpace(body)),
		}
	}
}
