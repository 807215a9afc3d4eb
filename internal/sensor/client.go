package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// samplePath is the fixed endpoint Neurio sensors expose for live readings.
const samplePath = "/current-sample"

// defaultTimeout bounds a single fetch when the caller does not configure one.
const defaultTimeout = 10 * time.Second

// connection pooling limits sized for a single sensor polled sequentially
const (
	defaultMaxIdleConns    = 2
	defaultMaxConnsPerHost = 2
	// longer than any sane poll interval so the sensor connection is
	// reused across cycles rather than re-dialed
	defaultIdleConnTimeout = 60 * time.Second
)

// FetchInfo describes a completed (or failed) fetch attempt.
type FetchInfo struct {
	// StatusCode is the HTTP status code. Zero if the request failed before
	// a response was received.
	StatusCode int

	// Bytes is the number of body bytes streamed into the destination.
	Bytes int64

	// Latency is the total time taken by the request.
	Latency time.Duration
}

// Client is an HTTP client wrapper for polling a single sensor.
//
// The timeout is applied per request via context so a wedged sensor cannot
// stall the polling loop past one cycle. Keep-alives are enabled and idle
// connections are pooled, so back-to-back polls reuse one TCP connection.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a polling [Client] with the given per-request timeout.
// A non-positive timeout selects the 10 second default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		timeout: timeout,
		httpClient: &http.Client{
			// no global timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:      defaultMaxIdleConns,
				MaxConnsPerHost:   defaultMaxConnsPerHost,
				IdleConnTimeout:   defaultIdleConnTimeout,
				DisableKeepAlives: false,
			},
		},
	}
}

// Fetch performs one GET against url and streams the response body into dst.
//
// If credential is non-empty it is attached verbatim as
// "Authorization: Basic <credential>"; the caller supplies it pre-encoded.
// A non-2xx status is reported as an error, as is any failure while
// streaming the body (including dst refusing the write). The returned
// [FetchInfo] is populated as far as the attempt progressed.
func (c *Client) Fetch(ctx context.Context, url, credential string, dst io.Writer) (FetchInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchInfo{Latency: time.Since(start)}, fmt.Errorf("failed to create request: %w", err)
	}

	if credential != "" {
		req.Header.Set("Authorization", "Basic "+credential)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchInfo{Latency: time.Since(start)}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	info := FetchInfo{StatusCode: resp.StatusCode}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		info.Latency = time.Since(start)
		return info, fmt.Errorf("sensor returned status %d", resp.StatusCode)
	}

	info.Bytes, err = io.Copy(dst, resp.Body)
	info.Latency = time.Since(start)
	if err != nil {
		return info, fmt.Errorf("failed to read response body: %w", err)
	}

	return info, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil client. After Close, the client
// remains usable; new connections are established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// SampleURL builds the current-sample endpoint URL for a sensor address.
//
// The address is typically a bare IP or hostname ("192.168.86.31"),
// optionally with a port. A scheme is prepended if missing; any path on the
// address is replaced with the sensor's fixed sample path.
func SampleURL(address string) (string, error) {
	if strings.TrimSpace(address) == "" {
		return "", errors.New("sensor address is empty")
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid sensor address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("sensor address scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("sensor address %q has no host", address)
	}

	u.Path = samplePath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
