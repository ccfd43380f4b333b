package adapter

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lanwatch/internal/domain"
)

const (
	allHostsPath = "/api/all"
	statusPath   = "/api/status/"

	// maxPayloadBytes bounds how much of a response body is read
	maxPayloadBytes = 16 << 20
)

// Client talks to a WatchYourLAN instance over its read-only JSON API
type Client struct {
	name    string
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the scanner at baseURL. A non-positive
// timeout leaves request deadlines to the caller's context.
func NewClient(name, baseURL string, timeout time.Duration) *Client {
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// BaseURL builds the scanner URL from host and port
func BaseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Name returns the source name
func (c *Client) Name() string {
	return c.name
}

// Endpoint returns the scanner base URL
func (c *Client) Endpoint() string {
	return c.baseURL
}

// Probe requests the status endpoint. Only a 200 counts as reachable.
func (c *Client) Probe(ctx context.Context) error {
	url := c.baseURL + statusPath
	resp, err := c.do(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))

	if resp.StatusCode != http.StatusOK {
		return &domain.HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return nil
}

// Fetch returns the raw body of the host list
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	url := c.baseURL + allHostsPath
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPayloadBytes))
		return nil, &domain.HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, &domain.ConnectError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ConnectError{URL: url, Err: err}
	}
	return resp, nil
}
