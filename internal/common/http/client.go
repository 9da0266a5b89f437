// Package http wraps the standard client for outbound storefront calls:
// every request gets a bounded timeout and a consistent User-Agent.
package http

import (
	"context"
	"net/http"
	"time"
)

const defaultUserAgent = "storefront-workers/1.0"

// Client enforces a bounded timeout on outbound calls and stamps requests
// with an identifying User-Agent when the caller has not set one.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}
}

// WithUserAgent returns a copy of the client that identifies as agent.
func (c *Client) WithUserAgent(agent string) *Client {
	clone := *c
	clone.userAgent = agent
	return &clone
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.stampUserAgent(req)
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	c.stampUserAgent(req)
	return c.httpClient.Do(req)
}

func (c *Client) stampUserAgent(req *http.Request) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
