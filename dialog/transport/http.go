// Package transport performs the single synchronous HTTP call
// HttpResponseBranch nodes make, and matches the response against the
// three pattern-matcher families the node supports.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Request describes the single call an HttpResponseBranch node issues.
type Request struct {
	URL        string
	Method     string
	Headers    map[string]string
	Parameters map[string]string // encoded as query params for GET, form body otherwise
	Timeout    time.Duration
}

// Response carries back everything a Matcher needs.
type Response struct {
	StatusCode int
	Body       []byte
}

// IsSuccess reports whether the response falls in the 2xx range, the
// only range HttpResponseBranch will pattern-match against.
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues HTTP calls with a per-request timeout.
type Client struct {
	http *http.Client
}

// NewClient returns a Client with no default timeout; each Do call
// applies its own via Request.Timeout, matching the per-node
// configurability HttpResponseBranch needs.
func NewClient() *Client {
	return &Client{http: &http.Client{}}
}

// Do issues req and reads the full response body. A timeout (context
// deadline exceeded) is returned as-is so callers can distinguish it
// from other failures (spec §4.3: "On request timeout, transition to
// timeout_node_id").
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	method = strings.ToUpper(method)

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	url := req.URL
	var body io.Reader
	if len(req.Parameters) > 0 {
		if method == http.MethodGet {
			url += "?" + encodeParams(req.Parameters)
		} else {
			body = strings.NewReader(encodeParams(req.Parameters))
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return Response{}, fmt.Errorf("transport: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("transport: read response body: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func encodeParams(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}
