package cromwell

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// requestOptions enumerates the per-call knobs forwarded to the transport.
type requestOptions struct {
	timeout time.Duration
	header  http.Header
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

// WithRequestTimeout bounds this request only, overriding the client-wide
// timeout.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = d }
}

// WithHeader adds a header to this request only.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Add(key, value)
	}
}

func applyRequestOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// get issues a GET against base + path with terms appended as query
// parameters. template names the endpoint for tagging and metrics.
func (c *Client) get(ctx context.Context, path, template string, terms QueryTerms, opts []RequestOption) (*Envelope, error) {
	target := c.baseURL() + "/" + path
	if len(terms) > 0 {
		q := url.Values{}
		for k, v := range terms {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", template, err)
	}

	return c.do(req, template, applyRequestOptions(opts))
}

// postMultipart issues a POST against base + path with the given fields
// encoded as a multipart form body.
func (c *Client) postMultipart(ctx context.Context, path, template string, fields map[string]string, opts []RequestOption) (*Envelope, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("encode multipart field %q: %w", name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	target := c.baseURL() + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", template, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, template, applyRequestOptions(opts))
}

// do sends the request and runs the response through validation. Transport
// failures propagate wrapped; the underlying *url.Error stays reachable
// via errors.As.
func (c *Client) do(req *http.Request, template string, ro requestOptions) (*Envelope, error) {
	reqID := newRequestID()
	req.Header.Set("X-Request-Id", reqID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range ro.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	timeout := c.timeout
	if ro.timeout > 0 {
		timeout = ro.timeout
	}
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(req.Context(), timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	when := time.Now().UTC()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", template, err)
	}
	defer resp.Body.Close()

	duration := time.Since(when)
	observeRequest(template, req.Method, resp.StatusCode, duration)
	c.logger.Debug("engine request",
		"method", req.Method,
		"path", template,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"request_id", reqID,
	)

	return validate(resp, template, when)
}
