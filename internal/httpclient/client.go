package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client is an HTTP client with rate limiting and bearer-token authentication.
// It satisfies the Do-er interface expected by SDK clients.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	headers map[string]string
}

// Option configures the Client.
type Option func(*Client)

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(cl *Client) {
		if rps > 0 {
			cl.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.http.Timeout = d
		}
	}
}

// WithTokenSource authenticates every request with a bearer token from ts.
// The source is consulted per request, so credentials supplied while the
// process is running are picked up.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(cl *Client) {
		base := cl.http.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cl.http.Transport = &oauth2.Transport{Source: ts, Base: base}
	}
}

// WithTransport replaces the underlying round tripper. Apply it before
// WithTokenSource.
func WithTransport(rt http.RoundTripper) Option {
	return func(cl *Client) { cl.http.Transport = rt }
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(cl *Client) {
		if value != "" {
			cl.headers[key] = value
		}
	}
}

// New creates a new HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 120 * time.Second},
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response wraps an HTTP response body and status.
type Response struct {
	Body       []byte
	StatusCode int
	Status     string
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do sends req after waiting on the rate limiter.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	for k, v := range c.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return c.http.Do(req)
}

// PostJSON marshals body and POSTs it. Non-2xx statuses are returned as a
// Response, not an error; only transport failures are errors.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers map[string]string) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req, headers)
}

// FilePart is the file field of a multipart form.
type FilePart struct {
	Field     string
	Filename  string
	MediaType string
	Data      []byte
}

// PostMultipart POSTs a multipart form with plain fields and one file part.
// Status handling matches PostJSON.
func (c *Client) PostMultipart(ctx context.Context, url string, fields map[string]string, file FilePart, headers map[string]string) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", k, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
	h.Set("Content-Type", file.MediaType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("writing file data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, headers)
}

func (c *Client) send(req *http.Request, headers map[string]string) (*Response, error) {
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &Response{Body: body, StatusCode: resp.StatusCode, Status: resp.Status}, nil
}
