// Package transport provides the shared HTTP client used by the registry
// sources: token authentication, outbound request pacing and JSON decoding
// into typed API errors.
package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
	"github.com/agentstation/hubmap/pkg/logging"
)

// Client performs authenticated, paced GET requests against one registry.
type Client struct {
	source    string
	http      *http.Client
	auth      Authenticator
	token     string
	limiter   *rate.Limiter
	userAgent string
	headers   map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sets the API token and enables Bearer authentication.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
		c.auth = authenticatorFor(token)
	}
}

// WithAuthenticator overrides how the token is applied.
func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) {
		if auth != nil {
			c.auth = auth
		}
	}
}

// WithRateLimit paces outbound requests; rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// New creates a transport client for the named source.
func New(source string, opts ...Option) *Client {
	c := &Client{
		source:    source,
		http:      &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:      &NoAuth{},
		userAgent: constants.UserAgent,
		headers:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the registry name used in errors and logs.
func (c *Client) Source() string {
	return c.source
}

// Get performs a GET request after waiting for the rate limiter.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, contextError(ctx, err)
		}
	}

	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, err)
		}
		return nil, &errors.APIError{
			Source:   c.source,
			Endpoint: url,
			Message:  "request failed",
			Err:      err,
		}
	}

	logging.Ctx(ctx).Debug().
		Str("source", c.source).
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Registry request")

	return resp, nil
}

// GetJSON performs a GET request and decodes a successful JSON body into target.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return c.DecodeResponse(resp, target)
}

// DecodeResponse decodes a JSON response into target, turning any non-2xx
// status into an *errors.APIError. The body is always closed.
func (c *Client) DecodeResponse(resp *http.Response, target any) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &errors.APIError{
			Source:     c.source,
			StatusCode: resp.StatusCode,
			Endpoint:   resp.Request.URL.String(),
			Message:    errorMessage(body, resp.Status),
		}
		if resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0" {
			apiErr.QuotaExhausted = true
		}
		return apiErr
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", c.source+" response", err)
	}
	return nil
}

// errorMessage extracts a registry's "message" or "error" field, falling
// back to the HTTP status text.
func errorMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return status
}

func contextError(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Join(errors.ErrTimeout, err)
	}
	return errors.Join(errors.ErrCanceled, err)
}
