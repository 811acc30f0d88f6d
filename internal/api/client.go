// Package api is the REST client for the backend: JSON bodies, bearer auth,
// tenant scoping for /core/ endpoints, and response envelope unwrapping.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riveredge/bulkport/internal/logging"
	"github.com/riveredge/bulkport/internal/perf"
)

// PathPrefix is prepended to every endpoint path.
const PathPrefix = "/api/v1"

// DefaultTimeout bounds a single request when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL  string
	Token    string
	TenantID string
	Timeout  time.Duration

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client

	// Monitor observes every request. May be nil.
	Monitor *perf.Monitor

	UserAgent string
}

// Client talks to one backend.
type Client struct {
	baseURL   *url.URL
	token     string
	tenantID  string
	timeout   time.Duration
	http      *http.Client
	monitor   *perf.Monitor
	userAgent string
}

// NewClient validates opts and builds a client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base URL %q: scheme must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "bulkport"
	}

	return &Client{
		baseURL:   base,
		token:     opts.Token,
		tenantID:  opts.TenantID,
		timeout:   timeout,
		http:      httpClient,
		monitor:   opts.Monitor,
		userAgent: userAgent,
	}, nil
}

// Do sends one request to PathPrefix+path and decodes the unwrapped response into out.
// out may be nil. body, when non-nil, is sent as JSON.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return c.do(ctx, method, PathPrefix+path, path, query, body, out)
}

func (c *Client) do(ctx context.Context, method, fullPath, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.roundTrip(ctx, method, fullPath, path, query, body, out)
	c.monitor.Observe(method+" "+path, time.Since(start), err)

	logger := logging.FromContext(ctx)
	event := logger.Debug()
	if err != nil {
		event = event.Err(err)
	}
	event.Ctx(ctx).
		Str("component", "api").
		Str("method", method).
		Str("path", path).
		Dur("duration", time.Since(start)).
		Msg("api request")
	return err
}

func (c *Client) roundTrip(
	ctx context.Context, method, fullPath, path string, query url.Values, body, out any,
) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + fullPath
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantID != "" && needsTenant(path) {
		req.Header.Set("X-Tenant-ID", c.tenantID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response of %s %s: %w", method, path, err)
	}

	var decoded any
	if len(bytes.TrimSpace(raw)) > 0 {
		if jsonErr := json.Unmarshal(raw, &decoded); jsonErr != nil {
			decoded = nil
		}
	}
	obj, _ := decoded.(map[string]any)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, path, obj),
		}
	}

	payload, err := unwrap(decoded, obj, method, path)
	if err != nil {
		return err
	}
	if out == nil || payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("re-encoding response of %s %s: %w", method, path, err)
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, path, err)
	}
	return nil
}

// unwrap strips the {success, data} and {code, message, data} envelopes. Bare JSON
// passes through.
func unwrap(decoded any, obj map[string]any, method, path string) (any, error) {
	if obj == nil {
		return decoded, nil
	}
	if success, ok := obj["success"].(bool); ok {
		if success {
			if data, has := obj["data"]; has {
				return data, nil
			}
			return decoded, nil
		}
		if _, has := obj["error"]; has {
			msg, _ := envelopeError(obj)
			return nil, &Error{Method: method, Path: path, Message: msg}
		}
	}
	if data, hasData := obj["data"]; hasData {
		if _, hasCode := obj["code"]; hasCode {
			// only code 200 is success; code 0 fails too
			if code, isNum := obj["code"].(float64); isNum && code == http.StatusOK {
				return data, nil
			}
			msg, _ := obj["message"].(string)
			if msg == "" {
				msg = "request failed"
			}
			return nil, &Error{Method: method, Path: path, Message: msg}
		}
	}
	return decoded, nil
}

// needsTenant reports whether path is tenant scoped.
func needsTenant(path string) bool {
	return strings.HasPrefix(path, "/core/") || strings.HasPrefix(path, "/personal/")
}

// Create posts record to endpoint and returns the created resource.
func (c *Client) Create(ctx context.Context, endpoint string, record map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.Do(ctx, http.MethodPost, endpoint, nil, record, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches endpoint/id.
func (c *Client) Get(ctx context.Context, endpoint, id string) (map[string]any, error) {
	var out map[string]any
	path := strings.TrimRight(endpoint, "/") + "/" + url.PathEscape(id)
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
