// Package client provides a thin JSON-over-HTTP implementation of the
// engine.Client seam for Foreman-compatible servers. It covers exactly the
// six calls the engine needs; pagination, schema introspection and response
// caching are left to richer clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/foremanctl/foremanctl/pkg/engine"
)

// Config holds the connection settings for a Foreman server.
type Config struct {
	// BaseURL is the server address, e.g. "https://foreman.example.com".
	BaseURL string

	// Username and Password are the basic-auth credentials.
	Username string
	Password string

	// Timeout is the per-call ceiling on blocking requests.
	Timeout time.Duration

	// APIPath is the API prefix. Defaults to "/api/v2".
	APIPath string
}

// Observer is notified after every API call, for metrics collection.
type Observer func(method, resource string, duration time.Duration, err error)

// HTTPClient implements engine.Client against a Foreman-compatible REST API.
type HTTPClient struct {
	config   Config
	http     *http.Client
	observer Observer
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithObserver registers a call observer.
func WithObserver(observer Observer) Option {
	return func(c *HTTPClient) {
		c.observer = observer
	}
}

// WithHTTPClient replaces the underlying HTTP client, for tests and custom
// transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// New creates a client for the given server.
func New(cfg Config, opts ...Option) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("server base URL is required")
	}
	if cfg.APIPath == "" {
		cfg.APIPath = "/api/v2"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	c := &HTTPClient{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// listResponse is the collection envelope the server wraps search results in.
type listResponse struct {
	Results []engine.Record `json:"results"`
}

// List implements engine.Client.
func (c *HTTPClient) List(ctx context.Context, resource, search string, scope engine.Scope) ([]engine.Record, error) {
	query := scopeQuery(scope)
	if search != "" {
		query.Set("search", search)
	}

	body, err := c.do(ctx, http.MethodGet, c.url(resource, query), resource, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, engine.NewRemoteError("malformed list response", err).
			WithResource(resource).WithOperation("list")
	}
	return resp.Results, nil
}

// Show implements engine.Client.
func (c *HTTPClient) Show(ctx context.Context, resource string, id int, scope engine.Scope) (engine.Record, error) {
	path := resource + "/" + strconv.Itoa(id)
	body, err := c.do(ctx, http.MethodGet, c.url(path, scopeQuery(scope)), resource, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, resource, "show")
}

// Create implements engine.Client.
func (c *HTTPClient) Create(ctx context.Context, resource string, payload engine.Record, scope engine.Scope) (engine.Record, error) {
	body, err := c.do(ctx, http.MethodPost, c.url(resource, nil), resource, mergePayload(payload, scope))
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, resource, "create")
}

// Update implements engine.Client.
func (c *HTTPClient) Update(ctx context.Context, resource string, payload engine.Record, scope engine.Scope) (engine.Record, error) {
	id, ok := payload.ID()
	if !ok {
		return nil, engine.NewRemoteError("update payload has no id", nil).
			WithResource(resource).WithOperation("update")
	}
	path := resource + "/" + strconv.Itoa(id)
	body, err := c.do(ctx, http.MethodPut, c.url(path, nil), resource, mergePayload(payload, scope))
	if err != nil {
		return nil, err
	}
	return decodeRecord(body, resource, "update")
}

// Delete implements engine.Client.
func (c *HTTPClient) Delete(ctx context.Context, resource string, id int, scope engine.Scope) error {
	path := resource + "/" + strconv.Itoa(id)
	_, err := c.do(ctx, http.MethodDelete, c.url(path, scopeQuery(scope)), resource, nil)
	return err
}

// CallAction implements engine.Client. Actions are addressed as
// PUT {resource}/{id}/{action} with the remaining payload as the body.
func (c *HTTPClient) CallAction(ctx context.Context, resource, action string, payload engine.Record) (engine.Record, error) {
	id, ok := payload.ID()
	if !ok {
		return nil, engine.NewRemoteError("action payload has no id", nil).
			WithResource(resource).WithOperation(action)
	}
	path := resource + "/" + strconv.Itoa(id) + "/" + action

	body, err := c.do(ctx, http.MethodPut, c.url(path, nil), resource, payload)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, engine.NewRemoteError("malformed action response", nil).
			WithResource(resource).WithOperation(action).
			WithDetail("body", string(body))
	}
	var rec engine.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		// Valid JSON that is not an entity object (task lists, bare
		// strings); there is nothing to return but it is not an error.
		return nil, nil
	}
	return rec, nil
}

// do performs one request and returns the raw response body.
func (c *HTTPClient) do(ctx context.Context, method, rawURL, resource string, payload engine.Record) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, engine.NewRemoteError("failed to encode payload", err).
				WithResource(resource)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, engine.NewRemoteError("failed to build request", err).
			WithResource(resource)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if c.observer != nil {
		c.observer(method, resource, time.Since(start), err)
	}
	if err != nil {
		return nil, engine.NewRemoteError("request failed", err).
			WithResource(resource).
			WithCode(engine.ErrCodeRemoteCall)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, engine.NewRemoteError("failed to read response", err).
			WithResource(resource)
	}

	if resp.StatusCode >= 400 {
		return nil, engine.NewRemoteError(
			fmt.Sprintf("server returned %s", resp.Status), nil).
			WithResource(resource).
			WithCode(engine.ErrCodeRemoteCall).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", string(raw))
	}
	return raw, nil
}

// url joins the API prefix, a resource path and query parameters.
func (c *HTTPClient) url(path string, query url.Values) string {
	u := c.config.BaseURL + c.config.APIPath + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// scopeQuery renders scope parameters as query values.
func scopeQuery(scope engine.Scope) url.Values {
	query := url.Values{}
	for k, v := range scope {
		query.Set(k, fmt.Sprintf("%v", v))
	}
	return query
}

// mergePayload folds scope parameters into a mutation payload.
func mergePayload(payload engine.Record, scope engine.Scope) engine.Record {
	if len(scope) == 0 {
		return payload
	}
	merged := make(engine.Record, len(payload)+len(scope))
	for k, v := range scope {
		merged[k] = v
	}
	for k, v := range payload {
		merged[k] = v
	}
	return merged
}

// decodeRecord parses a single-entity response body.
func decodeRecord(body []byte, resource, operation string) (engine.Record, error) {
	var rec engine.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, engine.NewRemoteError("malformed entity response", err).
			WithResource(resource).WithOperation(operation)
	}
	return rec, nil
}
