// Package api is the HTTP client for the hierarchy service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkarlsen/vaultview/pkg/model"
)

// DefaultTimeout bounds a single request when the caller's context has no
// earlier deadline.
const DefaultTimeout = 10 * time.Second

// MaxResponseSize is the max bytes read from a response body (8MB).
const MaxResponseSize = 8 * 1024 * 1024

// Backend is the surface the fetch coordinator consumes. The HTTP client
// implements it; tests substitute a stub.
type Backend interface {
	ChildFolders(ctx context.Context, parentKey string) ([]model.FolderSummary, error)
	ChildAssets(ctx context.Context, folderKey string) ([]model.AssetSummary, error)
	SearchFolders(ctx context.Context, query string, filters map[model.ColumnID]string) ([]model.FolderHit, error)
	SearchAssets(ctx context.Context, query string, filters map[model.ColumnID]string) ([]model.AssetHit, error)
	Vocabulary(ctx context.Context, kind model.VocabKind) (map[string]string, error)
	UpdateCell(ctx context.Context, update model.CellUpdate) error
	BulkUpdate(ctx context.Context, update model.BulkUpdate) (model.BulkResult, error)
}

// Client talks JSON to the hierarchy service.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithHTTPClient substitutes the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChildFolders fetches the immediate child folders of a folder, or the
// volume roots when parentKey is empty.
func (c *Client) ChildFolders(ctx context.Context, parentKey string) ([]model.FolderSummary, error) {
	q := url.Values{}
	if parentKey != "" {
		q.Set("parent", parentKey)
	}
	var out []model.FolderSummary
	if err := c.getJSON(ctx, "/api/folders", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChildAssets fetches the asset page for a folder.
func (c *Client) ChildAssets(ctx context.Context, folderKey string) ([]model.AssetSummary, error) {
	q := url.Values{}
	q.Set("folder", folderKey)
	var out []model.AssetSummary
	if err := c.getJSON(ctx, "/api/assets", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchFolders runs a server-side folder search. Each hit carries the
// ancestor path needed to materialize the result.
func (c *Client) SearchFolders(ctx context.Context, query string, filters map[model.ColumnID]string) ([]model.FolderHit, error) {
	var out []model.FolderHit
	if err := c.getJSON(ctx, "/api/search/folders", searchValues(query, filters), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchAssets runs a server-side asset search.
func (c *Client) SearchAssets(ctx context.Context, query string, filters map[model.ColumnID]string) ([]model.AssetHit, error) {
	var out []model.AssetHit
	if err := c.getJSON(ctx, "/api/search/assets", searchValues(query, filters), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Vocabulary fetches one of the option lookup lists.
func (c *Client) Vocabulary(ctx context.Context, kind model.VocabKind) (map[string]string, error) {
	var out map[string]string
	if err := c.getJSON(ctx, "/api/vocab/"+string(kind), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCell commits a single field change.
func (c *Client) UpdateCell(ctx context.Context, update model.CellUpdate) error {
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.patchJSON(ctx, "/api/cell", update, &out); err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("cell update rejected for %s.%s", update.Key, update.Field)
	}
	return nil
}

// BulkUpdate applies field changes to the given asset and folder ids.
func (c *Client) BulkUpdate(ctx context.Context, update model.BulkUpdate) (model.BulkResult, error) {
	var out model.BulkResult
	if err := c.patchJSON(ctx, "/api/bulk", update, &out); err != nil {
		return model.BulkResult{}, err
	}
	return out, nil
}

func searchValues(query string, filters map[model.ColumnID]string) url.Values {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	for col, value := range filters {
		q.Set("f."+string(col), value)
	}
	return q
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) patchJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: service returned status %s", req.Method, req.URL.Path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
