// Package notestore is a client for the REST data API of a Joplin-compatible note
// store. Every request carries the API token as the token query parameter.
package notestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/notestation-importer/internal/logging"
)

const (
	// DefaultBaseURL is where the desktop application serves its data API.
	DefaultBaseURL = "http://localhost:41184"

	defaultTimeout = 30 * time.Second
	maxSearchPages = 1000
	maxErrorBody   = 4096
)

// Client talks to the note store. It performs no retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = logging.Ensure(l) }
}

// NewClient creates a client for the note store at baseURL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the note store is reachable and serving its API.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, "", nil)
}

// Search runs a full-text search restricted to one item type and returns every
// page of results.
func (c *Client) Search(ctx context.Context, query string, itemType ItemType) ([]Item, error) {
	var items []Item
	for page := 1; page <= maxSearchPages; page++ {
		q := url.Values{}
		q.Set("query", query)
		q.Set("type", string(itemType))
		q.Set("page", strconv.Itoa(page))

		var res searchPage
		if err := c.do(ctx, http.MethodGet, "/search", q, nil, "", &res); err != nil {
			return nil, err
		}
		items = append(items, res.Items...)
		if !res.HasMore {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: search %q exceeded %d pages", ErrRemoteRequestFailed, query, maxSearchPages)
}

// FindFolder returns the first folder the store's search yields for title.
func (c *Client) FindFolder(ctx context.Context, title string) (*Item, error) {
	items, err := c.Search(ctx, title, TypeFolder)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("folder %q: %w", title, ErrNotFound)
	}
	return &items[0], nil
}

// CreateFolder creates a folder under parentID.
func (c *Client) CreateFolder(ctx context.Context, parentID, title string) (*Item, error) {
	var item Item
	body := map[string]string{"title": title, "parent_id": parentID}
	if err := c.postJSON(ctx, "/folders", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateNote creates a note with a markdown body under parentID.
func (c *Client) CreateNote(ctx context.Context, parentID, title, markdown string) (*Item, error) {
	var item Item
	body := map[string]string{"title": title, "parent_id": parentID, "body": markdown}
	if err := c.postJSON(ctx, "/notes", body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateTag creates a tag.
func (c *Client) CreateTag(ctx context.Context, title string) (*Item, error) {
	var item Item
	if err := c.postJSON(ctx, "/tags", map[string]string{"title": title}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindTag looks a tag up by name, ignoring case.
func (c *Client) FindTag(ctx context.Context, name string) (*Item, error) {
	items, err := c.Search(ctx, strings.ToLower(name), TypeTag)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if strings.EqualFold(items[i].Title, name) {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("tag %q: %w", name, ErrNotFound)
}

// EnsureTag returns the existing tag matching name or creates it. created reports
// whether a new tag was made.
func (c *Client) EnsureTag(ctx context.Context, name string) (tag *Item, created bool, err error) {
	tag, err = c.FindTag(ctx, name)
	if err == nil {
		return tag, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	tag, err = c.CreateTag(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return tag, true, nil
}

// LinkTag attaches a tag to a note.
func (c *Client) LinkTag(ctx context.Context, tagID, noteID string) error {
	return c.postJSON(ctx, "/tags/"+url.PathEscape(tagID)+"/notes", map[string]string{"id": noteID}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(payload), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("token", c.token)
	u := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("note store request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrRemoteRequestFailed, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRequestError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s response: %v", ErrRemoteRequestFailed, method, path, err)
	}
	return nil
}

func newRequestError(method, path string, resp *http.Response) *RequestError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(raw))

	var body errorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &RequestError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
}
