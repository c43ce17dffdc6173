// Package content reads recent posts from a paginated JSON content API.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oliveagle/jsonpath"

	"github.com/dandantas/linkpatrol/internal/model"
)

// ErrUnexpectedStatus is returned when the content API answers with a non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status from content api")

const maxResponseBytes = 32 << 20

// Options describes where posts come from and how to map the response onto posts.
// Paths are JSONPath expressions; the item paths are evaluated against each item.
type Options struct {
	URL       string
	Token     string
	ItemsPath string // default "$.posts"
	IDPath    string // default "$.id"
	TitlePath string // default "$.title"
	BodyPath  string // default "$.content"
	PageSize  int    // default 50
	Timeout   time.Duration
}

func (o *Options) setDefaults() {
	if o.ItemsPath == "" {
		o.ItemsPath = "$.posts"
	}
	if o.IDPath == "" {
		o.IDPath = "$.id"
	}
	if o.TitlePath == "" {
		o.TitlePath = "$.title"
	}
	if o.BodyPath == "" {
		o.BodyPath = "$.content"
	}
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
}

// HTTPSource fetches posts page by page, newest first
type HTTPSource struct {
	client *http.Client
	opts   Options

	items *jsonpath.Compiled
	id    *jsonpath.Compiled
	title *jsonpath.Compiled
	body  *jsonpath.Compiled
}

// NewHTTPSource creates a content source. client may be nil.
func NewHTTPSource(opts Options, client *http.Client) (*HTTPSource, error) {
	opts.setDefaults()

	if _, err := url.ParseRequestURI(opts.URL); err != nil {
		return nil, fmt.Errorf("invalid content api url %q: %w", opts.URL, err)
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	s := &HTTPSource{client: client, opts: opts}

	var err error
	for _, p := range []struct {
		dst  **jsonpath.Compiled
		expr string
	}{
		{&s.items, opts.ItemsPath},
		{&s.id, opts.IDPath},
		{&s.title, opts.TitlePath},
		{&s.body, opts.BodyPath},
	} {
		if *p.dst, err = jsonpath.Compile(p.expr); err != nil {
			return nil, fmt.Errorf("invalid JSONPath expression '%s': %w", p.expr, err)
		}
	}

	return s, nil
}

// GetRecentPosts returns up to limit posts in the order the API lists them.
// Every page is requested with the same size so page/limit offsets stay aligned.
func (s *HTTPSource) GetRecentPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		return []model.Post{}, nil
	}
	posts := make([]model.Post, 0, limit)

	size := min(s.opts.PageSize, limit)
	for page := 1; len(posts) < limit; page++ {
		batch, items, err := s.fetchPage(ctx, page, size)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}

		posts = append(posts, batch...)
		if items < size {
			break
		}
	}

	if len(posts) > limit {
		posts = posts[:limit]
	}

	slog.Debug("Fetched posts from content api", "count", len(posts), "limit", limit)
	return posts, nil
}

// fetchPage returns the mapped posts of one page and the number of items the page held
func (s *HTTPSource) fetchPage(ctx context.Context, page, size int) ([]model.Post, int, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return nil, 0, err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(size))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, 0, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var doc interface{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&doc); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	return s.mapPosts(doc)
}

func (s *HTTPSource) mapPosts(doc interface{}) ([]model.Post, int, error) {
	found, err := s.items.Lookup(doc)
	if err != nil {
		return nil, 0, fmt.Errorf("JSONPath expression '%s' returned no results: %w", s.opts.ItemsPath, err)
	}

	items, ok := found.([]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("JSONPath expression '%s' did not select an array", s.opts.ItemsPath)
	}

	posts := make([]model.Post, 0, len(items))
	for i, item := range items {
		id := s.lookupString(s.id, item)
		if id == "" {
			slog.Warn("Skipping post without id", "index", i)
			continue
		}
		posts = append(posts, model.Post{
			ID:          id,
			Title:       s.lookupString(s.title, item),
			ContentHTML: s.lookupString(s.body, item),
		})
	}

	return posts, len(items), nil
}

// lookupString resolves an item field to a string; missing fields are empty
func (s *HTTPSource) lookupString(path *jsonpath.Compiled, item interface{}) string {
	v, err := path.Lookup(item)
	if err != nil {
		return ""
	}

	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		return fmt.Sprint(val)
	}
}
