package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/riveredge/bulkport/internal/logging"
)

// Paging selects how a list endpoint pages.
type Paging string

// Supported paging styles.
const (
	// PagingOffset sends skip/limit and gets a bare array back.
	PagingOffset Paging = "offset"

	// PagingPage sends page/page_size and gets {items, total, page, page_size} back.
	PagingPage Paging = "page"
)

// Page size limits.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000

	// listConcurrency bounds parallel page fetches in ListAll.
	listConcurrency = 4

	// maxOffsetPages stops ListAll on endpoints that ignore limit.
	maxOffsetPages = 10000
)

// Page is one page of a list response. Total is -1 when the endpoint does not report it.
type Page struct {
	Items    []map[string]any `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// List fetches one 1-based page of endpoint.
func (c *Client) List(
	ctx context.Context, endpoint string, paging Paging, query url.Values, page, pageSize int,
) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}

	params := url.Values{}
	for k, v := range query {
		params[k] = append([]string(nil), v...)
	}
	if paging == PagingPage {
		params.Set("page", strconv.Itoa(page))
		params.Set("page_size", strconv.Itoa(pageSize))
	} else {
		params.Set("skip", strconv.Itoa((page-1)*pageSize))
		params.Set("limit", strconv.Itoa(pageSize))
	}

	var payload any
	if err := c.Do(ctx, http.MethodGet, endpoint, params, nil, &payload); err != nil {
		return nil, err
	}
	return toPage(payload, page, pageSize), nil
}

// ListAll fetches every page of endpoint. With page paging the first response's
// total decides the page count and the remaining pages are fetched in parallel;
// items keep server order.
func (c *Client) ListAll(
	ctx context.Context, endpoint string, paging Paging, query url.Values, pageSize int,
) ([]map[string]any, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	first, err := c.List(ctx, endpoint, paging, query, 1, pageSize)
	if err != nil {
		return nil, err
	}
	if paging != PagingPage || first.Total < 0 {
		return c.listSequential(ctx, endpoint, paging, query, pageSize, first)
	}

	pages := (first.Total + pageSize - 1) / pageSize
	if pages <= 1 {
		return first.Items, nil
	}

	logger := logging.FromContext(ctx)
	logger.Debug().Ctx(ctx).
		Str("component", "api").
		Str("operation", "list_all").
		Str("endpoint", endpoint).
		Int("total", first.Total).
		Int("pages", pages).
		Msg("fetching remaining pages")

	results := make([][]map[string]any, pages)
	results[0] = first.Items

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for p := 2; p <= pages; p++ {
		p := p
		g.Go(func() error {
			pg, listErr := c.List(gctx, endpoint, paging, query, p, pageSize)
			if listErr != nil {
				return fmt.Errorf("page %d: %w", p, listErr)
			}
			results[p-1] = pg.Items
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	all := make([]map[string]any, 0, first.Total)
	for _, items := range results {
		all = append(all, items...)
	}
	return all, nil
}

// listSequential keeps requesting pages until one comes back short.
func (c *Client) listSequential(
	ctx context.Context, endpoint string, paging Paging, query url.Values, pageSize int, first *Page,
) ([]map[string]any, error) {
	all := append([]map[string]any(nil), first.Items...)
	last := len(first.Items)
	for page := 2; last == pageSize && page <= maxOffsetPages; page++ {
		pg, err := c.List(ctx, endpoint, paging, query, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, pg.Items...)
		last = len(pg.Items)
	}
	return all, nil
}

func toPage(payload any, page, pageSize int) *Page {
	out := &Page{Total: -1, Page: page, PageSize: pageSize}
	switch p := payload.(type) {
	case []any:
		out.Items = toItems(p)
	case map[string]any:
		if items, ok := p["items"].([]any); ok {
			out.Items = toItems(items)
		}
		if total, ok := p["total"].(float64); ok {
			out.Total = int(total)
		}
		if n, ok := p["page"].(float64); ok {
			out.Page = int(n)
		}
		if n, ok := p["page_size"].(float64); ok {
			out.PageSize = int(n)
		}
	}
	if out.Items == nil {
		out.Items = []map[string]any{}
	}
	return out
}

func toItems(raw []any) []map[string]any {
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
