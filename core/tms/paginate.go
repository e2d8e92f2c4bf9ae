package tms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListOptions narrows a listing traversal.
type ListOptions struct {
	// PerPage overrides the client's configured page size.
	PerPage int
	// Query is an optional free-text filter attached to every page
	// request (the API's q parameter), used for batch existence lookups.
	Query string
}

// paginationHeader mirrors the JSON payload of the Pagination response
// header on page-counted listing endpoints.
type paginationHeader struct {
	TotalPagesCount int `json:"total_pages_count"`
}

// Paginate walks a listing endpoint page by page, strictly in order, and
// returns every item exactly once. Two termination modes are supported
// and may both fire on the same endpoint:
//
//   - an empty page ends the traversal;
//   - when the first response carries a Pagination header with a
//     total_pages_count, the traversal ends once that count is exhausted.
//
// Any non-2xx status aborts the traversal; there is no partial-result
// fallback. A traversal is not restartable, callers re-fetch from page 1.
func Paginate[T any](ctx context.Context, c *Client, ep Endpoint, params map[string]string, opts ListOptions) ([]T, error) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = c.pageSize
	}

	var items []T
	totalPages := 0

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(perPage))
		if opts.Query != "" {
			query.Set("q", opts.Query)
		}

		res, err := c.Do(ctx, ep, params, query, nil)
		if err != nil {
			return nil, err
		}
		if !res.OK() {
			return nil, fmt.Errorf("page %d of %s: %w", page, ep.Path, res.Err())
		}

		if totalPages == 0 {
			totalPages = totalPageCount(res.Header)
		}

		var pageItems []T
		if !res.Decode(&pageItems) || len(pageItems) == 0 {
			return items, nil
		}
		items = append(items, pageItems...)

		if totalPages > 0 && page >= totalPages {
			return items, nil
		}
	}
}

// totalPageCount parses the Pagination header, zero when absent or
// malformed. A malformed header degrades to empty-page termination
// rather than failing the traversal.
func totalPageCount(h http.Header) int {
	raw := h.Get("Pagination")
	if raw == "" {
		return 0
	}
	var p paginationHeader
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return 0
	}
	return p.TotalPagesCount
}
