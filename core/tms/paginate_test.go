package tms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingServer serves total items split into per_page chunks. When
// counted is true every response carries the Pagination header.
func listingServer(t *testing.T, total int, counted bool) (*httptest.Server, *[]string) {
	t.Helper()
	queries := []string{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
		queries = append(queries, r.URL.RawQuery)

		start := (page - 1) * perPage
		end := start + perPage
		if end > total {
			end = total
		}

		items := []Key{}
		for i := start; i < end; i++ {
			items = append(items, Key{ID: fmt.Sprintf("k%d", i), Name: fmt.Sprintf("key.%d", i)})
		}

		if counted {
			pages := (total + perPage - 1) / perPage
			header, _ := json.Marshal(map[string]int{"total_pages_count": pages})
			w.Header().Set("Pagination", string(header))
		}
		json.NewEncoder(w).Encode(items)
	})

	return httptest.NewServer(handler), &queries
}

func TestPaginateEmptyPageTermination(t *testing.T) {
	server, queries := listingServer(t, 25, false)
	defer server.Close()

	client := testClient(server.URL, 3)

	items, err := Paginate[Key](context.Background(), client, ListProjects, nil, ListOptions{PerPage: 10})
	require.NoError(t, err)

	require.Len(t, items, 25)
	// Three full-ish pages plus the empty sentinel page.
	assert.Len(t, *queries, 4)

	seen := map[string]bool{}
	for _, item := range items {
		assert.False(t, seen[item.ID], "item %s yielded twice", item.ID)
		seen[item.ID] = true
	}
}

func TestPaginateTotalPageCountTermination(t *testing.T) {
	server, queries := listingServer(t, 25, true)
	defer server.Close()

	client := testClient(server.URL, 3)

	items, err := Paginate[Key](context.Background(), client, ListProjects, nil, ListOptions{PerPage: 10})
	require.NoError(t, err)

	require.Len(t, items, 25)
	// The header spares the trailing empty fetch.
	assert.Len(t, *queries, 3)
}

func TestPaginateExactPageBoundary(t *testing.T) {
	// 20 items at 10 per page: the counted mode stops at page 2, the
	// sentinel mode needs page 3 to see the empty page.
	for _, counted := range []bool{true, false} {
		server, queries := listingServer(t, 20, counted)

		client := testClient(server.URL, 3)
		items, err := Paginate[Key](context.Background(), client, ListProjects, nil, ListOptions{PerPage: 10})
		require.NoError(t, err)
		assert.Len(t, items, 20)

		want := 3
		if counted {
			want = 2
		}
		assert.Len(t, *queries, want)
		server.Close()
	}
}

func TestPaginateAppliesFilter(t *testing.T) {
	server, queries := listingServer(t, 5, false)
	defer server.Close()

	client := testClient(server.URL, 3)

	_, err := Paginate[Key](context.Background(), client, ListProjects, nil,
		ListOptions{PerPage: 10, Query: "name:greeting.1,greeting.2"})
	require.NoError(t, err)

	require.NotEmpty(t, *queries)
	assert.Contains(t, (*queries)[0], "q=name%3Agreeting.1%2Cgreeting.2")
}

func TestPaginateFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(server.URL, 3)

	_, err := Paginate[Key](context.Background(), client, ListProjects, nil, ListOptions{})
	require.Error(t, err)

	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
}

func TestTotalPageCount(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, 0, totalPageCount(h))

	h.Set("Pagination", `{"total_pages_count": 7}`)
	assert.Equal(t, 7, totalPageCount(h))

	h.Set("Pagination", "{broken")
	assert.Equal(t, 0, totalPageCount(h))
}
