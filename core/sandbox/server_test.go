package sandbox

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tmsops/core/tms"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testApp(t *testing.T, configure func(*Server)) (*fiber.App, *Store) {
	t.Helper()
	store := NewStore()
	server := NewServer(store, zap.NewNop())
	if configure != nil {
		configure(server)
	}
	return server.App(), store
}

func doJSON(t *testing.T, app *fiber.App, method, target string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res
}

func decodeBody[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(res.Body).Decode(&out))
	return out
}

func TestListKeysPaginationHeader(t *testing.T) {
	app, store := testApp(t, nil)
	p := store.AddProject("demo")
	for i := 0; i < 25; i++ {
		store.AddKey(p.ID, "key")
	}

	res := doJSON(t, app, "GET", "/projects/"+p.ID+"/keys?page=1&per_page=10", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var header struct {
		TotalPagesCount int `json:"total_pages_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.Header.Get("Pagination")), &header))
	assert.Equal(t, 3, header.TotalPagesCount)

	keys := decodeBody[[]tms.Key](t, res)
	assert.Len(t, keys, 10)

	res = doJSON(t, app, "GET", "/projects/"+p.ID+"/keys?page=3&per_page=10", nil)
	keys = decodeBody[[]tms.Key](t, res)
	assert.Len(t, keys, 5)
}

func TestListKeysNameFilter(t *testing.T) {
	app, store := testApp(t, nil)
	p := store.AddProject("demo")
	store.AddKey(p.ID, "alpha")
	store.AddKey(p.ID, "beta")
	store.AddKey(p.ID, "gamma")

	res := doJSON(t, app, "GET", "/projects/"+p.ID+"/keys?q=name:alpha,gamma", nil)
	keys := decodeBody[[]tms.Key](t, res)

	require.Len(t, keys, 2)
	assert.Equal(t, "alpha", keys[0].Name)
	assert.Equal(t, "gamma", keys[1].Name)
}

func TestKeyLinksLifecycle(t *testing.T) {
	app, store := testApp(t, nil)
	p := store.AddProject("demo")
	parent := store.AddKey(p.ID, "parent-key")

	base := "/projects/" + p.ID + "/keys/" + parent.ID + "/key_links"

	// Never-linked keys answer 400 on listing.
	res := doJSON(t, app, "GET", base, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = doJSON(t, app, "POST", base, tms.KeyLinkRequest{ChildKeyIDs: []string{"c1", "c2"}})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, app, "GET", base, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	links := decodeBody[tms.KeyLinks](t, res)
	assert.Len(t, links.Children, 2)

	// A child already linked anywhere is a conflict, even under another
	// parent key.
	res = doJSON(t, app, "POST", "/projects/"+p.ID+"/keys/other/key_links",
		tms.KeyLinkRequest{ChildKeyIDs: []string{"c1"}})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestCreateEntityConflict(t *testing.T) {
	app, _ := testApp(t, nil)

	res := doJSON(t, app, "POST", "/clients", map[string]string{"name": "Acme"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, app, "POST", "/clients", map[string]string{"name": "Acme"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)

	// Same name under a different kind is fine.
	res = doJSON(t, app, "POST", "/domains", map[string]string{"name": "Acme"})
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	res = doJSON(t, app, "POST", "/clients", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestDeleteUser(t *testing.T) {
	app, store := testApp(t, nil)
	p := store.AddProject("demo")
	u := store.AddUser(p.ID, "alice", time.Now())

	res := doJSON(t, app, "DELETE", "/projects/"+p.ID+"/users/"+u.ID, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res = doJSON(t, app, "DELETE", "/projects/"+p.ID+"/users/"+u.ID, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAuthToken(t *testing.T) {
	app, _ := testApp(t, func(s *Server) { s.Token = "secret" })

	res := doJSON(t, app, "GET", "/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest("GET", "/projects", nil)
	req.Header.Set("Authorization", "Bearer secret")
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRateLimitInjection(t *testing.T) {
	app, _ := testApp(t, func(s *Server) { s.RateLimitEvery = 3 })

	statuses := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		res := doJSON(t, app, "GET", "/projects", nil)
		statuses = append(statuses, res.StatusCode)
		if res.StatusCode == http.StatusTooManyRequests {
			assert.Equal(t, "1", res.Header.Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{200, 200, 429, 200, 200, 429}, statuses)
}

func TestRateLimitCountsUnderConcurrency(t *testing.T) {
	app, _ := testApp(t, func(s *Server) { s.RateLimitEvery = 2 })

	const requests = 40
	var rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/projects", nil)
			res, err := app.Test(req, -1)
			if !assert.NoError(t, err) {
				return
			}
			if res.StatusCode == http.StatusTooManyRequests {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	// Every request gets a unique counter value, so exactly every second
	// one is rejected regardless of interleaving.
	assert.Equal(t, int64(requests/2), rejected.Load())
}

func TestSeedPopulatesAccount(t *testing.T) {
	store := NewStore()
	server := NewServer(store, zap.NewNop())
	server.Seed()

	projects := store.Projects(1, 100)
	require.Len(t, projects, 3)

	keys, pages := store.Keys(projects[0].ID, 1, 100, "")
	assert.Len(t, keys, 100)
	assert.Equal(t, 3, pages)

	users := store.Users(projects[0].ID, 1, 200)
	assert.Len(t, users, 160)
}
