package tms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testClient(baseURL string, maxAttempts int) *Client {
	return NewClient(Config{
		BaseURL:     baseURL,
		Token:       "test-token",
		MaxAttempts: maxAttempts,
	}, zap.NewNop())
}

func TestDoRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"id":"p1"}`))
	}))
	defer server.Close()

	client := testClient(server.URL, 3)

	start := time.Now()
	res, err := client.Do(context.Background(), ListProjects, nil, nil, nil)
	require.NoError(t, err)

	assert.True(t, res.OK())
	assert.Equal(t, int32(2), calls.Load())
	// The Retry-After delay must be honored before the second attempt.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestDoRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL, 1)

	_, err := client.Do(context.Background(), ListProjects, nil, nil, nil)
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoReturnsSemanticStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"conflict", http.StatusConflict},
		{"bad request", http.StatusBadRequest},
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := testClient(server.URL, 3)

			res, err := client.Do(context.Background(), CreateClient, nil, nil, map[string]string{"name": "acme"})
			require.NoError(t, err)

			// No retry for semantic statuses; the caller interprets them.
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, tt.status, res.Status)
		})
	}
}

func TestDoConflictClassification(t *testing.T) {
	res := &Result{Status: http.StatusConflict}
	assert.ErrorIs(t, res.Err(), ErrConflict)

	res = &Result{Status: http.StatusCreated}
	assert.NoError(t, res.Err())

	res = &Result{Status: http.StatusBadGateway, Body: []byte("upstream broke")}
	var statusErr *StatusError
	require.ErrorAs(t, res.Err(), &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestDoRetriesOnConnectionFailure(t *testing.T) {
	// A server that is immediately closed leaves a refusing port.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(url, 1)

	start := time.Now()
	_, err := client.Do(context.Background(), ListProjects, nil, nil, nil)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "after 2 attempts")
	// One backoff sleep of 2^0 seconds between the attempts.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(server.URL, 5)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Do(ctx, ListProjects, nil, nil, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDoSendsAuthAndBody(t *testing.T) {
	var gotAuth, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := testClient(server.URL, 3)

	_, err := client.Do(context.Background(), CreateClient, nil, nil, map[string]string{"name": "acme"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"name":"acme"}`, gotBody)
}

func TestDecodeMalformedBody(t *testing.T) {
	var target []Project

	res := &Result{Status: 200, Body: []byte("not json {")}
	assert.False(t, res.Decode(&target))
	assert.Nil(t, target)

	res = &Result{Status: 200}
	assert.False(t, res.Decode(&target))

	res = &Result{Status: 200, Body: []byte(`[{"id":"p1","name":"parent"}]`)}
	assert.True(t, res.Decode(&target))
	assert.Len(t, target, 1)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(0))
	assert.Equal(t, 2*time.Second, backoffDelay(1))
	assert.Equal(t, 8*time.Second, backoffDelay(3))
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Duration(0), retryAfter(h))

	h.Set("Retry-After", "5")
	assert.Equal(t, 5*time.Second, retryAfter(h))

	h.Set("Retry-After", "soon")
	assert.Equal(t, time.Duration(0), retryAfter(h))
}

func TestEndpointURL(t *testing.T) {
	u := ListKeys.URL("https://api.example.com/v2", map[string]string{"projectId": "p 1"}, nil)
	assert.Equal(t, "https://api.example.com/v2/projects/p%201/keys", u)
}
