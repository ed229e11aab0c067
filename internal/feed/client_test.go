package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedItems() []domain.GalleryItem {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return []domain.GalleryItem{
		{ID: "a", DisplaySrc: "https://example.test/a", Alt: "a.jpg", Title: "a", CreatedTime: &older},
		{ID: "b", DisplaySrc: "https://example.test/b", Alt: "b.jpg", Title: "b", CreatedTime: &newer},
	}
}

func TestClient_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/gallery", r.URL.Path)
		assert.False(t, r.URL.Query().Has("fresh"))
		assert.Equal(t, "1704067200000", r.URL.Query().Get("t"))
		assert.Equal(t, "no-cache, no-store, must-revalidate", r.Header.Get("Cache-Control"))
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		assert.Equal(t, "0", r.Header.Get("Expires"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(feedItems())
	}))
	defer server.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewClient(server.URL+"/", time.Minute, WithClock(func() time.Time { return now }))

	items, err := client.Items(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	require.NotNil(t, items[1].CreatedTime)

	_, err = client.Items(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	snap := client.Snapshot()
	assert.Equal(t, cache.StateValid, snap.State)
	assert.Equal(t, now, snap.FetchedAt)
	assert.NoError(t, snap.LastError)
	assert.Len(t, snap.Items, 2)
}

func TestClient_FreshOnlyWhenForced(t *testing.T) {
	var queries []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("fresh"))
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(feedItems())
	}))
	defer server.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewClient(server.URL, time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	// cold miss
	_, err := client.Items(ctx, false)
	require.NoError(t, err)

	// TTL expiry
	now = now.Add(2 * time.Minute)
	_, err = client.Items(ctx, false)
	require.NoError(t, err)

	_, err = client.Items(ctx, true)
	require.NoError(t, err)

	_, err = client.Sorted(ctx, true, domain.SortNewest)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "", "true", "true"}, queries)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute, WithTimeout(20*time.Millisecond))

	items, err := client.Items(context.Background(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Contains(t, err.Error(), "request timed out, please try again")
	assert.Empty(t, items)
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "server error with message",
			status:  http.StatusInternalServerError,
			body:    `{"error":"Failed to fetch gallery images"}`,
			wantMsg: "500 Internal Server Error: Failed to fetch gallery images",
		},
		{
			name:    "object instead of array",
			status:  http.StatusOK,
			body:    `{"items":[]}`,
			wantMsg: "expected an array",
		},
		{
			name:    "null body",
			status:  http.StatusOK,
			body:    `null`,
			wantMsg: "expected an array",
		},
		{
			name:    "malformed array",
			status:  http.StatusOK,
			body:    `[{"id": 1}]`,
			wantMsg: "decode gallery response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, time.Minute)

			_, err := client.Items(context.Background(), false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.False(t, errors.Is(err, ErrTimeout))
		})
	}
}

func TestClient_KeepsPreviousItemsOnFailure(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(feedItems())
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute)

	_, err := client.Items(context.Background(), false)
	require.NoError(t, err)

	fail.Store(true)
	items, err := client.Items(context.Background(), true)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	snap := client.Snapshot()
	require.Error(t, snap.LastError)
	assert.Contains(t, snap.LastError.Error(), "502")
	assert.Len(t, snap.Items, 2)
}

func TestClient_Sorted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(feedItems())
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute)

	items, err := client.Sorted(context.Background(), false, domain.SortNewest)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}

func TestClient_SnapshotBeforeFirstFetch(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", time.Minute)

	snap := client.Snapshot()
	assert.Equal(t, cache.StateEmpty, snap.State)
	assert.NotNil(t, snap.Items)
	assert.Empty(t, snap.Items)
	assert.True(t, snap.FetchedAt.IsZero())
}

func TestClient_AutoRefresh(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "true", r.URL.Query().Get("fresh"))
		_ = json.NewEncoder(w).Encode(feedItems())
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := client.StartAutoRefresh(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return hits.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("auto refresh did not stop")
	}
	assert.Equal(t, cache.StateValid, client.Snapshot().State)
}
