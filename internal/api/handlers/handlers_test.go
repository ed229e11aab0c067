package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/andresuchdata/gallery-feed/internal/order"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGallery struct {
	mock.Mock
}

func (m *mockGallery) Items(ctx context.Context, fresh bool) ([]domain.GalleryItem, error) {
	args := m.Called(ctx, fresh)
	items, _ := args.Get(0).([]domain.GalleryItem)
	return items, args.Error(1)
}

type mockOrders struct {
	mock.Mock
}

func (m *mockOrders) Submit(ctx context.Context, o order.Order) (time.Time, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(time.Time), args.Error(1)
}

func newGalleryRouter(g GalleryReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/gallery", NewGalleryHandler(g).GetGallery)
	return r
}

func listed() []domain.GalleryItem {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []domain.GalleryItem{
		{ID: "1", DisplaySrc: "https://example.test/1", Alt: "zebra.jpg", Title: "zebra", CreatedTime: &older},
		{ID: "2", DisplaySrc: "https://example.test/2", Alt: "apple.jpg", Title: "apple", TakenDate: &newer, CreatedTime: &newer},
		{ID: "3", DisplaySrc: "https://example.test/3", Alt: "mango.png", Title: "mango"},
	}
}

func decodeIDs(t *testing.T, body []byte) []string {
	t.Helper()
	var items []domain.GalleryItem
	require.NoError(t, json.Unmarshal(body, &items))
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestGalleryHandler_GetGallery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFresh  bool
		wantStatus int
		wantIDs    []string
	}{
		{name: "listing order", query: "", wantStatus: http.StatusOK, wantIDs: []string{"1", "2", "3"}},
		{name: "fresh", query: "?fresh=true", wantFresh: true, wantStatus: http.StatusOK, wantIDs: []string{"1", "2", "3"}},
		{name: "fresh false", query: "?fresh=no", wantStatus: http.StatusOK, wantIDs: []string{"1", "2", "3"}},
		{name: "newest", query: "?sort=newest", wantStatus: http.StatusOK, wantIDs: []string{"2", "1", "3"}},
		{name: "oldest", query: "?sort=oldest", wantStatus: http.StatusOK, wantIDs: []string{"3", "1", "2"}},
		{name: "alphabetical", query: "?sort=Alphabetical&fresh=true", wantFresh: true, wantStatus: http.StatusOK, wantIDs: []string{"2", "3", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &mockGallery{}
			g.On("Items", mock.Anything, tt.wantFresh).Return(listed(), nil)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/gallery"+tt.query, nil)
			newGalleryRouter(g).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantIDs, decodeIDs(t, w.Body.Bytes()))
			g.AssertExpectations(t)
		})
	}
}

func TestGalleryHandler_OmitsAbsentFields(t *testing.T) {
	g := &mockGallery{}
	g.On("Items", mock.Anything, false).Return([]domain.GalleryItem{{ID: "x", DisplaySrc: "s", Alt: "a", Title: "t"}}, nil)

	w := httptest.NewRecorder()
	newGalleryRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"x","src":"s","alt":"a","title":"t"}]`, w.Body.String())
}

func TestGalleryHandler_EmptyIsArray(t *testing.T) {
	g := &mockGallery{}
	g.On("Items", mock.Anything, false).Return([]domain.GalleryItem{}, nil)

	w := httptest.NewRecorder()
	newGalleryRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gallery?sort=newest", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestGalleryHandler_InvalidSort(t *testing.T) {
	g := &mockGallery{}

	w := httptest.NewRecorder()
	newGalleryRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gallery?sort=random", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid sort")
	g.AssertNotCalled(t, "Items", mock.Anything, mock.Anything)
}

func TestGalleryHandler_Error(t *testing.T) {
	g := &mockGallery{}
	g.On("Items", mock.Anything, false).Return([]domain.GalleryItem{}, errors.New("missing Google Drive folder ID configuration"))

	w := httptest.NewRecorder()
	newGalleryRouter(g).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch images", body["error"])
	assert.Equal(t, "missing Google Drive folder ID configuration", body["details"])
}

func newOrderRouter(o OrderSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/order", NewOrderHandler(o).SubmitOrder)
	return r
}

func TestOrderHandler_SubmitOrder(t *testing.T) {
	valid := order.Order{Name: "Ana", Email: "ana@example.com", Phone: "1", Message: "hi"}

	tests := []struct {
		name       string
		body       string
		setupMocks func(m *mockOrders)
		wantStatus int
		wantBody   string
	}{
		{
			name: "success",
			body: `{"name":"Ana","email":"ana@example.com","phone":"1","message":"hi"}`,
			setupMocks: func(m *mockOrders) {
				m.On("Submit", mock.Anything, valid).Return(time.Now(), nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"success":true,"message":"Order submitted successfully"}`,
		},
		{
			name: "missing fields",
			body: `{"name":"Ana"}`,
			setupMocks: func(m *mockOrders) {
				m.On("Submit", mock.Anything, order.Order{Name: "Ana"}).Return(time.Time{}, order.ErrMissingFields)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"Missing required fields"}`,
		},
		{
			name:       "malformed json",
			body:       `{"name":`,
			setupMocks: func(m *mockOrders) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "downstream failure",
			body: `{"name":"Ana","email":"ana@example.com","phone":"1","message":"hi"}`,
			setupMocks: func(m *mockOrders) {
				m.On("Submit", mock.Anything, valid).Return(time.Time{}, fmt.Errorf("prepare order sheet: %w", order.ErrMissingSheetID))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"Failed to submit order","details":"prepare order sheet: missing Google Sheet ID configuration"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockOrders{}
			tt.setupMocks(m)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			newOrderRouter(m).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			m.AssertExpectations(t)
		})
	}
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tier := cache.NewTier("process", time.Minute, func(ctx context.Context) ([]domain.GalleryItem, error) {
		return []domain.GalleryItem{{ID: "1"}}, nil
	})
	_, err := tier.Get(context.Background(), false)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/health", Health(tier))
	r.GET("/bare", Health(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
		Cache  struct {
			State string `json:"state"`
			Items int    `json:"items"`
		} `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "VALID", body.Cache.State)
	assert.Equal(t, 1, body.Cache.Items)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bare", nil))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
