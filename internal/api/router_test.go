package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sungwon/campaign-queue/internal/auth"
	"github.com/sungwon/campaign-queue/internal/storage"
)

func newTestRouter(t *testing.T) (*mockQuerier, http.Handler, string) {
	t.Helper()
	apiKey, err := auth.GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate API key: %v", err)
	}
	hash, err := auth.HashAPIKey(apiKey)
	if err != nil {
		t.Fatalf("hash API key: %v", err)
	}

	store := newMockQuerier()
	svc := newTestService(store, &mockConnection{})
	router := NewRouter(store, &storage.DB{}, svc, hash, zerolog.Nop())
	return store, router, apiKey
}

func TestRouter_HealthzNoAuth(t *testing.T) {
	_, router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_MetricsNoAuth(t *testing.T) {
	_, router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRouter_QueueRequiresAuth(t *testing.T) {
	_, router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/queue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestRouter_QueueWithAuth(t *testing.T) {
	_, router, apiKey := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/queue", nil)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with valid key, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_CampaignsRequireAuth(t *testing.T) {
	_, router, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/campaigns", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}
}
