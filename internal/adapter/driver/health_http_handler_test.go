package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/alorle/iptv-livecheck/internal/application"
	"github.com/alorle/iptv-livecheck/internal/catalog"
)

func TestHealthHTTPHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		loadErr        error
		decoder        availableDecoder
		wantStatusCode int
		wantStatus     string
		wantCatalog    string
		wantDecoder    string
	}{
		{
			name:           "all healthy",
			method:         http.MethodGet,
			decoder:        true,
			wantStatusCode: http.StatusOK,
			wantStatus:     "ok",
			wantCatalog:    "ok",
			wantDecoder:    "ok",
		},
		{
			name:           "decoder missing stays ok",
			method:         http.MethodGet,
			wantStatusCode: http.StatusOK,
			wantStatus:     "ok",
			wantCatalog:    "ok",
			wantDecoder:    "unavailable",
		},
		{
			name:           "catalog unreadable",
			method:         http.MethodGet,
			loadErr:        errors.New("permission denied"),
			decoder:        true,
			wantStatusCode: http.StatusServiceUnavailable,
			wantStatus:     "degraded",
			wantCatalog:    "error",
			wantDecoder:    "ok",
		},
		{
			name:           "catalog missing",
			method:         http.MethodGet,
			loadErr:        catalog.ErrCatalogNotFound,
			decoder:        true,
			wantStatusCode: http.StatusServiceUnavailable,
			wantStatus:     "degraded",
			wantCatalog:    "unavailable",
			wantDecoder:    "ok",
		},
		{
			name:           "method not allowed",
			method:         http.MethodPost,
			wantStatusCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCatalogRepository{}
			if tt.loadErr != nil {
				repo.loadFunc = func(ctx context.Context) (*catalog.Catalog, error) { return nil, tt.loadErr }
			}
			svc := application.NewHealthService(repo, tt.decoder, nil, 0)
			handler := NewHealthHTTPHandler(svc)

			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("expected status %d, got %d", tt.wantStatusCode, w.Code)
			}
			if tt.wantStatus == "" {
				return
			}

			var resp healthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Catalog.Status != tt.wantCatalog {
				t.Errorf("catalog = %q, want %q", resp.Catalog.Status, tt.wantCatalog)
			}
			if resp.Decoder.Status != tt.wantDecoder {
				t.Errorf("decoder = %q, want %q", resp.Decoder.Status, tt.wantDecoder)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}
