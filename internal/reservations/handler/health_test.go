package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"staybook/pkg/logger"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		pingErr    error
		wantStatus int
	}{
		{name: "liveness", path: "/health", wantStatus: http.StatusOK},
		{name: "liveness ignores storage", path: "/health", pingErr: errors.New("down"), wantStatus: http.StatusOK},
		{name: "ready", path: "/ready", wantStatus: http.StatusOK},
		{name: "not ready", path: "/ready", pingErr: errors.New("down"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(pingerFunc(func(context.Context) error { return tt.pingErr }), logger.Discard()).RegisterRoutes(router)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}
