package app

import (
	"net/http"
	"net/http/httptest"
	"staybook/pkg/auth"
	"staybook/pkg/config"
	"staybook/pkg/logger"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type routes func(*httprouter.Router)

func (f routes) RegisterRoutes(r *httprouter.Router) { f(r) }

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	cfg := &config.Config{
		Log:               logger.Discard(),
		Port:              "0",
		JWTSecret:         testSecret,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    1024,
	}

	app := NewApplication(cfg)
	app.SetApp(
		routes(func(r *httprouter.Router) {
			r.GET("/api/v1/reservations", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
				_, _ = w.Write([]byte(auth.OwnerFromContext(r.Context())))
			})
		}),
		routes(func(r *httprouter.Router) {
			r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				w.WriteHeader(http.StatusOK)
			})
		}),
	)
	t.Cleanup(func() {
		app.idempotencyStore.Stop()
		app.rateLimiter.Stop()
	})
	return app
}

func TestApplication_HealthSkipsAuth(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestApplication_AppRoutesRequireToken(t *testing.T) {
	app := newTestApplication(t)

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, err := auth.NewAccessToken("owner-9", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}
	if rec.Body.String() != "owner-9" {
		t.Errorf("expected owner-9 in context, got %q", rec.Body.String())
	}
}
