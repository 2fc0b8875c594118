package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"myomesh/internal/config"
	"myomesh/internal/types"
)

func newMountedServer(t *testing.T, auth Authenticator) *Server {
	t.Helper()
	srv := newTestServer(t)
	srv.Authenticator = auth
	srv.V1RouteRegistrars = []func(chi.Router){
		func(r chi.Router) {
			r.Post("/email/verify", func(w http.ResponseWriter, r *http.Request) {
				actor, _ := types.GetActor(r.Context())
				Data(w, r, http.StatusOK, map[string]string{"user": actor.UserID})
			})
		},
	}
	if err := srv.MountRoutes(); err != nil {
		t.Fatalf("MountRoutes: %v", err)
	}
	return srv
}

func TestMountRoutes_HealthIsPublic(t *testing.T) {
	auth := &MockAuthenticator{}
	srv := newMountedServer(t, auth)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected generated X-Request-Id")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
	if len(auth.Calls) != 0 {
		t.Error("health must not authenticate")
	}
}

func TestMountRoutes_V1RequiresAuth(t *testing.T) {
	srv := newMountedServer(t, &MockAuthenticator{Actor: &types.Actor{UserID: "user-9"}})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/email/verify", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/email/verify", nil)
	req.Header.Set("Authorization", "Bearer tok")
	req.Header.Set("X-Request-Id", "req-abc")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Request-Id"); got != "req-abc" {
		t.Errorf("X-Request-Id = %q, want propagated value", got)
	}
	if body := rec.Body.String(); body != `{"data":{"user":"user-9"}}` {
		t.Errorf("body = %s", body)
	}
}

func TestMountRoutes_UnknownRoute(t *testing.T) {
	srv := newMountedServer(t, &MockAuthenticator{Actor: &types.Actor{UserID: "u"}})

	req := httptest.NewRequest(http.MethodGet, "/v1/unknown", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != string(errCodeNotFoundRoute) {
		t.Errorf("code = %q", code)
	}
}

func TestRequestTimeoutFromConfig(t *testing.T) {
	srv := newTestServer(t)
	if got := srv.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("default timeout = %v", got)
	}
	srv.Config = &config.Config{Server: config.ServerConfig{RequestTimeout: 5 * time.Second}}
	if got := srv.requestTimeout(); got != 5*time.Second {
		t.Errorf("configured timeout = %v", got)
	}
}

func TestContextTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := ContextTimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))
	start := time.Now()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("expected context deadline")
	}
	if d := deadline.Sub(start); d > time.Second+100*time.Millisecond || d <= 0 {
		t.Errorf("deadline offset = %v", d)
	}
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))

	if len(seen) != 32 {
		t.Errorf("generated id %q should be 32 hex chars", seen)
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Error("response header should echo context request id")
	}
}
