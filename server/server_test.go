package server

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"go.uber.org/zap/zaptest"
)

type pingService struct{}

func (pingService) Routes(r chi.Router) {
	r.Post("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
}

func newTestServer(t *testing.T, configure func(*Options)) http.Handler {
	t.Helper()
	opts := Options{
		Logger:   zaptest.NewLogger(t),
		Addr:     ":0",
		Version:  "test",
		Services: []Routes{pingService{}},
	}
	if configure != nil {
		configure(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s.Handler()
}

func TestServicesMountedTwice(t *testing.T) {
	h := newTestServer(t, nil)
	for _, path := range []string{"/ping", "/api/ping"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("%s: status = %d body = %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if id := rec.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("generated id = %q, want a uuid", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if id := rec.Header().Get(RequestIDHeader); id != "abc-123" {
		t.Errorf("id = %q, want incoming one", id)
	}
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(dir, "success.html"), []byte("<h1>Thanks</h1>"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	h := newTestServer(t, func(o *Options) {
		o.StaticDir = dir
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/success.html", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Thanks") {
		t.Errorf("status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
	if rec.Body.String() != "pong" {
		t.Errorf("services should win over static files, got %q", rec.Body.String())
	}
}

func TestStaticDirMustExist(t *testing.T) {
	_, err := New(Options{
		Logger:    zaptest.NewLogger(t),
		Addr:      ":0",
		StaticDir: filepath.Join(t.TempDir(), "missing"),
	})
	if err == nil {
		t.Fatal("expected error for missing StaticDir")
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, func(o *Options) {
		o.CORSAllowedOrigins = []string{"https://example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
