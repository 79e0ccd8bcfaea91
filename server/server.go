package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	resp "github.com/healthparse/landing/response"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Routes is implemented by every service that serves HTTP endpoints
type Routes interface {
	Routes(r chi.Router)
}

// Options contains the configuration of the HTTP server
type Options struct {
	Logger   *zap.Logger
	Addr     string
	Version  string
	Services []Routes

	CORSAllowedOrigins []string
	// StaticDir is served for every path no service claims
	StaticDir string
}

// Server is the public HTTP server of the landing site
type Server struct {
	Options
	http *http.Server
}

// New builds the router and the http.Server around it
func New(option Options) (*Server, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.Addr == "" {
		return nil, fmt.Errorf("empty Addr is invalid")
	}
	if option.StaticDir != "" {
		if info, err := os.Stat(option.StaticDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("StaticDir %q is not a directory", option.StaticDir)
		}
	}
	s := &Server{
		Options: option,
	}
	s.http = &http.Server{
		Addr:              option.Addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) router() http.Handler {
	root := chi.NewRouter()

	root.Use(middleware.RealIP)
	root.Use(RequestID)
	root.Use(AccessLog(s.Logger))
	root.Use(middleware.Recoverer)
	root.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	if len(s.CORSAllowedOrigins) > 0 {
		root.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
			ExposedHeaders:   []string{RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	root.Get("/healthz", s.health)

	mount := func(r chi.Router) {
		for _, svc := range s.Services {
			svc.Routes(r)
		}
	}
	root.Group(mount)
	// the static site posts to /api/...
	root.Route("/api", mount)

	root.MethodNotAllowed(resp.MethodNotAllowed)
	if s.StaticDir != "" {
		root.NotFound(http.FileServer(http.Dir(s.StaticDir)).ServeHTTP)
	} else {
		root.NotFound(resp.NotFound)
	}

	return root
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp.WriteResponse(w, r, map[string]string{
		"status":  "ok",
		"version": s.Version,
	})
}

// Handler returns the root handler, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops. A graceful Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("Starting HTTP server", zap.String("Addr", s.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("Shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
