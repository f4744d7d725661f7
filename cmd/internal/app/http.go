package app

import (
	"net/http"
	"time"

	"scribe/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// pagePaths are the protected page routes served from StaticDir.
var pagePaths = []string{"/dashboard", "/account", "/transcribe"}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(WithRequestLogging(a.log, a.metrics))
	r.Use(middleware.Recoverer)
	r.Use(WithSecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, a.log, "http.not_found", httpx.NotFound("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	r.Get("/healthz", a.handleHealth)
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", a.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(a.guard.Protect)

		a.auth.Register(r)
		r.Get("/", a.auth.Home)
		r.Get("/login", a.auth.LoginPage)

		r.Group(func(r chi.Router) {
			r.Use(a.guard.RequireSession)
			r.Post("/upload", a.uploads.Upload)
			r.Get("/transcriptions", a.uploads.List)
		})

		pages := a.pageHandler()
		for _, p := range pagePaths {
			r.Get(p, pages)
			r.Get(p+"/*", pages)
		}
	})

	return r
}

func (a *App) pageHandler() http.HandlerFunc {
	if a.cfg.StaticDir == "" {
		return func(w http.ResponseWriter, _ *http.Request) {
			httpx.WriteError(w, a.log, "page.not_found", httpx.NotFound("Not found"))
		}
	}
	fs := http.FileServer(http.Dir(a.cfg.StaticDir))
	return fs.ServeHTTP
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.pool == nil {
		if a.cfg.ReadinessRequireDB {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}
	} else if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
		a.log.Warn("readyz.db.not_ready", "err", err)
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready\n"))
}
