// Package guard resolves the session cookie before requests reach handlers.
//
// Protect gates page routes: unauthenticated requests are redirected to the
// login page, and signed-in requests to the login page are sent home.
// RequireSession gates API routes with a 401 instead of a redirect.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scribe/cmd/internal/auth/session"
	"scribe/cmd/internal/httpx"
)

// SessionResolver looks up a session token. (nil, nil) means unauthenticated.
type SessionResolver interface {
	Get(ctx context.Context, token string) (*session.Session, error)
}

// Config controls cookie naming and routing.
type Config struct {
	CookieName      string
	LoginPath       string
	HomePath        string
	ProtectedRoutes []string
	SecureCookie    bool
}

// DefaultConfig mirrors the application's page layout.
func DefaultConfig() Config {
	return Config{
		CookieName:      "sessionToken",
		LoginPath:       "/login",
		HomePath:        "/",
		ProtectedRoutes: []string{"/", "/dashboard", "/account", "/transcribe"},
	}
}

// Guard is the access gate.
type Guard struct {
	sessions SessionResolver
	cfg      Config
	log      *slog.Logger
}

// New constructs a Guard. Zero config fields fall back to DefaultConfig.
func New(sessions SessionResolver, cfg Config, log *slog.Logger) *Guard {
	def := DefaultConfig()
	if cfg.CookieName == "" {
		cfg.CookieName = def.CookieName
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = def.LoginPath
	}
	if cfg.HomePath == "" {
		cfg.HomePath = def.HomePath
	}
	if cfg.ProtectedRoutes == nil {
		cfg.ProtectedRoutes = def.ProtectedRoutes
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{sessions: sessions, cfg: cfg, log: log}
}

type ctxKey struct{}

// WithUserID returns a child context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id set by the guard.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// IsProtected reports whether path falls under a protected route.
// "/" protects only the root itself; other routes also protect their subpaths.
func (g *Guard) IsProtected(path string) bool {
	for _, route := range g.cfg.ProtectedRoutes {
		if path == route {
			return true
		}
		if route != "/" && strings.HasPrefix(path, route+"/") {
			return true
		}
	}
	return false
}

// Protect is the page-mode middleware.
func (g *Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		// Only the login page bounces signed-in users; POST /login is the JSON endpoint.
		isLogin := path == g.cfg.LoginPath && (r.Method == http.MethodGet || r.Method == http.MethodHead)
		protected := g.IsProtected(path)

		if !isLogin && !protected {
			next.ServeHTTP(w, r)
			return
		}

		tok, hasCookie := g.cookieToken(r)
		if !hasCookie {
			if protected {
				http.Redirect(w, r, g.cfg.LoginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		sess, err := g.sessions.Get(r.Context(), tok)
		if err != nil {
			g.log.Error("guard.session.lookup.fail", "path", path, "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if sess == nil {
			g.ClearCookie(w)
			if protected {
				http.Redirect(w, r, g.cfg.LoginPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if isLogin {
			http.Redirect(w, r, g.cfg.HomePath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
	})
}

// RequireSession is the API-mode middleware: 401 JSON instead of a redirect.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, hasCookie := g.cookieToken(r)
		if !hasCookie {
			httpx.WriteError(w, g.log, "guard.unauthorized", httpx.Unauthorized("Unauthorized"))
			return
		}

		sess, err := g.sessions.Get(r.Context(), tok)
		if err != nil {
			httpx.WriteError(w, g.log, "guard.session.lookup.fail", err)
			return
		}
		if sess == nil {
			g.ClearCookie(w)
			httpx.WriteError(w, g.log, "guard.unauthorized", httpx.Unauthorized("Unauthorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), sess.UserID)))
	})
}

// Token returns the raw session cookie value, if any.
func (g *Guard) Token(r *http.Request) (string, bool) {
	return g.cookieToken(r)
}

func (g *Guard) cookieToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(g.cfg.CookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

// SetCookie writes the session cookie with a Max-Age matching ttl.
func (g *Guard) SetCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearCookie expires the session cookie.
func (g *Guard) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
