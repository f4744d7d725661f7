package authapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// The OAuth state cookie carries "state.verifier". It is scoped to /oauth and
// uses SameSite=Lax so it survives the provider's top-level redirect back.

func (h *Handler) setStateCookie(w http.ResponseWriter, state, verifier string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    state + "." + verifier,
		Path:     "/oauth",
		MaxAge:   int(h.cfg.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) stateFromCookie(r *http.Request) (state, verifier string, ok bool) {
	c, err := r.Cookie(h.cfg.StateCookieName)
	if err != nil {
		return "", "", false
	}
	state, verifier, ok = strings.Cut(strings.TrimSpace(c.Value), ".")
	if !ok || state == "" || verifier == "" {
		return "", "", false
	}
	return state, verifier, true
}

func (h *Handler) expireStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.StateCookieName,
		Value:    "",
		Path:     "/oauth",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func secureStringEqual(a, b string) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
