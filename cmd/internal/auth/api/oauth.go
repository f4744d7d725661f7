package authapi

import (
	"errors"
	"net/http"
	"strings"

	"scribe/cmd/identity"
	"scribe/cmd/internal/auth/oauth"
	"scribe/cmd/internal/httpx"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	p, err := h.oauth.Get(chi.URLParam(r, "provider"))
	if err != nil {
		httpx.WriteError(w, h.log, "auth.oauth.start", httpx.NotFound("Unknown provider"))
		return
	}

	state := uuid.NewString()
	verifier := oauth.GenerateVerifier()
	h.setStateCookie(w, state, verifier)
	http.Redirect(w, r, p.AuthCodeURL(state, verifier), http.StatusFound)
}

func (h *Handler) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	p, err := h.oauth.Get(chi.URLParam(r, "provider"))
	if err != nil {
		httpx.WriteError(w, h.log, "auth.oauth.callback", httpx.NotFound("Unknown provider"))
		return
	}

	q := r.URL.Query()
	if e := strings.TrimSpace(q.Get("error")); e != "" {
		h.expireStateCookie(w)
		h.log.Info("auth.oauth.denied", "provider", p.Name(), "error", e)
		httpx.WriteError(w, h.log, "auth.oauth.callback", httpx.Unauthorized("OAuth login was cancelled"))
		return
	}

	state, verifier, ok := h.stateFromCookie(r)
	h.expireStateCookie(w)
	if !ok || !secureStringEqual(state, q.Get("state")) {
		httpx.WriteError(w, h.log, "auth.oauth.callback", httpx.Validation("Invalid OAuth state"))
		return
	}

	ctx := r.Context()
	prof, err := p.Exchange(ctx, q.Get("code"), verifier)
	if err != nil {
		if errors.Is(err, oauth.ErrEmailUnverified) {
			httpx.WriteError(w, h.log, "auth.oauth.callback", httpx.Forbidden("Email not verified by provider"))
			return
		}
		httpx.WriteError(w, h.log, "auth.oauth.exchange.fail", httpx.Upstream("OAuth login failed", err))
		return
	}

	user, err := h.users.UpsertVerified(ctx, identity.UpsertVerifiedInput{
		Email: prof.Email,
		Name:  prof.Name,
		Image: prof.Image,
		Now:   h.now(),
	})
	if err != nil {
		if identity.IsInvalidInput(err) {
			httpx.WriteError(w, h.log, "auth.oauth.callback", httpx.Validation("Invalid email"))
			return
		}
		httpx.WriteError(w, h.log, "auth.oauth.upsert.fail", err)
		return
	}

	if !h.startSession(w, r, user, "auth.oauth."+p.Name()) {
		return
	}
	http.Redirect(w, r, h.cfg.AfterLoginPath, http.StatusFound)
}
