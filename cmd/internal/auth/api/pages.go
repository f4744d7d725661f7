package authapi

import (
	"net/http"

	"scribe/cmd/internal/httpx"
)

// Home serves GET / for a signed-in user. It expects guard.Protect in front.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r, "page.home")
	if !ok {
		return
	}
	name := user.Name
	if name == "" {
		name = user.Email
	}
	httpx.WriteJSON(w, http.StatusOK, homeResponse{Message: "Welcome, " + name, User: toUserResponse(user)})
}

// LoginPage serves GET /login.
func (h *Handler) LoginPage(w http.ResponseWriter, _ *http.Request) {
	providers := h.oauth.Names()
	if providers == nil {
		providers = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, loginPageResponse{
		Message:   "POST /login with {\"email\"} to receive a sign-in link.",
		Providers: providers,
	})
}
