package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeIDP struct {
	srv           *httptest.Server
	emailVerified bool
	ghEmails      []map[string]any
	gotVerifier   string
}

func newFakeIDP(t *testing.T) *fakeIDP {
	t.Helper()
	f := &fakeIDP{emailVerified: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		f.gotVerifier = r.Form.Get("code_verifier")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"email": "Ada@Example.com", "email_verified": f.emailVerified, "name": "Ada", "picture": "https://img/ada.png",
		})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"login": "ada", "name": "", "avatar_url": "https://img/gh.png"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(f.ghEmails)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIDP) endpoints() Endpoints {
	return Endpoints{
		Auth: oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/authorize",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfo: f.srv.URL + "/userinfo",
		Emails:   f.srv.URL + "/user/emails",
	}
}

func TestGoogle_AuthCodeURL(t *testing.T) {
	idp := newFakeIDP(t)
	p := NewGoogle("cid", "secret", "https://scribe.example/oauth/google/callback", idp.endpoints())

	raw := p.AuthCodeURL("state-1", GenerateVerifier())
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "cid", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.Equal(t, "https://scribe.example/oauth/google/callback", q.Get("redirect_uri"))
}

func TestGoogle_Exchange(t *testing.T) {
	idp := newFakeIDP(t)
	p := NewGoogle("cid", "secret", "https://x/cb", idp.endpoints())

	prof, err := p.Exchange(context.Background(), "good-code", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, Profile{Email: "ada@example.com", Name: "Ada", Image: "https://img/ada.png"}, prof)
	assert.Equal(t, "verifier-1", idp.gotVerifier)
}

func TestGoogle_RejectsUnverifiedEmail(t *testing.T) {
	idp := newFakeIDP(t)
	idp.emailVerified = false
	p := NewGoogle("cid", "secret", "https://x/cb", idp.endpoints())

	_, err := p.Exchange(context.Background(), "good-code", "v")
	require.ErrorIs(t, err, ErrEmailUnverified)
}

func TestExchange_BadCode(t *testing.T) {
	idp := newFakeIDP(t)
	p := NewGoogle("cid", "secret", "https://x/cb", idp.endpoints())

	_, err := p.Exchange(context.Background(), "bad-code", "v")
	require.ErrorIs(t, err, ErrExchange)

	_, err = p.Exchange(context.Background(), "", "v")
	require.ErrorIs(t, err, ErrExchange)
}

func TestGitHub_PrimaryVerifiedEmail(t *testing.T) {
	idp := newFakeIDP(t)
	idp.ghEmails = []map[string]any{
		{"email": "old@example.com", "primary": false, "verified": true},
		{"email": "ada@example.com", "primary": true, "verified": true},
	}
	p := NewGitHub("cid", "secret", "https://x/cb", Endpoints{
		Auth:     idp.endpoints().Auth,
		UserInfo: idp.srv.URL + "/user",
		Emails:   idp.srv.URL + "/user/emails",
	})

	prof, err := p.Exchange(context.Background(), "good-code", "v")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", prof.Email)
	assert.Equal(t, "ada", prof.Name)
	assert.Equal(t, "https://img/gh.png", prof.Image)
}

func TestGitHub_NoVerifiedPrimary(t *testing.T) {
	idp := newFakeIDP(t)
	idp.ghEmails = []map[string]any{{"email": "ada@example.com", "primary": true, "verified": false}}
	p := NewGitHub("cid", "secret", "https://x/cb", Endpoints{
		Auth:     idp.endpoints().Auth,
		UserInfo: idp.srv.URL + "/user",
		Emails:   idp.srv.URL + "/user/emails",
	})

	_, err := p.Exchange(context.Background(), "good-code", "v")
	require.ErrorIs(t, err, ErrEmailUnverified)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewGitHub("a", "b", "c", Endpoints{}), NewGoogle("a", "b", "c", Endpoints{}))
	assert.Equal(t, []string{"github", "google"}, r.Names())

	p, err := r.Get("Google")
	require.NoError(t, err)
	assert.Equal(t, "google", p.Name())

	_, err = r.Get("twitter")
	require.ErrorIs(t, err, ErrUnknownProvider)

	var nilReg *Registry
	_, err = nilReg.Get("google")
	require.ErrorIs(t, err, ErrUnknownProvider)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SCRIBE_OAUTH_GOOGLE_CLIENT_ID", "gid")
	t.Setenv("SCRIBE_OAUTH_GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("SCRIBE_OAUTH_GITHUB_CLIENT_ID", "")
	t.Setenv("SCRIBE_OAUTH_GITHUB_CLIENT_SECRET", "")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"google"}, cfg.Build("https://scribe.example/").Names())

	t.Setenv("SCRIBE_OAUTH_GITHUB_CLIENT_ID", "only-id")
	_, err = LoadConfigFromEnv()
	require.ErrorIs(t, err, ErrConfig)
}
