// Package oauth signs users in through third-party identity providers.
//
// A Provider turns an authorization code into a verified email profile.
// Providers that cannot vouch for the email address return ErrEmailUnverified.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/oauth2"
)

var (
	ErrUnknownProvider = errors.New("oauth: unknown provider")
	ErrExchange        = errors.New("oauth: code exchange failed")
	ErrProfile         = errors.New("oauth: profile fetch failed")
	ErrEmailUnverified = errors.New("oauth: provider email not verified")
	ErrConfig          = errors.New("oauth: invalid config")
)

// Profile is the identity a provider vouches for.
type Profile struct {
	Email string
	Name  string
	Image string
}

// Provider is one configured identity provider.
type Provider interface {
	Name() string
	// AuthCodeURL returns the consent URL. verifier is the PKCE code verifier.
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (Profile, error)
}

// Registry holds the enabled providers by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[strings.ToLower(name)]; ok {
			return p, nil
		}
	}
	return nil, ErrUnknownProvider
}

// Names lists enabled providers in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// GenerateVerifier returns a fresh PKCE verifier.
func GenerateVerifier() string { return oauth2.GenerateVerifier() }

// provider is the oauth2.Config plumbing shared by Google and GitHub.
type provider struct {
	name    string
	cfg     *oauth2.Config
	profile func(ctx context.Context, c *http.Client) (Profile, error)
}

func (p *provider) Name() string { return p.name }

func (p *provider) AuthCodeURL(state, verifier string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

func (p *provider) Exchange(ctx context.Context, code, verifier string) (Profile, error) {
	if strings.TrimSpace(code) == "" {
		return Profile{}, ErrExchange
	}
	tok, err := p.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %s: %v", ErrExchange, p.name, err)
	}
	prof, err := p.profile(ctx, p.cfg.Client(ctx, tok))
	if err != nil {
		return Profile{}, err
	}
	prof.Email = strings.ToLower(strings.TrimSpace(prof.Email))
	if prof.Email == "" {
		return Profile{}, ErrEmailUnverified
	}
	return prof, nil
}

const maxProfileBytes = 1 << 20

func getJSON(ctx context.Context, c *http.Client, url string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfile, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfile, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: %s", ErrProfile, url, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProfile, err)
	}
	return nil
}
