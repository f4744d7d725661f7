package oauth

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// Endpoints overrides provider URLs. The zero value uses the public ones.
type Endpoints struct {
	Auth     oauth2.Endpoint
	UserInfo string
	// Emails is GitHub's /user/emails.
	Emails string
}

const (
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

// NewGoogle returns the "google" provider.
func NewGoogle(clientID, clientSecret, redirectURL string, ep Endpoints) Provider {
	if ep.Auth.TokenURL == "" {
		ep.Auth = google.Endpoint
	}
	if ep.UserInfo == "" {
		ep.UserInfo = googleUserInfoURL
	}
	return &provider{
		name: "google",
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     ep.Auth,
			Scopes:       []string{"openid", "email", "profile"},
		},
		profile: func(ctx context.Context, c *http.Client) (Profile, error) {
			var u struct {
				Email         string `json:"email"`
				EmailVerified bool   `json:"email_verified"`
				Name          string `json:"name"`
				Picture       string `json:"picture"`
			}
			if err := getJSON(ctx, c, ep.UserInfo, &u); err != nil {
				return Profile{}, err
			}
			if !u.EmailVerified {
				return Profile{}, ErrEmailUnverified
			}
			return Profile{Email: u.Email, Name: u.Name, Image: u.Picture}, nil
		},
	}
}

// NewGitHub returns the "github" provider. Only the primary verified email is accepted.
func NewGitHub(clientID, clientSecret, redirectURL string, ep Endpoints) Provider {
	if ep.Auth.TokenURL == "" {
		ep.Auth = github.Endpoint
	}
	if ep.UserInfo == "" {
		ep.UserInfo = githubUserURL
	}
	if ep.Emails == "" {
		ep.Emails = githubEmailsURL
	}
	return &provider{
		name: "github",
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     ep.Auth,
			Scopes:       []string{"read:user", "user:email"},
		},
		profile: func(ctx context.Context, c *http.Client) (Profile, error) {
			var u struct {
				Login     string `json:"login"`
				Name      string `json:"name"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := getJSON(ctx, c, ep.UserInfo, &u); err != nil {
				return Profile{}, err
			}
			var emails []struct {
				Email    string `json:"email"`
				Primary  bool   `json:"primary"`
				Verified bool   `json:"verified"`
			}
			if err := getJSON(ctx, c, ep.Emails, &emails); err != nil {
				return Profile{}, err
			}

			name := strings.TrimSpace(u.Name)
			if name == "" {
				name = u.Login
			}
			for _, e := range emails {
				if e.Primary && e.Verified {
					return Profile{Email: e.Email, Name: name, Image: u.AvatarURL}, nil
				}
			}
			return Profile{}, ErrEmailUnverified
		},
	}
}
