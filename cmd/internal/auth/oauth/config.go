package oauth

import (
	"fmt"
	"os"
	"strings"
)

// ClientConfig is one provider's registered application.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
}

func (c ClientConfig) enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

// Config lists provider credentials. A provider is enabled only when both values are set.
type Config struct {
	Google ClientConfig
	GitHub ClientConfig
}

// LoadConfigFromEnv reads SCRIBE_OAUTH_{GOOGLE,GITHUB}_CLIENT_{ID,SECRET}.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Google: ClientConfig{
			ClientID:     strings.TrimSpace(os.Getenv("SCRIBE_OAUTH_GOOGLE_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("SCRIBE_OAUTH_GOOGLE_CLIENT_SECRET")),
		},
		GitHub: ClientConfig{
			ClientID:     strings.TrimSpace(os.Getenv("SCRIBE_OAUTH_GITHUB_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("SCRIBE_OAUTH_GITHUB_CLIENT_SECRET")),
		},
	}
	for name, c := range map[string]ClientConfig{"google": cfg.Google, "github": cfg.GitHub} {
		if (c.ClientID == "") != (c.ClientSecret == "") {
			return Config{}, fmt.Errorf("%w: %s needs both client id and secret", ErrConfig, name)
		}
	}
	return cfg, nil
}

// Build returns a Registry of the enabled providers. Callbacks go to
// baseURL + "/oauth/{provider}/callback".
func (c Config) Build(baseURL string) *Registry {
	base := strings.TrimRight(baseURL, "/")
	var ps []Provider
	if c.Google.enabled() {
		ps = append(ps, NewGoogle(c.Google.ClientID, c.Google.ClientSecret, base+"/oauth/google/callback", Endpoints{}))
	}
	if c.GitHub.enabled() {
		ps = append(ps, NewGitHub(c.GitHub.ClientID, c.GitHub.ClientSecret, base+"/oauth/github/callback", Endpoints{}))
	}
	return NewRegistry(ps...)
}
