package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior.
type Config struct {
	// RevealUnknownEmail makes POST /login answer 404 for unknown addresses
	// instead of the generic acknowledgement.
	RevealUnknownEmail bool
	TrustProxy         bool
	MaxBodyBytes       int64

	// OAuth state cookie.
	StateCookieName string
	StateTTL        time.Duration
	CookieSecure    bool

	// AfterLoginPath is where the OAuth callback lands.
	AfterLoginPath string
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		RevealUnknownEmail: envBool("SCRIBE_AUTH_REVEAL_UNKNOWN_EMAIL", false),
		TrustProxy:         envBool("SCRIBE_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:       envInt64("SCRIBE_AUTH_MAX_BODY_BYTES", 64<<10),
		StateCookieName:    "oauthState",
		StateTTL:           envDuration("SCRIBE_OAUTH_STATE_TTL", 10*time.Minute),
		AfterLoginPath:     "/",
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	if c.StateCookieName == "" {
		c.StateCookieName = "oauthState"
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	if c.AfterLoginPath == "" {
		c.AfterLoginPath = "/"
	}
	return c
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
