package verification

import (
	"os"
	"strconv"
	"strings"
	"time"

	"scribe/cmd/security/token"
)

// Config controls token lifetimes and size.
type Config struct {
	VerifyEmailTTL time.Duration
	LoginTTL       time.Duration
	TokenBytes     int
}

// DefaultConfig returns the documented lifetimes: 24h for email verification, 15m for login.
func DefaultConfig() Config {
	return Config{
		VerifyEmailTTL: 24 * time.Hour,
		LoginTTL:       15 * time.Minute,
		TokenBytes:     token.DefaultBytes,
	}
}

// LoadConfigFromEnv reads overrides:
//   - SCRIBE_TOKEN_VERIFY_EMAIL_TTL
//   - SCRIBE_TOKEN_LOGIN_TTL
//   - SCRIBE_TOKEN_BYTES (32..64)
//
// Returns ErrConfig if a value is present but invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("SCRIBE_TOKEN_VERIFY_EMAIL_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.VerifyEmailTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("SCRIBE_TOKEN_LOGIN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.LoginTTL = d
	}

	if v := strings.TrimSpace(os.Getenv("SCRIBE_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < token.DefaultBytes || n > token.MaxBytes {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}

// TTL returns the lifetime for purpose p.
func (c Config) TTL(p Purpose) time.Duration {
	if p == PurposeLogin {
		return c.LoginTTL
	}
	return c.VerifyEmailTTL
}
