package session

import (
	"os"
	"strconv"
	"strings"
	"time"

	"scribe/cmd/security/token"
)

// Config controls session lifetime and token size.
type Config struct {
	TTL        time.Duration
	TokenBytes int
}

// DefaultConfig returns a 30-day session with 256-bit tokens.
func DefaultConfig() Config {
	return Config{
		TTL:        30 * 24 * time.Hour,
		TokenBytes: token.DefaultBytes,
	}
}

// LoadConfigFromEnv reads SCRIBE_SESSION_TTL and SCRIBE_SESSION_TOKEN_BYTES.
// Returns ErrConfig if a value is present but invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("SCRIBE_SESSION_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TTL = d
	}

	if v := strings.TrimSpace(os.Getenv("SCRIBE_SESSION_TOKEN_BYTES")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < token.DefaultBytes || n > token.MaxBytes {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
