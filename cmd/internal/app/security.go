package app

import (
	"errors"
	"fmt"

	"scribe/cmd/security/token"
)

// ValidateSecurityConfig enforces the token hashing policy at startup.
//
// Production requires SCRIBE_SESSION_SECRET of at least token.MinSecretBytes
// so stored token hashes are keyed. Development may run unkeyed, but a secret
// that is set must still be long enough.
func ValidateSecurityConfig(cfg Config) error {
	_, err := token.DeriveKey(cfg.SessionSecret, token.MinSecretBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrSecretMissing):
		if !cfg.Production() {
			return nil
		}
		return errors.New("security policy: SCRIBE_SESSION_SECRET is required in production")
	case errors.Is(err, token.ErrSecretTooShort):
		return fmt.Errorf("security policy: SCRIBE_SESSION_SECRET is too short (min %d bytes)", token.MinSecretBytes)
	default:
		return err
	}
}
