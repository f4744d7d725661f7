// Package token provides opaque token generation and hashing for scribe.
//
// Every bearer credential (email verification links, login links, session
// cookies) is a hex string built from crypto/rand bytes. Only its hash is
// persisted.
//
// Hashing modes:
//   - Keyed: HMAC-SHA256 under a key derived with HKDF from SCRIBE_SESSION_SECRET.
//   - Dev: plain SHA-256 when no secret is configured.
//
// Production runs must configure a secret of at least MinSecretBytes.
package token
