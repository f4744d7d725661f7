package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultBytes is the entropy of generated tokens (256 bits).
	DefaultBytes = 32
	// MaxBytes bounds configurable token sizes.
	MaxBytes = 64
	// MinSecretBytes is the minimum accepted length of SCRIBE_SESSION_SECRET.
	MinSecretBytes = 32

	hkdfInfo = "scribe token hashing v1"
)

// New returns a hex-encoded token made of n random bytes.
func New(n int) (string, error) {
	if n < DefaultBytes || n > MaxBytes {
		return "", ErrTokenSize
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// DeriveKey expands secret into a 32-byte hashing key.
// A blank secret yields ErrSecretMissing; a short one ErrSecretTooShort.
func DeriveKey(secret string, minBytes int) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrSecretMissing
	}
	if minBytes > 0 && len(secret) < minBytes {
		return nil, ErrSecretTooShort
	}

	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Hasher hashes tokens for server-side storage.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher builds a keyed Hasher when secret is set, and a SHA-256 Hasher otherwise.
func NewHasher(secret string) (Hasher, error) {
	if strings.TrimSpace(secret) == "" {
		return Hasher{}, nil
	}
	key, err := DeriveKey(secret, MinSecretBytes)
	if err != nil {
		return Hasher{}, err
	}
	return Hasher{key: key}, nil
}

// Keyed reports whether the hasher uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the 64-char hex digest stored in place of tok.
func (h Hasher) Hash(tok string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(tok)
	}
	return HashHMACSHA256Hex(tok, h.key)
}
