// Package security generates opaque tokens and derives their storage hashes.
package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// TokenBytes is the entropy of every generated token.
const TokenBytes = 32

// Hash namespaces. Each one gets its own derived key so a hash from one
// namespace never matches in another.
const (
	NamespaceMagicLink    = "magic-link"
	NamespaceRefreshToken = "refresh-token"
)

// Hasher maps a raw token to the deterministic keyed hash that is stored.
type Hasher interface {
	Hash(raw string) string
}

// HMACHasher is an HMAC-SHA256 Hasher keyed by a secret expanded per namespace.
type HMACHasher struct {
	key []byte
}

func NewHMACHasher(secret []byte, namespace string) (*HMACHasher, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("hasher %q: empty secret", namespace)
	}
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(namespace)), key); err != nil {
		return nil, fmt.Errorf("derive %q key: %w", namespace, err)
	}
	return &HMACHasher{key: key}, nil
}

func (h *HMACHasher) Hash(raw string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// NewToken returns TokenBytes of crypto/rand output, base64url encoded
// without padding.
func NewToken() (string, error) {
	raw := make([]byte, TokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
