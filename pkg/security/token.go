package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const DefaultTokenLength = 32 // 256 bits

// TokenPair is an opaque session token and the value kept in storage.
type TokenPair struct {
	Token string // value returned to client
	Hash  string // value in storage
}

// TokenHasher keys token hashes with the server secret so a leaked session
// backend can't be replayed against another deployment.
type TokenHasher struct {
	secret []byte
}

func NewTokenHasher(secret string) (*TokenHasher, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}

	return &TokenHasher{secret: []byte(secret)}, nil
}

func (h *TokenHasher) Generate() (*TokenPair, error) {
	b, err := randomBytes(DefaultTokenLength)
	if err != nil {
		return nil, err
	}

	token := base64.RawURLEncoding.EncodeToString(b)

	return &TokenPair{Token: token, Hash: h.Hash(token)}, nil
}

func (h *TokenHasher) Hash(token string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks token against a stored hash in constant time.
func (h *TokenHasher) Verify(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(h.Hash(token)), []byte(storedHash)) == 1
}
