package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher stores operator passwords. Cost below bcrypt.MinCost selects the default.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("security: hash password: %w", err)
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// SessionTokens issues opaque URL safe session tokens.
type SessionTokens struct {
	Bytes  int
	Prefix string
}

func (g SessionTokens) NewToken() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = 32
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: entropy read failed: %w", err)
	}
	return g.Prefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
