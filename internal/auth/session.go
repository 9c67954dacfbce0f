package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the session token.
const CookieName = "auth_token"

var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies EdDSA session tokens whose subject is a player id.
type Issuer struct {
	private ed25519.PrivateKey
	public  ed25519.PublicKey
	ttl     time.Duration
}

// NewIssuer generates a fresh key pair. Tokens expire after ttl; zero means never.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ed25519 key pair: %w", err)
	}
	return &Issuer{private: priv, public: pub, ttl: ttl}, nil
}

// NewIssuerFromFile loads a raw 64-byte ed25519 private key, so tokens survive restarts.
func NewIssuerFromFile(path string, ttl time.Duration) (*Issuer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key %s has %d bytes, want %d", path, len(data), ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(data)
	return &Issuer{private: priv, public: priv.Public().(ed25519.PublicKey), ttl: ttl}, nil
}

// TTL is the token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// CreateJWT signs a token with sub = playerID.
func (i *Issuer) CreateJWT(playerID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  playerID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if i.ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(i.private)
}

// Authenticate verifies a token and returns its subject.
func (i *Issuer) Authenticate(token string) (string, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.public, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
