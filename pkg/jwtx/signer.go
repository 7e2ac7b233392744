package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer is our interface for anything that can sign session tokens.
type Signer interface {
	Sign(Claims) (string, error)
}

// Verifier validates a session token string and returns its parsed Claims.
type Verifier interface {
	Verify(tokenStr string) (*Claims, error)
}

// EdDSAKeypair signs and verifies session tokens with a single Ed25519 key.
// The service treats token signing as an opaque capability; this is the one
// implementation we ship.
type EdDSAKeypair struct {
	kid    string
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewEphemeralEdDSAKeypair generates a fresh Ed25519 keypair. Tokens signed
// with it do not survive a restart, which is acceptable for session tokens.
func NewEphemeralEdDSAKeypair(kid, issuer string) (*EdDSAKeypair, error) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate ed25519 key: %w", err)
	}
	return &EdDSAKeypair{kid: kid, key: key, pub: pub, issuer: issuer}, nil
}

// NewEdDSAKeypairFromPEM loads an Ed25519 private key from PKCS8 PEM bytes,
// for deployments where tokens must verify across instances and restarts.
func NewEdDSAKeypairFromPEM(kid, issuer string, pemKey []byte) (*EdDSAKeypair, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}

	return &EdDSAKeypair{
		kid:    kid,
		key:    key,
		pub:    key.Public().(ed25519.PublicKey),
		issuer: issuer,
	}, nil
}

// Sign takes claims and turns them into a signed JWT string.
func (s *EdDSAKeypair) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// Verify validates the JWT string and returns its parsed Claims.
func (s *EdDSAKeypair) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parser := jwt.NewParser(opts...)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != s.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return s.pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("jwtx: invalid token claims")
	}

	return claims, nil
}
