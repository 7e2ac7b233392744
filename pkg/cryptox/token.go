package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// ChallengeSize is the entropy of a WebAuthn ceremony challenge, per the
// spec recommendation of at least 16 bytes.
const ChallengeSize = TokenSize256

// GenerateToken creates a cryptographically secure random token of the
// specified byte length. The token is returned as a base64url-encoded string
// (URL-safe, no padding).
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateChallenge creates a fresh ceremony challenge in its canonical
// base64url encoding. Stored and transmitted in this form; the WebAuthn
// client data echoes the same encoding back.
func GenerateChallenge() (string, error) {
	return GenerateToken(ChallengeSize)
}
