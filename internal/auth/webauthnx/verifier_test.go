package webauthnx

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

const (
	testRPID   = "app.example"
	testOrigin = "https://app.example"
)

func testChallenge(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// optionsEnvelope pulls the challenge back out of the browser-facing
// publicKey options document.
type optionsEnvelope struct {
	PublicKey struct {
		Challenge string `json:"challenge"`
		RPID      string `json:"rpId"`
	} `json:"publicKey"`
}

func TestRegistrationOptionsCarryCallerChallenge(t *testing.T) {
	v := &Verifier{RPDisplayName: "Test RP"}
	challenge := testChallenge(t)

	opts, err := v.RegistrationOptions(domain.User{ID: "user-1", Username: "alice"}, challenge, testRPID, testOrigin)
	require.NoError(t, err)

	var env optionsEnvelope
	require.NoError(t, json.Unmarshal(opts, &env))
	require.Equal(t, challenge, env.PublicKey.Challenge,
		"options must carry the stored challenge, not a library-minted one")
}

func TestAuthenticationOptionsCarryCallerChallenge(t *testing.T) {
	v := &Verifier{RPDisplayName: "Test RP"}
	challenge := testChallenge(t)

	cred := domain.Credential{
		UserID:       "user-1",
		CredentialID: base64.RawURLEncoding.EncodeToString([]byte("cred-1")),
		PublicKey:    []byte{0x01, 0x02},
		Counter:      7,
	}

	opts, err := v.AuthenticationOptions(cred, challenge, testRPID, testOrigin)
	require.NoError(t, err)

	var env optionsEnvelope
	require.NoError(t, json.Unmarshal(opts, &env))
	require.Equal(t, challenge, env.PublicKey.Challenge)
	require.Equal(t, testRPID, env.PublicKey.RPID)
}

func TestVerifyRegistrationRejectsMalformedResponse(t *testing.T) {
	v := &Verifier{RPDisplayName: "Test RP"}

	_, err := v.VerifyRegistration(domain.User{ID: "user-1"}, testChallenge(t), testRPID, testOrigin, []byte("{not json"))
	require.Error(t, err)
}

func TestVerifyAuthenticationRejectsMalformedResponse(t *testing.T) {
	v := &Verifier{RPDisplayName: "Test RP"}

	cred := domain.Credential{
		UserID:       "user-1",
		CredentialID: base64.RawURLEncoding.EncodeToString([]byte("cred-1")),
		PublicKey:    []byte{0x01, 0x02},
	}

	_, err := v.VerifyAuthentication(domain.User{ID: "user-1"}, cred, testChallenge(t), testRPID, testOrigin, []byte("{not json"))
	require.Error(t, err)
}
