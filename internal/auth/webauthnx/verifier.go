// Package webauthnx backs the ceremony verifier with the go-webauthn
// library. Challenge values are owned by the caller; this package only wraps
// them in option documents and checks responses against them.
package webauthnx

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/service"
)

// Verifier implements service.CeremonyVerifier. A fresh library instance is
// built per call because the relying-party binding comes from the resolved
// origin, not from static config.
type Verifier struct {
	// RPDisplayName is shown by the browser during ceremonies.
	RPDisplayName string
}

var _ service.CeremonyVerifier = (*Verifier)(nil)

func (v *Verifier) instance(rpID, origin string) (*webauthn.WebAuthn, error) {
	return webauthn.New(&webauthn.Config{
		RPDisplayName: v.RPDisplayName,
		RPID:          rpID,
		RPOrigins:     []string{origin},
	})
}

// RegistrationOptions builds the credential creation options document around
// the caller's challenge.
func (v *Verifier) RegistrationOptions(user domain.User, challenge, rpID, origin string) (json.RawMessage, error) {
	wa, err := v.instance(rpID, origin)
	if err != nil {
		return nil, err
	}

	raw, err := base64.RawURLEncoding.DecodeString(challenge)
	if err != nil {
		return nil, fmt.Errorf("webauthnx: decode challenge: %w", err)
	}

	creation, _, err := wa.BeginRegistration(
		ceremonyUser{user: user},
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementPreferred),
	)
	if err != nil {
		return nil, err
	}

	// The library mints its own challenge; swap in ours so the stored
	// challenge row is the single source of truth.
	creation.Response.Challenge = protocol.URLEncodedBase64(raw)

	return json.Marshal(creation)
}

// VerifyRegistration checks the browser's attestation response against the
// caller's challenge and returns the credential it proves.
func (v *Verifier) VerifyRegistration(user domain.User, challenge, rpID, origin string, response []byte) (service.RegisteredCredential, error) {
	wa, err := v.instance(rpID, origin)
	if err != nil {
		return service.RegisteredCredential{}, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return service.RegisteredCredential{}, fmt.Errorf("webauthnx: parse attestation: %w", err)
	}

	session := webauthn.SessionData{
		Challenge: challenge,
		UserID:    []byte(user.ID),
	}

	cred, err := wa.CreateCredential(ceremonyUser{user: user}, session, parsed)
	if err != nil {
		return service.RegisteredCredential{}, err
	}

	return service.RegisteredCredential{
		CredentialID: base64.RawURLEncoding.EncodeToString(cred.ID),
		PublicKey:    cred.PublicKey,
		Counter:      cred.Authenticator.SignCount,
	}, nil
}

// AuthenticationOptions builds the assertion request document scoped to the
// user's single active credential.
func (v *Verifier) AuthenticationOptions(cred domain.Credential, challenge, rpID, origin string) (json.RawMessage, error) {
	wa, err := v.instance(rpID, origin)
	if err != nil {
		return nil, err
	}

	raw, err := base64.RawURLEncoding.DecodeString(challenge)
	if err != nil {
		return nil, fmt.Errorf("webauthnx: decode challenge: %w", err)
	}

	waCred, err := libraryCredential(cred)
	if err != nil {
		return nil, err
	}

	assertion, _, err := wa.BeginLogin(ceremonyUser{
		user:        domain.User{ID: cred.UserID},
		credentials: []webauthn.Credential{waCred},
	})
	if err != nil {
		return nil, err
	}

	assertion.Response.Challenge = protocol.URLEncodedBase64(raw)

	return json.Marshal(assertion)
}

// VerifyAuthentication checks the browser's assertion against the caller's
// challenge and credential, returning the authenticator's reported counter.
func (v *Verifier) VerifyAuthentication(user domain.User, cred domain.Credential, challenge, rpID, origin string, response []byte) (uint32, error) {
	wa, err := v.instance(rpID, origin)
	if err != nil {
		return 0, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return 0, fmt.Errorf("webauthnx: parse assertion: %w", err)
	}

	waCred, err := libraryCredential(cred)
	if err != nil {
		return 0, err
	}

	session := webauthn.SessionData{
		Challenge: challenge,
		UserID:    []byte(user.ID),
	}

	validated, err := wa.ValidateLogin(ceremonyUser{
		user:        user,
		credentials: []webauthn.Credential{waCred},
	}, session, parsed)
	if err != nil {
		return 0, err
	}

	return validated.Authenticator.SignCount, nil
}

func libraryCredential(cred domain.Credential) (webauthn.Credential, error) {
	id, err := base64.RawURLEncoding.DecodeString(cred.CredentialID)
	if err != nil {
		return webauthn.Credential{}, fmt.Errorf("webauthnx: decode credential id: %w", err)
	}
	return webauthn.Credential{
		ID:        id,
		PublicKey: cred.PublicKey,
		Authenticator: webauthn.Authenticator{
			SignCount: cred.Counter,
		},
	}, nil
}

// ceremonyUser adapts a domain user to the library's User interface.
type ceremonyUser struct {
	user        domain.User
	credentials []webauthn.Credential
}

func (u ceremonyUser) WebAuthnID() []byte { return []byte(u.user.ID) }

func (u ceremonyUser) WebAuthnName() string {
	if u.user.Username != "" {
		return u.user.Username
	}
	return u.user.ID
}

func (u ceremonyUser) WebAuthnDisplayName() string { return u.WebAuthnName() }

func (u ceremonyUser) WebAuthnIcon() string { return "" }

func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }
