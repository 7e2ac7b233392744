package authsdk

import "encoding/json"

// ErrorResponse is the standard error body, OAuth2-style per RFC 6749.
type ErrorResponse struct {
	// Error is the machine-readable error code (e.g., "invalid_request")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description"`
}

// Common error codes.
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidGrant   = "invalid_grant"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeInvalidOrigin  = "invalid_origin"
	ErrorCodeAccessDenied   = "access_denied"
	ErrorCodeServerError    = "server_error"
)

// SessionTokenResponse is returned by the bridging-token poll endpoint once
// the login flow has completed.
type SessionTokenResponse struct {
	// Token is the signed session JWT
	Token string `json:"token"`
}

// UserInfoResponse is the JWT-guarded profile endpoint body.
type UserInfoResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Provider string `json:"provider,omitempty"`
}

// CeremonyOptionsResponse wraps the browser-facing WebAuthn options document.
// The options field is passed straight to navigator.credentials.
type CeremonyOptionsResponse struct {
	Options json.RawMessage `json:"options"`
}

// VerifyResponse reports a ceremony verification outcome.
type VerifyResponse struct {
	Verified bool `json:"verified"`
}

// RegisterCredentialRequest starts a registration ceremony.
type RegisterCredentialRequest struct {
	UserID string `json:"userId"`
}

// VerifyRegistrationRequest finishes a registration ceremony. Credential is
// the browser's attestation response, passed through verbatim.
type VerifyRegistrationRequest struct {
	UserID     string          `json:"userId"`
	Credential json.RawMessage `json:"credential"`
}

// VaultDataRequest and VaultDataResponse carry the encrypted mnemonic share.
// Both fields are opaque to the service.
type VaultDataRequest struct {
	TransactionHash string `json:"transactionHash"`
	IV              string `json:"iv"`
}

type VaultDataResponse struct {
	TransactionHash string `json:"transactionHash"`
	IV              string `json:"iv"`
}

// HealthChecks reports per-dependency status in readiness responses.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
