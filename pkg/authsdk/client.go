package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a decoded ErrorResponse with its HTTP status attached. All
// non-2xx responses surface as this type.
type APIError struct {
	StatusCode int
	Code       string
	Desc       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authsdk: %d %s: %s", e.StatusCode, e.Code, e.Desc)
}

// SDKClient is a typed client for the auth service.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Livez checks the liveness endpoint.
func (c *SDKClient) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", "", nil, nil, &out)
	return out, err
}

// Readyz checks the readiness endpoint.
func (c *SDKClient) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", "", nil, nil, &out)
	return out, err
}

// PollSessionToken redeems a bridging token by its state value. A 401 means
// the token is missing, expired, pending, or already redeemed; the server
// does not say which.
func (c *SDKClient) PollSessionToken(ctx context.Context, state string) (SessionTokenResponse, error) {
	var out SessionTokenResponse
	path := "/v1/auth/jwt?state=" + url.QueryEscape(state)
	err := c.do(ctx, http.MethodGet, path, "", nil, nil, &out)
	return out, err
}

// UserInfo fetches the profile behind the session token.
func (c *SDKClient) UserInfo(ctx context.Context, sessionToken string) (UserInfoResponse, error) {
	var out UserInfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/user", sessionToken, nil, nil, &out)
	return out, err
}

// RegisterCredentialOptions starts a passkey registration ceremony.
func (c *SDKClient) RegisterCredentialOptions(ctx context.Context, origin, userID string) (CeremonyOptionsResponse, error) {
	var out CeremonyOptionsResponse
	req := RegisterCredentialRequest{UserID: userID}
	err := c.do(ctx, http.MethodPost, "/v1/auth/passkey/register-credential", "", originHeader(origin), req, &out)
	return out, err
}

// VerifyRegistration finishes a passkey registration ceremony.
func (c *SDKClient) VerifyRegistration(ctx context.Context, origin, userID string, credential json.RawMessage) (VerifyResponse, error) {
	var out VerifyResponse
	req := VerifyRegistrationRequest{UserID: userID, Credential: credential}
	err := c.do(ctx, http.MethodPost, "/v1/auth/passkey/verify-registration", "", originHeader(origin), req, &out)
	return out, err
}

// AuthenticationChallenge starts a passkey authentication ceremony.
func (c *SDKClient) AuthenticationChallenge(ctx context.Context, origin, userID string) (CeremonyOptionsResponse, error) {
	var out CeremonyOptionsResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/passkey/challenge/"+url.PathEscape(userID), "", originHeader(origin), nil, &out)
	return out, err
}

// VerifyAuthentication finishes a passkey authentication ceremony. The body
// is the browser's assertion response, passed through verbatim.
func (c *SDKClient) VerifyAuthentication(ctx context.Context, origin, userID string, assertion json.RawMessage) (VerifyResponse, error) {
	var out VerifyResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/passkey/verify/"+url.PathEscape(userID), "", originHeader(origin), assertion, &out)
	return out, err
}

// PutVaultData stores the encrypted mnemonic share.
func (c *SDKClient) PutVaultData(ctx context.Context, sessionToken, userID string, data VaultDataRequest) error {
	return c.do(ctx, http.MethodPut, "/v1/auth/passkey/transaction/"+url.PathEscape(userID), sessionToken, nil, data, nil)
}

// GetVaultData reads the encrypted mnemonic share back.
func (c *SDKClient) GetVaultData(ctx context.Context, sessionToken, userID string) (VaultDataResponse, error) {
	var out VaultDataResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/passkey/transaction/"+url.PathEscape(userID), sessionToken, nil, nil, &out)
	return out, err
}

func originHeader(origin string) map[string]string {
	if origin == "" {
		return nil
	}
	return map[string]string{"Origin": origin}
}

func (c *SDKClient) do(
	ctx context.Context,
	method, path, bearer string,
	headers map[string]string,
	in, out any,
) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("authsdk: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("authsdk: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("authsdk: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Error,
			Desc:       apiErr.ErrorDescription,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("authsdk: decode response: %w", err)
	}
	return nil
}
