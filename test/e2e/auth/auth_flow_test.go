package auth_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// noRedirectClient returns redirects to the caller instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestLoginRedirectsToIdentityProvider(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := noRedirectClient().Get(baseURL + "/v1/auth/github")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "https://github.com/login/oauth/authorize"), location)

	// The bridging token rides along as the state parameter.
	require.Contains(t, location, "state=")
}

func TestUnknownProviderRejected(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	resp, err := noRedirectClient().Get(baseURL + "/v1/auth/not-a-provider")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionTokenPollRefusesUnknownState(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	_, err := client.PollSessionToken(ctx, "definitely-not-a-state")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	// A pending state minted by login is refused the same way before the
	// callback completes.
	resp, err := noRedirectClient().Get(baseURL + "/v1/auth/github")
	require.NoError(t, err)
	resp.Body.Close()

	location := resp.Header.Get("Location")
	idx := strings.Index(location, "state=")
	require.GreaterOrEqual(t, idx, 0)
	state := location[idx+len("state="):]
	if amp := strings.Index(state, "&"); amp >= 0 {
		state = state[:amp]
	}

	_, err = client.PollSessionToken(ctx, state)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestPasskeyCeremonyRejectsForeignOrigin(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	_, err := client.RegisterCredentialOptions(ctx, "https://evil.example", "some-user")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeInvalidOrigin, apiErr.Code)
}

func TestUserEndpointRequiresSession(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	_, err := client.UserInfo(ctx, "")
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
