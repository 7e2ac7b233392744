package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pushprotocol/authd/internal/auth/domain"
	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/internal/auth/store/drivers/sqlite"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/idx"
	"github.com/pushprotocol/authd/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testFrontend = "https://app.example"

type testEnv struct {
	router  *Router
	store   store.Store
	keypair *jwtx.EdDSAKeypair
	tokens  *service.TokenService
	users   *service.UserService
}

// fakeProvider lets login/callback be exercised without GitHub.
type fakeProvider struct {
	identity service.Identity
}

func (p *fakeProvider) Name() string { return "github" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (service.Identity, error) {
	return p.identity, nil
}

// fakeCeremonyVerifier keeps the passkey routes wired without real crypto.
type fakeCeremonyVerifier struct{}

func (fakeCeremonyVerifier) RegistrationOptions(user domain.User, challenge, rpID, origin string) (json.RawMessage, error) {
	return json.RawMessage(`{"publicKey":{"challenge":"` + challenge + `"}}`), nil
}

func (fakeCeremonyVerifier) VerifyRegistration(user domain.User, challenge, rpID, origin string, response []byte) (service.RegisteredCredential, error) {
	return service.RegisteredCredential{CredentialID: "Y3JlZA", PublicKey: []byte{0x01}}, nil
}

func (fakeCeremonyVerifier) AuthenticationOptions(cred domain.Credential, challenge, rpID, origin string) (json.RawMessage, error) {
	return json.RawMessage(`{"publicKey":{"challenge":"` + challenge + `"}}`), nil
}

func (fakeCeremonyVerifier) VerifyAuthentication(user domain.User, cred domain.Credential, challenge, rpID, origin string, response []byte) (uint32, error) {
	return 1, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	keypair, err := jwtx.NewEphemeralEdDSAKeypair("test-1", "test-issuer")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)

	tokens := &service.TokenService{Store: st}
	users := &service.UserService{Store: st}
	challenges := &service.ChallengeService{Store: st}

	router := NewRouter(keypair, keypair, testFrontend, "test", st, logger)
	router.TokenService = tokens
	router.UserService = users
	router.OAuthService = &service.OAuthService{
		Tokens:      tokens,
		Users:       users,
		Signer:      keypair,
		Provider:    &fakeProvider{identity: service.Identity{ProviderUserID: "42", Username: "alice"}},
		Issuer:      "test-issuer",
		FrontendURL: testFrontend,
		SuccessPath: "/#/profile",
	}
	router.PasskeyService = &service.PasskeyService{
		Store:      st,
		Verifier:   fakeCeremonyVerifier{},
		Origins:    &service.OriginResolver{Origins: []string{testFrontend}, RPIDs: []string{"app.example"}},
		Challenges: challenges,
	}
	router.VaultService = &service.VaultService{Store: st}
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, keypair: keypair, tokens: tokens, users: users}
}

func (e *testEnv) do(t *testing.T, method, target, bearer string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestSessionTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.tokens.Create(ctx, "")
	require.NoError(t, err)
	require.NoError(t, env.tokens.Activate(ctx, token.ID, "session-jwt"))

	rec := env.do(t, http.MethodGet, "/v1/auth/jwt?state="+token.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authsdk.SessionTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "session-jwt", resp.Token)

	// Replay gets 401, indistinguishable from a guessed state.
	rec = env.do(t, http.MethodGet, "/v1/auth/jwt?state="+token.ID, "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/auth/jwt?state=bogus", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Missing state is a client error, not a 401.
	rec = env.do(t, http.MethodGet, "/v1/auth/jwt", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRedirectsToProvider(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/v1/auth/github", "", "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://idp.example/authorize?state=")

	rec = env.do(t, http.MethodGet, "/v1/auth/unknown-idp", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallbackActivatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	token, err := env.tokens.Create(ctx, "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/v1/auth/github/callback?state="+token.ID+"&code=abc", "", "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), testFrontend+"/#/profile?state="+token.ID)

	// The activated token now redeems to a verifiable session JWT.
	payload, err := env.tokens.Redeem(ctx, token.ID)
	require.NoError(t, err)

	claims, err := env.keypair.Verify(payload)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)

	// Re-running the callback with the same state fails.
	rec = env.do(t, http.MethodGet, "/v1/auth/github/callback?state="+token.ID+"&code=abc", "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserInfoRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec := env.do(t, http.MethodGet, "/v1/auth/user", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	user, err := env.users.FindOrCreate(ctx, "github", "42", "alice")
	require.NoError(t, err)

	claims := jwtx.NewSessionClaims(user.ID, user.Username, "test-issuer", time.Hour, time.Now())
	session, err := env.keypair.Sign(claims)
	require.NoError(t, err)

	rec = env.do(t, http.MethodGet, "/v1/auth/user", session, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authsdk.UserInfoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.ID, resp.UserID)
	require.Equal(t, "alice", resp.Username)
}

func TestPasskeyEndpointsEnforceOrigin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.FindOrCreate(ctx, "github", "42", "alice")
	require.NoError(t, err)

	body := `{"userId":"` + user.ID + `"}`

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/passkey/register-credential", strings.NewReader(body))
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/passkey/register-credential", strings.NewReader(body))
	req.Header.Set("Origin", testFrontend)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authsdk.CeremonyOptionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Options)
}

func TestVaultEnforcesSubjectMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.users.FindOrCreate(ctx, "github", "42", "alice")
	require.NoError(t, err)

	claims := jwtx.NewSessionClaims(user.ID, user.Username, "test-issuer", time.Hour, time.Now())
	session, err := env.keypair.Sign(claims)
	require.NoError(t, err)

	otherID := idx.New().String()
	rec := env.do(t, http.MethodGet, "/v1/auth/passkey/transaction/"+otherID, session, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Matching subject but no passkey yet.
	rec = env.do(t, http.MethodGet, "/v1/auth/passkey/transaction/"+user.ID, session, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLivez(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authsdk.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/readyz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
