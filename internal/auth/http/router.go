package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/jwtx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	verifier     jwtx.Verifier
	frontendURL  string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	TokenService   *service.TokenService
	UserService    *service.UserService
	OAuthService   *service.OAuthService
	PasskeyService *service.PasskeyService
	VaultService   *service.VaultService
}

func NewRouter(
	signer jwtx.Signer,
	verifier jwtx.Verifier,
	frontendURL, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		frontendURL:  frontendURL,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth()
	r.registerPasskeys()
	r.registerVault()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Push Auth Service API
//	@version		0.1.0
//	@description	Identity bridging service: OAuth login with single-use bridging tokens
//	@description	and WebAuthn passkey ceremonies for the Push key-management frontend.
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth() {
	// GET /v1/auth/jwt - strict rate limit, this is the redemption endpoint
	// pollers hammer with guessed state values
	tokenHandler := &SessionTokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("GET /v1/auth/jwt",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /v1/auth/user - authenticated profile, lenient limit by user
	userHandler := &UserInfoHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/auth/user",
		httpx.Chain(userHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// GET /v1/auth/logout - plain redirect, no auth needed
	r.Mux.Handle("GET /v1/auth/logout",
		httpx.Chain(&LogoutHandler{FrontendURL: r.frontendURL},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Literal patterns above take precedence over the provider wildcard.
	loginHandler := &LoginHandler{OAuthService: r.OAuthService}
	r.Mux.Handle("GET /v1/auth/{provider}",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	callbackHandler := &CallbackHandler{OAuthService: r.OAuthService}
	r.Mux.Handle("GET /v1/auth/{provider}/callback",
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPasskeys() {
	// Options endpoints mint challenge rows; verify endpoints are the brute
	// force targets and get the strict profile.
	r.Mux.Handle("POST /v1/auth/passkey/register-credential",
		httpx.Chain(&RegisterCredentialHandler{PasskeyService: r.PasskeyService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/passkey/verify-registration",
		httpx.Chain(&VerifyRegistrationHandler{PasskeyService: r.PasskeyService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/passkey/challenge/{userId}",
		httpx.Chain(&AuthenticationChallengeHandler{PasskeyService: r.PasskeyService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/passkey/verify/{userId}",
		httpx.Chain(&VerifyAuthenticationHandler{PasskeyService: r.PasskeyService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerVault() {
	h := &VaultHandler{VaultService: r.VaultService}

	r.Mux.Handle("PUT /v1/auth/passkey/transaction/{userId}",
		httpx.Chain(http.HandlerFunc(h.HandlePut),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/auth/passkey/transaction/{userId}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
