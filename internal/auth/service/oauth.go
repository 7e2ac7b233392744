package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/pushprotocol/authd/pkg/jwtx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

var ErrIdentityExchange = errors.New("identity provider exchange failed")

// Identity is what an identity provider vouches for after a successful
// code exchange.
type Identity struct {
	ProviderUserID string
	Username       string
}

// IdentityProvider abstracts the upstream OAuth provider. The bridging token
// ID travels through it untouched as the state parameter.
type IdentityProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Identity, error)
}

// OAuthService drives the browser login flow: mint a bridging token, send
// the browser to the provider, and on callback activate the token with a
// freshly signed session token.
type OAuthService struct {
	Tokens   *TokenService
	Users    *UserService
	Signer   jwtx.Signer
	Provider IdentityProvider
	Issuer   string

	// FrontendURL is where the callback sends the browser after a
	// successful login. The state value rides along so the page can poll
	// for its session token.
	FrontendURL string
	SuccessPath string
}

// BeginLogin mints a pending bridging token and returns the provider URL the
// browser should be redirected to.
func (s *OAuthService) BeginLogin(ctx context.Context, redirectURI string) (string, error) {
	token, err := s.Tokens.Create(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	return s.Provider.AuthCodeURL(token.ID), nil
}

// HandleCallback exchanges the provider code, resolves the user, signs a
// session token, and activates the bridging token with it. Returns the
// frontend URL the browser should land on.
func (s *OAuthService) HandleCallback(ctx context.Context, state, code string) (string, error) {
	log := slogx.FromContext(ctx)

	// 1. Exchange the code for an identity.
	identity, err := s.Provider.Exchange(ctx, code)
	if err != nil {
		log.Warn("identity exchange failed",
			slog.String("provider", s.Provider.Name()),
			slog.Any("error", err),
		)
		return "", ErrIdentityExchange
	}

	// 2. First login creates the user.
	user, err := s.Users.FindOrCreate(ctx, s.Provider.Name(), identity.ProviderUserID, identity.Username)
	if err != nil {
		return "", err
	}

	// 3. Sign the session token.
	claims := jwtx.NewSessionClaims(user.ID, user.Username, s.Issuer, jwtx.DefaultSessionTTL, time.Now().UTC())
	session, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign session token", slog.Any("error", err))
		return "", err
	}

	// 4. Activate the bridging token so the poller can collect the session.
	if err := s.Tokens.Activate(ctx, state, session); err != nil {
		return "", err
	}

	log.Info("login completed",
		slog.String("user_id", user.ID),
		slog.String("provider", s.Provider.Name()),
	)
	return s.successURL(state), nil
}

func (s *OAuthService) successURL(state string) string {
	path := s.SuccessPath
	if path == "" {
		path = "/#/profile"
	}
	return fmt.Sprintf("%s%s?state=%s", s.FrontendURL, path, url.QueryEscape(state))
}
