package http

import (
	"errors"
	"net/http"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

type LoginHandler struct {
	OAuthService *service.OAuthService
}

// ServeHTTP godoc
//
//	@Summary		Login Initiation Endpoint
//	@Description	Mints a bridging token and redirects the browser to the identity provider
//	@Tags			OAuth
//	@Param			provider	path	string	true	"Identity provider key"
//	@Param			redirectUri	query	string	false	"Advisory post-login redirect"
//	@Success		307			"Redirect to the identity provider"
//	@Failure		404			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/{provider} [get].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	provider := r.PathValue("provider")
	if provider != h.OAuthService.Provider.Name() {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Unknown identity provider",
		})
		return
	}

	authURL, err := h.OAuthService.BeginLogin(ctx, r.URL.Query().Get("redirectUri"))
	if err != nil {
		log.Error("failed to begin login", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "Failed to start login",
		})
		return
	}

	http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
}

type CallbackHandler struct {
	OAuthService *service.OAuthService
}

// ServeHTTP godoc
//
//	@Summary		OAuth Callback Endpoint
//	@Description	Exchanges the provider code, activates the bridging token, and redirects to the frontend
//	@Tags			OAuth
//	@Param			provider	path	string	true	"Identity provider key"
//	@Param			code		query	string	true	"Authorization code"
//	@Param			state		query	string	true	"Bridging token id"
//	@Success		307			"Redirect to the frontend"
//	@Failure		400			{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/{provider}/callback [get].
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	provider := r.PathValue("provider")
	if provider != h.OAuthService.Provider.Name() {
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Unknown identity provider",
		})
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "state and code are required",
		})
		return
	}

	frontendURL, err := h.OAuthService.HandleCallback(ctx, state, code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIdentityExchange):
			httpx.WriteJSON(w, http.StatusBadGateway, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidGrant,
				ErrorDescription: "Identity provider exchange failed",
			})
		case errors.Is(err, service.ErrTokenNotFound):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidGrant,
				ErrorDescription: "Login state is invalid or expired",
			})
		case errors.Is(err, service.ErrTokenAlreadyActive):
			httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidGrant,
				ErrorDescription: "Login state has already been completed",
			})
		default:
			log.Error("failed to complete login", "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeServerError,
				ErrorDescription: "Failed to complete login",
			})
		}
		return
	}

	http.Redirect(w, r, frontendURL, http.StatusTemporaryRedirect)
}

type LogoutHandler struct {
	FrontendURL string
}

// ServeHTTP godoc
//
//	@Summary		Logout Endpoint
//	@Description	Sends the browser back to the frontend; session tokens are stateless so there is nothing to revoke server side
//	@Tags			OAuth
//	@Success		307	"Redirect to the frontend"
//	@Router			/v1/auth/logout [get].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.FrontendURL, http.StatusTemporaryRedirect)
}
