package http

import (
	"errors"
	"net/http"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

type SessionTokenHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Session Token Poll Endpoint
//	@Description	Redeems a bridging token by its state value. Succeeds exactly once per token;
//	@Description	every unusable state (missing, expired, pending, already redeemed) gets the same 401
//	@Tags			OAuth
//	@Produce		json
//	@Param			state	query		string							true	"Bridging token id"
//	@Success		200		{object}	authsdk.SessionTokenResponse	"token"
//	@Failure		401		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/auth/jwt [get].
func (h *SessionTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	state := r.URL.Query().Get("state")
	if state == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "state is required",
		})
		return
	}

	token, err := h.TokenService.Redeem(ctx, state)
	if err != nil {
		if errors.Is(err, service.ErrTokenUnauthorized) {
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidGrant,
				ErrorDescription: "State is invalid, expired, or already used",
			})
			return
		}
		log.Error("failed to redeem session token", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "Failed to redeem session token",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SessionTokenResponse{Token: token})
}
