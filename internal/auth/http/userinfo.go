package http

import (
	"errors"
	"net/http"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

type UserInfoHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		User Info Endpoint
//	@Description	Returns the profile of the authenticated user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.UserInfoResponse	"user_id, username, provider"
//	@Failure		401	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/auth/user [get].
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)

	user, err := h.UserService.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Token subject no longer exists; treat as unauthenticated.
			httpx.WriteJSON(w, http.StatusUnauthorized, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidToken,
				ErrorDescription: "Unknown user",
			})
			return
		}
		log.Error("failed to fetch user info", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "Failed to fetch user info",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.UserInfoResponse{
		UserID:   user.ID,
		Username: user.Username,
		Provider: user.Provider,
	})
}
