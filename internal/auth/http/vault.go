package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

type VaultHandler struct {
	VaultService *service.VaultService
}

// HandlePut godoc
//
//	@Summary		Vault Store Endpoint
//	@Description	Stores the encrypted mnemonic share on the user's active passkey credential
//	@Tags			Vault
//	@Accept			json
//	@Security		BearerAuth
//	@Param			userId	path	string					true	"User id, must match the token subject"
//	@Param			request	body	authsdk.VaultDataRequest	true	"transactionHash, iv"
//	@Success		204		"Stored"
//	@Failure		403		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/passkey/transaction/{userId} [put].
func (h *VaultHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := h.authorizedUser(w, r)
	if !ok {
		return
	}

	var req authsdk.VaultDataRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCeremonyBody)).Decode(&req); err != nil || req.TransactionHash == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "transactionHash is required",
		})
		return
	}

	if err := h.VaultService.StoreTransactionData(ctx, userID, req.TransactionHash, req.IV); err != nil {
		if errors.Is(err, service.ErrAuthenticatorNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidRequest,
				ErrorDescription: "No active passkey for user",
			})
			return
		}
		log.Error("failed to store vault data", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "Failed to store vault data",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGet godoc
//
//	@Summary		Vault Read Endpoint
//	@Description	Reads the encrypted mnemonic share from the user's active passkey credential
//	@Tags			Vault
//	@Produce		json
//	@Security		BearerAuth
//	@Param			userId	path		string						true	"User id, must match the token subject"
//	@Success		200		{object}	authsdk.VaultDataResponse	"transactionHash, iv"
//	@Failure		403		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/auth/passkey/transaction/{userId} [get].
func (h *VaultHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := h.authorizedUser(w, r)
	if !ok {
		return
	}

	hash, iv, err := h.VaultService.GetTransactionData(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticatorNotFound) {
			httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
				Error:            authsdk.ErrorCodeInvalidRequest,
				ErrorDescription: "No active passkey for user",
			})
			return
		}
		log.Error("failed to read vault data", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: "Failed to read vault data",
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VaultDataResponse{
		TransactionHash: hash,
		IV:              iv,
	})
}

// authorizedUser enforces that the path userId matches the token subject.
// The vault never serves one user's share to another.
func (h *VaultHandler) authorizedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.PathValue("userId")
	if userID == "" || userID != httpx.UserIDFromContext(r.Context()) {
		httpx.WriteJSON(w, http.StatusForbidden, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeAccessDenied,
			ErrorDescription: "Token subject does not match user",
		})
		return "", false
	}
	return userID, true
}
