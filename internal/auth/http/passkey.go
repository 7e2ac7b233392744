package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/pkg/authsdk"
	"github.com/pushprotocol/authd/pkg/httpx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

// maxCeremonyBody bounds attestation/assertion bodies. Real responses are a
// few KB; anything near the limit is garbage.
const maxCeremonyBody = 1 << 20

type RegisterCredentialHandler struct {
	PasskeyService *service.PasskeyService
}

// ServeHTTP godoc
//
//	@Summary		Passkey Registration Options Endpoint
//	@Description	Issues a fresh registration challenge and returns the credential creation options.
//	@Description	Any in-flight ceremony for the user is superseded
//	@Tags			Passkeys
//	@Accept			json
//	@Produce		json
//	@Param			Origin	header		string								true	"Browser origin, must be on the allow-list"
//	@Param			request	body		authsdk.RegisterCredentialRequest	true	"userId"
//	@Success		200		{object}	authsdk.CeremonyOptionsResponse		"options"
//	@Failure		403		{object}	authsdk.ErrorResponse				"error, error_description"
//	@Router			/v1/auth/passkey/register-credential [post].
func (h *RegisterCredentialHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.RegisterCredentialRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCeremonyBody)).Decode(&req); err != nil || req.UserID == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "userId is required",
		})
		return
	}

	opts, err := h.PasskeyService.RegistrationOptions(ctx, req.UserID, r.Header.Get("Origin"))
	if err != nil {
		writeCeremonyError(w, log, err, "Failed to build registration options")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CeremonyOptionsResponse{Options: opts})
}

type VerifyRegistrationHandler struct {
	PasskeyService *service.PasskeyService
}

// ServeHTTP godoc
//
//	@Summary		Passkey Registration Verification Endpoint
//	@Description	Verifies the browser's attestation response against the active registration challenge.
//	@Description	On success the new credential replaces every prior one for the user
//	@Tags			Passkeys
//	@Accept			json
//	@Produce		json
//	@Param			Origin	header		string								true	"Browser origin, must be on the allow-list"
//	@Param			request	body		authsdk.VerifyRegistrationRequest	true	"userId, credential"
//	@Success		200		{object}	authsdk.VerifyResponse				"verified"
//	@Failure		400		{object}	authsdk.ErrorResponse				"error, error_description"
//	@Router			/v1/auth/passkey/verify-registration [post].
func (h *VerifyRegistrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.VerifyRegistrationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCeremonyBody)).Decode(&req); err != nil || req.UserID == "" || len(req.Credential) == 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "userId and credential are required",
		})
		return
	}

	if err := h.PasskeyService.VerifyRegistration(ctx, req.UserID, r.Header.Get("Origin"), req.Credential); err != nil {
		writeCeremonyError(w, log, err, "Failed to verify registration")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{Verified: true})
}

type AuthenticationChallengeHandler struct {
	PasskeyService *service.PasskeyService
}

// ServeHTTP godoc
//
//	@Summary		Passkey Authentication Options Endpoint
//	@Description	Issues a fresh authentication challenge scoped to the user's active credential
//	@Tags			Passkeys
//	@Produce		json
//	@Param			Origin	header		string							true	"Browser origin, must be on the allow-list"
//	@Param			userId	path		string							true	"User id"
//	@Success		200		{object}	authsdk.CeremonyOptionsResponse	"options"
//	@Failure		404		{object}	authsdk.ErrorResponse			"error, error_description"
//	@Router			/v1/auth/passkey/challenge/{userId} [get].
func (h *AuthenticationChallengeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("userId")

	opts, err := h.PasskeyService.AuthenticationOptions(ctx, userID, r.Header.Get("Origin"))
	if err != nil {
		writeCeremonyError(w, log, err, "Failed to build authentication options")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.CeremonyOptionsResponse{Options: opts})
}

type VerifyAuthenticationHandler struct {
	PasskeyService *service.PasskeyService
}

// ServeHTTP godoc
//
//	@Summary		Passkey Authentication Verification Endpoint
//	@Description	Verifies the browser's assertion against the active authentication challenge.
//	@Description	The challenge is consumed on every outcome, including replays
//	@Tags			Passkeys
//	@Accept			json
//	@Produce		json
//	@Param			Origin	header		string					true	"Browser origin, must be on the allow-list"
//	@Param			userId	path		string					true	"User id"
//	@Success		200		{object}	authsdk.VerifyResponse	"verified"
//	@Failure		400		{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/passkey/verify/{userId} [post].
func (h *VerifyAuthenticationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := r.PathValue("userId")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCeremonyBody))
	if err != nil || len(body) == 0 {
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "assertion body is required",
		})
		return
	}

	if err := h.PasskeyService.VerifyAuthentication(ctx, userID, r.Header.Get("Origin"), body); err != nil {
		writeCeremonyError(w, log, err, "Failed to verify authentication")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.VerifyResponse{Verified: true})
}

// writeCeremonyError maps ceremony service errors onto the wire. Replays and
// plain verification failures share a response so the caller cannot probe the
// stored counter.
func writeCeremonyError(w http.ResponseWriter, log *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidOrigin):
		httpx.WriteJSON(w, http.StatusForbidden, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidOrigin,
			ErrorDescription: "Origin is not allowed",
		})
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "Unknown user",
		})
	case errors.Is(err, service.ErrAuthenticatorNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidRequest,
			ErrorDescription: "No active passkey for user",
		})
	case errors.Is(err, service.ErrChallengeNotFound):
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeInvalidGrant,
			ErrorDescription: "No active challenge for user",
		})
	case errors.Is(err, service.ErrVerificationFailed), errors.Is(err, service.ErrReplayDetected):
		httpx.WriteJSON(w, http.StatusBadRequest, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeAccessDenied,
			ErrorDescription: "Credential verification failed",
		})
	default:
		log.Error("passkey ceremony failed", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, authsdk.ErrorResponse{
			Error:            authsdk.ErrorCodeServerError,
			ErrorDescription: fallback,
		})
	}
}
