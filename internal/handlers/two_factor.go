package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/models"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
)

// TwoFactorServiceInterface defines TOTP enrollment operations
type TwoFactorServiceInterface interface {
	Setup(ctx context.Context, accountID string) (*auth.TOTPEnrollment, error)
	Verify(ctx context.Context, accountID, code string) error
	Disable(ctx context.Context, accountID, code string) error
}

// TwoFactorHandler handles two-factor enrollment for signed-in accounts
type TwoFactorHandler struct {
	service TwoFactorServiceInterface
	logger  *slog.Logger
}

// NewTwoFactorHandler creates a new TwoFactorHandler
func NewTwoFactorHandler(service TwoFactorServiceInterface, logger *slog.Logger) *TwoFactorHandler {
	return &TwoFactorHandler{service: service, logger: logger}
}

// Setup handles POST /auth/2fa/setup
// @Summary Provision a TOTP secret
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TwoFactorSetupResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/2fa/setup [post]
func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	enrollment, err := h.service.Setup(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteError(w, http.StatusConflict, "conflict", "2FA already enabled")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			h.logger.Error("failed to set up 2FA", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TwoFactorSetupResponse{
		Secret:     enrollment.Secret,
		QRCode:     enrollment.QRCode,
		OTPAuthURL: enrollment.OTPAuthURL,
	})
}

// Verify handles POST /auth/2fa/verify
// @Summary Confirm a code and enable 2FA
// @Security BearerAuth
// @Accept json
// @Param request body TwoFactorCodeRequest true "TOTP code"
// @Produce json
// @Success 200 {object} pkghttp.MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/2fa/verify [post]
func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims, req, ok := h.decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.service.Verify(r.Context(), claims.UserID, req.Code); err != nil {
		h.writeCodeError(w, err, models.ErrTwoFactorNotSetUp, "2FA not set up")
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "2FA enabled successfully")
}

// Disable handles POST /auth/2fa/disable
// @Summary Disable 2FA
// @Security BearerAuth
// @Accept json
// @Param request body TwoFactorCodeRequest true "TOTP code"
// @Produce json
// @Success 200 {object} pkghttp.MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/2fa/disable [post]
func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims, req, ok := h.decodeCode(w, r)
	if !ok {
		return
	}

	if err := h.service.Disable(r.Context(), claims.UserID, req.Code); err != nil {
		h.writeCodeError(w, err, models.ErrTwoFactorNotEnabled, "2FA not enabled")
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "2FA disabled successfully")
}

func (h *TwoFactorHandler) decodeCode(w http.ResponseWriter, r *http.Request) (*models.TokenClaims, TwoFactorCodeRequest, bool) {
	var req TwoFactorCodeRequest

	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return nil, req, false
	}

	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return nil, req, false
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return nil, req, false
	}

	return claims, req, true
}

// writeCodeError maps a verify/disable failure. stateErr is the
// "wrong state" sentinel for the endpoint, answered with 400.
func (h *TwoFactorHandler) writeCodeError(w http.ResponseWriter, err, stateErr error, stateMsg string) {
	switch {
	case errors.Is(err, stateErr):
		pkghttp.WriteBadRequest(w, stateMsg)
	case errors.Is(err, models.ErrInvalidTwoFactorCode):
		pkghttp.WriteUnauthorized(w, "Invalid verification code")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	default:
		h.logger.Error("2FA operation failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
