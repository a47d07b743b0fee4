package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/barberbook/internal/auth"
	"github.com/BradenHooton/barberbook/internal/models"
	"github.com/BradenHooton/barberbook/internal/services"
	pkgauth "github.com/BradenHooton/barberbook/pkg/auth"
	pkghttp "github.com/BradenHooton/barberbook/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.LoginResult, error)
	Register(ctx context.Context, in services.RegisterInput) (*models.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, claims *models.TokenClaims, ipAddress string) error
	VerifyEmail(ctx context.Context, token string) error
	Me(ctx context.Context, accountID string) (*models.PublicProfile, error)
}

// IPGuardInterface gates login attempts per client IP
type IPGuardInterface interface {
	Check(ctx context.Context, ip string) models.IPDecision
	RecordFailure(ctx context.Context, ip string)
	RecordSuccess(ctx context.Context, ip string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipGuard  IPGuardInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipGuard IPGuardInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipGuard:  ipGuard,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	TwoFactorCode string `json:"twoFactorCode,omitempty" validate:"omitempty,len=6"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,max=100"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// VerifyEmailRequest represents the request body for email verification
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	// The IP gate runs before the body is even parsed
	if decision := h.ipGuard.Check(ctx, ipAddress); !decision.Allowed {
		minutes := models.CeilMinutes(decision.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(decision.RetryAfter.Seconds()))))
		pkghttp.WriteLocked(w, fmt.Sprintf("Too many failed attempts. Try again in %d minutes", minutes), minutes)
		return
	}

	var req LoginRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.Login(ctx, models.LoginCredentials{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		IPAddress:     ipAddress,
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		h.logger.Error("login failed unexpectedly", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	if result.Succeeded() {
		h.ipGuard.RecordSuccess(ctx, ipAddress)
		pkghttp.WriteJSON(w, http.StatusOK, result.Success)
		return
	}

	switch result.Rejection.Kind {
	case models.RejectAccountLocked:
		minutes := models.CeilMinutes(result.Rejection.LockRemaining)
		pkghttp.WriteLocked(w, fmt.Sprintf("Account is locked. Try again in %d minutes", minutes), minutes)
	case models.RejectTwoFactorRequired:
		pkghttp.WriteTwoFactorRequired(w, "2FA code required")
	case models.RejectInvalidTwoFactorCode:
		h.ipGuard.RecordFailure(ctx, ipAddress)
		pkghttp.WriteUnauthorized(w, "Invalid 2FA code")
	default:
		h.ipGuard.RecordFailure(ctx, ipAddress)
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	}
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var pwErr *pkgauth.PasswordValidationError
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, "Email already registered")
		case errors.As(err, &pwErr):
			pkghttp.WriteBadRequest(w, pwErr.Error())
		default:
			h.logger.Error("registration failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// RefreshToken handles token refresh
// @Summary Rotate the refresh token
// @Accept json
// @Param request body RefreshTokenRequest true "Refresh token request"
// @Produce json
// @Success 200 {object} models.TokenPair
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/refresh-token [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.service.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, models.ErrSessionExpired) {
			pkghttp.WriteUnauthorized(w, "Session expired, please log in again")
			return
		}
		h.logger.Error("token refresh failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// Logout handles user logout by revoking the access token
// @Summary User logout
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	if err := h.service.Logout(r.Context(), claims, pkghttp.ExtractClientIP(r, h.ipConfig)); err != nil {
		h.logger.Error("logout failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerifyEmail handles email verification with a token
// @Summary Verify email address
// @Accept json
// @Param request body VerifyEmailRequest true "Verify email request"
// @Produce json
// @Success 200 {object} pkghttp.MessageResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := pkghttp.DecodeJSON(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Token); err != nil {
		if errors.Is(err, models.ErrInvalidVerificationToken) {
			pkghttp.WriteBadRequest(w, "Invalid or expired verification token")
			return
		}
		h.logger.Error("email verification failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Email verified successfully")
}

// Me returns the signed-in account's public profile
// @Summary Current account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.PublicProfile
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized")
		return
	}

	profile, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		h.logger.Error("failed to load profile", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profile)
}
