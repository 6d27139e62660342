package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/carehub/internal/config"
	"github.com/geocoder89/carehub/internal/http/middlewares"
	"github.com/geocoder89/carehub/internal/service/authflow"
	"github.com/gin-gonic/gin"
)

const refreshCookieName = "refreshToken"

type AuthFlow interface {
	Login(ctx context.Context, email, password string) (authflow.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (authflow.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, userID, newPassword string) error
}

type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	flow   AuthFlow
	cookie CookieConfig
	log    *slog.Logger
}

func NewAuthHandler(flow AuthFlow, cookie CookieConfig, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{flow: flow, cookie: cookie, log: log}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	ID          string `json:"id" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	res, err := h.flow.Login(cctx, req.Email, req.Password)
	if err != nil {
		respondAuthError(ctx, err)
		return
	}

	h.setRefreshCookie(ctx, res.RefreshToken)

	RespondOK(ctx, http.StatusOK, "Logged in successfully", res)
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(refreshCookieName)
	if err != nil || raw == "" {
		RespondForbidden(ctx, "no_refresh", "You are not authorized")
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	res, err := h.flow.Refresh(cctx, raw)
	if err != nil {
		respondAuthError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Access token generated successfully", res)
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, _ := ctx.Cookie(refreshCookieName)

	if raw != "" {
		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		// the cookie is cleared either way
		if err := h.flow.Logout(cctx, raw); err != nil {
			h.log.ErrorContext(ctx.Request.Context(), "auth.logout_revoke_failed", "err", err)
		}
	}

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) ChangePassword(ctx *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req ChangePasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.flow.ChangePassword(cctx, userID, req.OldPassword, req.NewPassword); err != nil {
		respondAuthError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Password changed successfully", nil)
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.flow.ForgotPassword(cctx, req.Email); err != nil {
		respondAuthError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Check your email", nil)
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	token := ctx.GetHeader("Authorization")
	if token == "" {
		RespondUnauthorized(ctx, "unauthorized", "Missing reset token")
		return
	}

	var req ResetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.flow.ResetPassword(cctx, token, req.ID, req.NewPassword); err != nil {
		respondAuthError(ctx, err)
		return
	}

	RespondOK(ctx, http.StatusOK, "Password reset successfully", nil)
}

func respondAuthError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, authflow.ErrNotFound):
		RespondNotFound(ctx, "User does not exist")
	case errors.Is(err, authflow.ErrUnauthorized):
		RespondUnauthorized(ctx, "invalid_credentials", "Password is incorrect or token is invalid")
	case errors.Is(err, authflow.ErrForbidden):
		RespondForbidden(ctx, "forbidden", "You are not authorized")
	case errors.Is(err, authflow.ErrBadRequest):
		RespondBadRequest(ctx, "User does not exist or is not active", nil)
	default:
		RespondInternal(ctx, "Something went wrong")
	}
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, raw, int(h.cookie.MaxAge.Seconds()), "/", "", h.cookie.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, "/", "", h.cookie.Secure, true)
}
