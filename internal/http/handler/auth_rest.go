package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/domain"
	"github.com/cosmas28/business-connect-v2/internal/http/middleware"
	"github.com/cosmas28/business-connect-v2/internal/service"
)

// Register creates a new account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email           string `json:"email"`
		Username        string `json:"username"`
		FirstName       string `json:"first_name"`
		LastName        string `json:"last_name"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "response_message": "Invalid payload."})
		return
	}

	_, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email:           req.Email,
		Username:        req.Username,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"response_message": "You have successfully created an account!"})
}

// Login validates credentials and returns an access/refresh pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "response_message": "Invalid payload."})
		return
	}

	result, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response_message": "You logged in successfully!",
		"access_token":     result.AccessToken,
		"refresh_token":    result.RefreshToken,
		"user_id":          result.UserID,
	})
}

// LogoutAccess revokes the bearer access token on the request.
func (h *AuthHandler) LogoutAccess(c *gin.Context) {
	h.logout(c, domain.KindAccess)
}

// LogoutRefresh revokes the bearer refresh token on the request.
func (h *AuthHandler) LogoutRefresh(c *gin.Context) {
	h.logout(c, domain.KindRefresh)
}

func (h *AuthHandler) logout(c *gin.Context, kind domain.TokenKind) {
	encoded, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "response_message": "Bearer token required."})
		return
	}

	if err := h.Auth.Logout(c.Request.Context(), encoded, kind); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response_message": "Log out has been successful!"})
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	encoded, ok := bearerToken(c)
	if !ok {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "response_message": "Refresh token required."})
			return
		}
		encoded = req.RefreshToken
	}

	result, err := h.Auth.Refresh(c.Request.Context(), encoded)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken})
}

// PasswordForgot mints a reset token for the account. The response is the
// same whether or not the email is registered.
func (h *AuthHandler) PasswordForgot(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "response_message": "Email is required!"})
		return
	}

	reset, err := h.Auth.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		var svcErr *service.Error
		if errors.As(err, &svcErr) && svcErr.Code == service.CodeNotFound {
			// Uniform response; do not confirm whether the account exists.
			c.JSON(http.StatusOK, gin.H{"response_message": "If the account exists, password reset instructions have been sent."})
			return
		}
		respondError(c, err)
		return
	}

	// Token delivery (email) is outside this service; hand it to the
	// mailer pipeline via the audit log only.
	h.log().Info("password reset token issued",
		zap.Int64("user_id", reset.UserID),
		zap.Time("expires_at", reset.ExpiresAt),
	)
	c.JSON(http.StatusOK, gin.H{"response_message": "If the account exists, password reset instructions have been sent."})
}

// PasswordReset overwrites the password for a caller-supplied email.
func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "response_message": "Invalid payload."})
		return
	}

	if err := h.Auth.ResetPassword(c.Request.Context(), req.Email, req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response_message": "Password reset successfully!"})
}

// PasswordResetConfirm overwrites the password for the email bound inside a
// valid reset token. Kept separate from PasswordReset so proof of mailbox
// ownership is never conflated with knowing an address.
func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var req struct {
		ResetToken      string `json:"reset_token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ResetToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "response_message": "Reset token is required!"})
		return
	}

	if err := h.Auth.ResetPasswordWithToken(c.Request.Context(), req.ResetToken, req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"response_message": "Password reset successfully!"})
}

// Me returns the authenticated subject from the validated access token.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "response_message": "Invalid access token."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    claims.UserID,
		"expires_at": claims.ExpiresAt,
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
