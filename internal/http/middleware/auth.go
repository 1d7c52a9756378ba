package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cosmas28/business-connect-v2/internal/domain"
	"github.com/cosmas28/business-connect-v2/internal/service"
)

const claimsKey = "tokenClaims"

// Auth validates the Authorization header and attaches claims before
// dispatch. Handlers behind it never see an unverified request.
type Auth struct {
	AuthService *service.AuthService
}

// ValidateJWT ensures the request carries a valid, unrevoked access token.
func (m *Auth) ValidateJWT(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "response_message": "Authorization header required."})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "response_message": "Bearer token required."})
		return
	}

	claims, err := m.AuthService.VerifyAccess(c.Request.Context(), strings.TrimSpace(parts[1]))
	if err != nil {
		status := http.StatusUnauthorized
		if svcErr, ok := err.(*service.Error); ok && svcErr.Code == service.CodeUnavailable {
			status = http.StatusServiceUnavailable
		}
		c.AbortWithStatusJSON(status, gin.H{"error": "invalid_token", "response_message": "Invalid access token."})
		return
	}

	c.Set(claimsKey, claims)
	c.Next()
}

// GetClaims exposes the verified token claims to handlers.
func GetClaims(c *gin.Context) (domain.IssuedToken, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return domain.IssuedToken{}, false
	}
	claims, ok := value.(domain.IssuedToken)
	return claims, ok
}
