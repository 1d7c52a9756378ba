package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cosmas28/business-connect-v2/internal/service"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger *zap.Logger
}

// NewAuthHandler creates the handler set.
func NewAuthHandler(auth *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Logger: logger}
}

// respondError maps service errors onto transport responses. Anything that
// is not a typed service error becomes an opaque 500; raw error text never
// reaches the caller.
func respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Status, gin.H{
			"error":            svcErr.Code,
			"response_message": svcErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":            "server_error",
		"response_message": "Something went wrong. Please try again.",
	})
}

func (h *AuthHandler) log() *zap.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return zap.L()
}
