package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cosmas28/business-connect-v2/internal/config"
	"github.com/cosmas28/business-connect-v2/internal/http/handler"
	httpmiddleware "github.com/cosmas28/business-connect-v2/internal/http/middleware"
	"github.com/cosmas28/business-connect-v2/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, authMiddleware *httpmiddleware.Auth, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", authHandler.LogoutAccess)
		authGroup.POST("/logout/refresh", authHandler.LogoutRefresh)
		authGroup.POST("/refresh", authHandler.Refresh)

		password := authGroup.Group("/password")
		{
			password.POST("/forgot", authHandler.PasswordForgot)
			password.POST("/reset", authHandler.PasswordReset)
			password.POST("/reset/confirm", authHandler.PasswordResetConfirm)
		}

		authGroup.GET("/me", authMiddleware.ValidateJWT, authHandler.Me)
	}

	return r
}
