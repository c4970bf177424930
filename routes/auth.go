package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/basit/nua-backend/auth/oauth"
	"github.com/basit/nua-backend/handlers"
)

func RegisterAuthRoutes(r *gin.Engine) {
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", handlers.Register)
	authGroup.POST("/login", handlers.Login)
	authGroup.POST("/refresh", handlers.Refresh)

	r.GET("/auth/:provider", oauth.BeginAuth)
	r.GET("/auth/:provider/callback", oauth.CompleteAuth)
}
