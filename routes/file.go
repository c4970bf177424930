package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/basit/nua-backend/auth/middleware"
	"github.com/basit/nua-backend/handlers"
)

func RegisterFileRoutes(r *gin.Engine, h *handlers.FileHandler) {
	fileGroup := r.Group("/api/files")
	fileGroup.Use(middleware.AuthRequired())

	fileGroup.POST("/upload", h.Upload)
	fileGroup.GET("/dashboard", h.Dashboard)
	fileGroup.POST("/share", h.Share)
	fileGroup.POST("/generate-link", h.GenerateLink)
	fileGroup.GET("/download/:id", h.Download)
	fileGroup.GET("/proxy-download/:id", h.ProxyDownload)
	fileGroup.DELETE("/share/remove", h.RemoveAccess)
	fileGroup.GET("/logs/:id", h.Logs)
	fileGroup.GET("/secure-link/:token", h.SecureLink)
	fileGroup.GET("/shared-download/:token", h.SharedDownload)
	fileGroup.GET("/share-qr/:id", h.ShareQR)
}
