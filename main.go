package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/basit/nua-backend/audit"
	"github.com/basit/nua-backend/auth/middleware"
	"github.com/basit/nua-backend/auth/oauth"
	"github.com/basit/nua-backend/handlers"
	"github.com/basit/nua-backend/initializers"
	"github.com/basit/nua-backend/links"
	"github.com/basit/nua-backend/repository"
	"github.com/basit/nua-backend/routes"
	"github.com/basit/nua-backend/service"
	"github.com/basit/nua-backend/share"
	"github.com/basit/nua-backend/storage"
)

const defaultPort = "8080"

func main() {
	initializers.ConnectToDatabase()
	initializers.InitAWS()
	oauth.InitStore()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	files := repository.NewFiles(initializers.DB)
	users := repository.NewUsers(initializers.DB)
	auditStore := repository.NewAudit(initializers.DB)

	recorder := audit.NewRecorder(auditStore)
	linkManager := links.NewManager(files)
	registry := share.NewRegistry(files, users, recorder)
	blobs := storage.NewS3Store(initializers.S3Client, initializers.S3Bucket, initializers.S3Region)
	disclosure := service.NewDisclosure(files, blobs, linkManager, registry, recorder)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("BASE_URL"), "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(
		middleware.RateLimitMiddleware(),
	)

	routes.RegisterAuthRoutes(router)
	routes.RegisterFileRoutes(router, handlers.NewFileHandler(disclosure))

	log.Printf("listening on :%s", port)
	log.Fatal(router.Run(":" + port))
}
