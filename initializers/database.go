package initializers

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/basit/nua-backend/models"
)

var DB *gorm.DB

func ConnectToDatabase() {
	if os.Getenv("RENDER") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: No .env file found. Using system environment variables.")
		}
	}
	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		log.Fatal("DB_URL is not set in environment variables")
	}

	var err error
	DB, err = gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	if err := DB.AutoMigrate(
		&models.User{},
		&models.File{},
		&models.FileShare{},
		&models.AuditLog{},
	); err != nil {
		log.Fatalf("Failed to migrate database schema: %v", err)
	}
	log.Println("Database connected and migrated successfully")
}
