package database

import (
	"log"
	"os"

	"github.com/meetgeetha/cicd-debugger/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
}

func AutoMigrate() {
	err := DB.AutoMigrate(
		&models.StoredFailure{},
		&models.FingerprintRecord{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}
}
