package main

import (
	"log"
	"os"

	"github.com/Baaaki/stockroom/internal/config"
	"github.com/Baaaki/stockroom/internal/database"
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/utils"
	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	database.Connect(cfg)
	database.Migrate()

	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		log.Fatal("Missing environment variables: ADMIN_USERNAME, ADMIN_PASSWORD")
	}

	// Check if the admin account already exists
	var admin models.User
	result := database.DB.Where("username = ?", adminUsername).First(&admin)

	if result.Error == nil {
		log.Println("Admin user already exists:", admin.Username)
		return
	}

	passwordHash, err := utils.HashPassword(adminPassword)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	admin = models.User{
		ID:           uuid.New(),
		Username:     adminUsername,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}

	if err := database.DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	log.Println("Admin user created successfully!")
	log.Println("   Username:", admin.Username)
}
