package testutil

import (
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/utils"
	"github.com/google/uuid"
)

// CreateTestUser builds a user record with a real argon2id hash so
// login flows work against it.
func CreateTestUser(username, password string, role models.Role) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
	}, nil
}

// CreateTestItem builds an item record.
func CreateTestItem(name, category string, price float64, createdBy string) *models.Item {
	return &models.Item{
		ID:        uuid.New(),
		Name:      name,
		Category:  category,
		Price:     price,
		CreatedBy: createdBy,
	}
}
