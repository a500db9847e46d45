package repository

import (
	"errors"
	"strings"

	"github.com/Baaaki/stockroom/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) CreateItem(item *models.Item) error {
	return r.db.Create(item).Error
}

func (r *ItemRepository) GetItemByID(id uuid.UUID) (*models.Item, error) {
	var item models.Item
	err := r.db.Where("id = ?", id).First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &item, nil
}

// ListItems applies the filter as a conjunction: every set field narrows
// the result. An empty filter returns the whole catalog.
func (r *ItemRepository) ListItems(filter models.ItemFilter) ([]*models.Item, error) {
	q := r.db.Model(&models.Item{}).Order("created_at DESC")

	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		// LOWER() keeps the substring match case-insensitive on both
		// postgres and sqlite.
		needle := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", needle, needle)
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}

	var items []*models.Item
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ItemRepository) UpdateItem(item *models.Item) error {
	// Save writes all fields, including ones cleared back to zero values.
	return r.db.Save(item).Error
}

func (r *ItemRepository) DeleteItem(id uuid.UUID) (bool, error) {
	res := r.db.Delete(&models.Item{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
