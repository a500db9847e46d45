package service

import (
	"errors"
	"io"
	"time"

	"github.com/Baaaki/stockroom/internal/audit"
	"github.com/Baaaki/stockroom/internal/models"
	"github.com/Baaaki/stockroom/internal/repository"
	"github.com/Baaaki/stockroom/internal/storage"
	"github.com/Baaaki/stockroom/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrItemNotFound = errors.New("item not found")

// ItemFields are the writable item attributes, validated here once for
// both create and update.
type ItemFields struct {
	Name        string
	Description string
	Category    string
	Price       float64
}

type ItemService struct {
	itemRepo *repository.ItemRepository
	blobs    storage.BlobStore
	trail    *audit.Trail
}

func NewItemService(itemRepo *repository.ItemRepository, blobs storage.BlobStore, trail *audit.Trail) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		blobs:    blobs,
		trail:    trail,
	}
}

func (s *ItemService) List(filter models.ItemFilter) ([]*models.Item, error) {
	items, err := s.itemRepo.ListItems(filter)
	if err != nil {
		logger.Log.Error("Failed to list items",
			zap.Error(err),
		)
		return nil, err
	}
	return items, nil
}

// Create stores the optional image first, then the record. The two
// writes are not transactional: a failure in between leaves an orphaned
// blob, which is an accepted gap for this service.
func (s *ItemService) Create(fields ItemFields, image io.Reader, imageName, createdBy string) (*models.Item, error) {
	if err := validateItemFields(fields); err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:          uuid.New(),
		Name:        fields.Name,
		Description: fields.Description,
		Category:    fields.Category,
		Price:       fields.Price,
		CreatedBy:   createdBy,
	}

	if image != nil {
		ref, err := s.blobs.Save(image, imageName)
		if err != nil {
			logger.Log.Error("Failed to store item image",
				zap.String("image_name", imageName),
				zap.Error(err),
			)
			return nil, err
		}
		item.ImagePath = ref
	}

	if err := s.itemRepo.CreateItem(item); err != nil {
		logger.Log.Error("Failed to create item",
			zap.String("name", fields.Name),
			zap.Error(err),
		)
		return nil, err
	}

	s.record(createdBy, "item.create", item.ID.String(), item.Name)

	logger.Log.Info("Item created",
		zap.String("item_id", item.ID.String()),
		zap.String("name", item.Name),
		zap.String("created_by", createdBy),
	)

	return item, nil
}

// Update rewrites the item's fields and, when a new image is supplied,
// replaces the image reference. The previous blob is left in place, as
// in the original system; only item deletion removes blobs.
func (s *ItemService) Update(itemID string, fields ItemFields, image io.Reader, imageName, actor string) (*models.Item, error) {
	if err := validateItemFields(fields); err != nil {
		return nil, err
	}

	id, err := uuid.Parse(itemID)
	if err != nil {
		return nil, NewValidationError("invalid item ID format")
	}

	item, err := s.itemRepo.GetItemByID(id)
	if err != nil {
		logger.Log.Error("Failed to fetch item for update",
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	item.Name = fields.Name
	item.Description = fields.Description
	item.Category = fields.Category
	item.Price = fields.Price

	if image != nil {
		ref, err := s.blobs.Save(image, imageName)
		if err != nil {
			logger.Log.Error("Failed to store replacement image",
				zap.String("item_id", itemID),
				zap.Error(err),
			)
			return nil, err
		}
		item.ImagePath = ref
	}

	if err := s.itemRepo.UpdateItem(item); err != nil {
		logger.Log.Error("Failed to update item",
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return nil, err
	}

	s.record(actor, "item.update", itemID, item.Name)

	logger.Log.Info("Item updated",
		zap.String("item_id", itemID),
		zap.String("actor", actor),
	)

	return item, nil
}

// Delete removes the record and then its blob. Blob removal failure is
// logged but does not resurrect the record.
func (s *ItemService) Delete(itemID, actor string) error {
	id, err := uuid.Parse(itemID)
	if err != nil {
		return NewValidationError("invalid item ID format")
	}

	item, err := s.itemRepo.GetItemByID(id)
	if err != nil {
		logger.Log.Error("Failed to fetch item for delete",
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return err
	}
	if item == nil {
		return ErrItemNotFound
	}

	matched, err := s.itemRepo.DeleteItem(id)
	if err != nil {
		logger.Log.Error("Failed to delete item",
			zap.String("item_id", itemID),
			zap.Error(err),
		)
		return err
	}
	if !matched {
		return ErrItemNotFound
	}

	if item.ImagePath != "" {
		if err := s.blobs.Remove(item.ImagePath); err != nil {
			logger.Log.Warn("Failed to remove item image",
				zap.String("item_id", itemID),
				zap.String("image_path", item.ImagePath),
				zap.Error(err),
			)
		}
	}

	s.record(actor, "item.delete", itemID, item.Name)

	logger.Log.Info("Item deleted",
		zap.String("item_id", itemID),
		zap.String("actor", actor),
	)

	return nil
}

func (s *ItemService) record(actor, action, entityID, detail string) {
	if s.trail == nil {
		return
	}
	err := s.trail.Append(audit.Entry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Entity:    "item",
		EntityID:  entityID,
		Detail:    detail,
		Timestamp: time.Now(),
	})
	if err != nil {
		logger.Log.Warn("Audit append failed",
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func validateItemFields(fields ItemFields) error {
	if fields.Name == "" {
		return NewValidationError("name is required")
	}
	if len(fields.Name) > 100 {
		return NewValidationError("name must be at most 100 characters")
	}
	if fields.Price < 0 {
		return NewValidationError("price cannot be negative")
	}
	return nil
}
